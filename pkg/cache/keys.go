package cache

// Keyer builds cache keys.
type Keyer interface {
	// TileKey identifies a routed tile result.
	TileKey(techHash, tileHash string, opts TileKeyOpts) string

	// CheckKey identifies a rule-check report of a stored result.
	CheckKey(techHash, resultHash string) string
}

// TileKeyOpts carries the inputs of a tile besides the technology and the
// tile itself.
type TileKeyOpts struct {
	GuideHash  string `json:"guide,omitempty"`
	ConfigHash string `json:"config"`
	// Version separates results produced by different router builds.
	Version string `json:"version,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TileKey returns "tile:<sha256>".
func (DefaultKeyer) TileKey(techHash, tileHash string, opts TileKeyOpts) string {
	return hashKey(KeyTypeTile, techHash, tileHash, opts)
}

// CheckKey returns "check:<sha256>".
func (DefaultKeyer) CheckKey(techHash, resultHash string) string {
	return hashKey(KeyTypeCheck, techHash, resultHash)
}

var _ Keyer = DefaultKeyer{}
