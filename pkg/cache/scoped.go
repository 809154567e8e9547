package cache

// ScopedKeyer wraps a Keyer with a prefix so that several users or
// projects can share one Redis instance without seeing each other's
// results.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "proj:soc7:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer selects
// the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// TileKey returns the prefixed tile key.
func (k *ScopedKeyer) TileKey(techHash, tileHash string, opts TileKeyOpts) string {
	return k.prefix + k.inner.TileKey(techHash, tileHash, opts)
}

// CheckKey returns the prefixed check key.
func (k *ScopedKeyer) CheckKey(techHash, resultHash string) string {
	return k.prefix + k.inner.CheckKey(techHash, resultHash)
}
