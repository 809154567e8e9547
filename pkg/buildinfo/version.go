// Package buildinfo provides build-time version information.
//
// Release builds set the variables via ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/tileroute/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/tileroute/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/tileroute/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Other builds fall back to the VCS stamp of the Go toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

var (
	vcsOnce     sync.Once
	vcsRevision string
	vcsModified bool
)

func readVCS() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			vcsRevision = s.Value
		case "vcs.modified":
			vcsModified = s.Value == "true"
		}
	}
}

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, commit(), Date)
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, commit(), Date)
}

func commit() string {
	if Commit != "none" {
		return Commit
	}
	vcsOnce.Do(readVCS)
	if vcsRevision == "" {
		return Commit
	}
	if vcsModified {
		return vcsRevision + "-dirty"
	}
	return vcsRevision
}

// CacheTag identifies the router build in cache keys and run records.
// Release builds use Version. Development builds add the commit so that
// results of different sources never mix.
func CacheTag() string {
	if Version != "dev" {
		return Version
	}
	return Version + "+" + commit()
}
