// Package profutil merges several pprof CPU profile files into one
// aggregate profile for `go tool pprof`, the same merge-then-inspect
// workflow a developer runs by hand after several `go test -cpuprofile`
// runs.
package profutil

import (
	"os"

	"github.com/google/pprof/profile"
)

// MergeFiles reads the pprof profiles at paths and merges them into one.
func MergeFiles(paths ...string) (*profile.Profile, error) {
	profiles := make([]*profile.Profile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		prof, err := profile.Parse(f)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
		profiles = append(profiles, prof)
	}
	return profile.Merge(profiles)
}
