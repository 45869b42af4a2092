// Package update checks GitHub releases for a newer build and swaps
// the running binary in place.
package update

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Repo       = "whiskapp/whisk"
	BinaryName = "whisk"
)

// Release describes a downloadable build that is newer than the one
// running.
type Release struct {
	Version     string
	AssetURL    string
	ChecksumURL string
}

// NewerThan reports whether the release should replace the given
// version. Unparseable versions (including "dev" builds) never update.
func (r Release) NewerThan(current string) bool {
	cur, errCur := parseSemver(current)
	rel, errRel := parseSemver(r.Version)
	return errCur == nil && errRel == nil && rel.after(cur)
}

type semver [3]int

// parseSemver reads "v1.2.3" with an optional pre-release or build
// suffix, which is ignored for ordering.
func parseSemver(v string) (semver, error) {
	base := strings.TrimPrefix(v, "v")
	base, _, _ = strings.Cut(base, "-")
	base, _, _ = strings.Cut(base, "+")
	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return semver{}, fmt.Errorf("not a semver version: %q", v)
	}
	var s semver
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return semver{}, fmt.Errorf("not a semver version: %q", v)
		}
		s[i] = n
	}
	return s, nil
}

func (s semver) after(o semver) bool {
	for i := range s {
		if s[i] != o[i] {
			return s[i] > o[i]
		}
	}
	return false
}
