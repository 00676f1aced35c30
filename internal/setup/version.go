package setup

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"
)

// versionNumberRegex finds the first dotted number in interpreter output, so
// both "3.11.4" and "Python 3.11.4" parse. Suffixes such as "rc1" are not
// part of the match.
var versionNumberRegex = regexp.MustCompile(`\d+(?:\.\d+)*`)

// ParseVersion extracts the first version number from s. Missing minor or
// patch components compare as zero.
func ParseVersion(s string) (*version.Version, error) {
	number := versionNumberRegex.FindString(s)
	if number == "" {
		return nil, fmt.Errorf("no version number in %q", s)
	}
	v, err := version.NewVersion(number)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error. It is meant for
// constants.
func MustParseVersion(s string) *version.Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}
