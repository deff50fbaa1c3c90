// Package version implements the framework's four-part version identifier:
// major.minor.micro.qualifier, with the ordering and parsing rules of
// spec §4.A.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/corectk/pluginfw/fwerr"
)

const separator = "."

var qualifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)

// Version is an immutable (major, minor, micro, qualifier) tuple.
//
// The zero Version is Empty() — (0, 0, 0, ""), which compares lower than
// every other defined version. A separate Undefined sentinel exists for
// values that have not yet been assigned a version at all; any operation
// on it other than String/IsUndefined returns an IllegalState error.
type Version struct {
	major, minor, micro uint
	qualifier           string
	undefined           bool
}

// Empty returns the version (0, 0, 0, "").
func Empty() Version {
	return Version{}
}

// Undefined returns the sentinel "no version assigned" value.
func Undefined() Version {
	return Version{undefined: true}
}

// New builds a Version from its numeric components with no qualifier.
func New(major, minor, micro uint) Version {
	return Version{major: major, minor: minor, micro: micro}
}

// NewWithQualifier builds a Version and validates the qualifier against
// the [A-Za-z0-9_-]* grammar.
func NewWithQualifier(major, minor, micro uint, qualifier string) (Version, error) {
	if !qualifierPattern.MatchString(qualifier) {
		return Version{}, fwerr.InvalidArgumentf("version", "NewWithQualifier", "invalid qualifier: %s", qualifier)
	}
	return Version{major: major, minor: minor, micro: micro, qualifier: qualifier}, nil
}

// Parse parses a version string of the form "major[.minor[.micro[.qualifier]]]".
// An empty or whitespace-only string parses to Empty().
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Empty(), nil
	}

	parts := strings.Split(trimmed, separator)
	if len(parts) > 4 {
		return Version{}, fwerr.InvalidArgumentf("version", "Parse", "invalid format: %q", raw)
	}

	var maj, min, mic uint64
	var qual string
	var err error

	maj, err = strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Version{}, fwerr.InvalidArgumentf("version", "Parse", "invalid format: %q", raw).WithCause(err)
	}
	if len(parts) > 1 {
		min, err = strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return Version{}, fwerr.InvalidArgumentf("version", "Parse", "invalid format: %q", raw).WithCause(err)
		}
	}
	if len(parts) > 2 {
		mic, err = strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return Version{}, fwerr.InvalidArgumentf("version", "Parse", "invalid format: %q", raw).WithCause(err)
		}
	}
	if len(parts) > 3 {
		qual = parts[3]
	}

	return NewWithQualifier(uint(maj), uint(min), uint(mic), qual)
}

// IsUndefined reports whether v is the Undefined sentinel.
func (v Version) IsUndefined() bool {
	return v.undefined
}

// Major returns the major component, or an IllegalState error if v is
// undefined.
func (v Version) Major() (uint, error) {
	if v.undefined {
		return 0, fwerr.IllegalStatef("version", "Major", "version undefined")
	}
	return v.major, nil
}

// Minor returns the minor component, or an IllegalState error if v is
// undefined.
func (v Version) Minor() (uint, error) {
	if v.undefined {
		return 0, fwerr.IllegalStatef("version", "Minor", "version undefined")
	}
	return v.minor, nil
}

// Micro returns the micro component, or an IllegalState error if v is
// undefined.
func (v Version) Micro() (uint, error) {
	if v.undefined {
		return 0, fwerr.IllegalStatef("version", "Micro", "version undefined")
	}
	return v.micro, nil
}

// Qualifier returns the qualifier component, or an IllegalState error if v
// is undefined.
func (v Version) Qualifier() (string, error) {
	if v.undefined {
		return "", fwerr.IllegalStatef("version", "Qualifier", "version undefined")
	}
	return v.qualifier, nil
}

// String renders "major.minor.micro[.qualifier]", or "undefined".
func (v Version) String() string {
	if v.undefined {
		return "undefined"
	}
	s := fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.micro)
	if v.qualifier != "" {
		s += separator + v.qualifier
	}
	return s
}

// Equal reports whether v and other denote the same version. Comparing
// two Undefined values is true; an Undefined v against a defined other
// returns an IllegalState error, while a defined v against an Undefined
// other returns false with no error.
func (v Version) Equal(other Version) (bool, error) {
	if v.undefined && other.undefined {
		return true, nil
	}
	if v.undefined {
		return false, fwerr.IllegalStatef("version", "Equal", "version undefined")
	}
	if other.undefined {
		return false, nil
	}
	return v.major == other.major && v.minor == other.minor && v.micro == other.micro && v.qualifier == other.qualifier, nil
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, ordering major, then minor, then micro, then qualifier
// lexicographically. Comparing an undefined version returns an
// IllegalState error.
func Compare(a, b Version) (int, error) {
	if a.undefined || b.undefined {
		return 0, fwerr.IllegalStatef("version", "Compare", "cannot compare undefined version")
	}
	if a.major != b.major {
		return cmpUint(a.major, b.major), nil
	}
	if a.minor != b.minor {
		return cmpUint(a.minor, b.minor), nil
	}
	if a.micro != b.micro {
		return cmpUint(a.micro, b.micro), nil
	}
	return strings.Compare(a.qualifier, b.qualifier), nil
}

// Less reports whether a sorts before b. It panics-as-false on an
// undefined operand; callers that need the error should use Compare
// directly.
func Less(a, b Version) bool {
	c, err := Compare(a, b)
	if err != nil {
		return false
	}
	return c < 0
}

func cmpUint(a, b uint) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
