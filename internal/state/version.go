package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is the artifact format written by Save.
const FormatVersion = "1.0.0"

// ErrUnsupportedVersion is returned for artifacts written by an incompatible
// format version. Such files are left untouched.
var ErrUnsupportedVersion = errors.New("unsupported state format version")

var readable = mustConstraint("^" + FormatVersion)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// checkFormat accepts any version compatible with FormatVersion. An empty
// version is read as FormatVersion.
func checkFormat(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return fmt.Errorf("parsing format version %q: %w", version, err)
	}
	if !readable.Check(v) {
		return fmt.Errorf("%w: %s (this build reads ^%s)", ErrUnsupportedVersion, version, FormatVersion)
	}
	return nil
}
