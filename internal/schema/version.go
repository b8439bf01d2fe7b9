package schema

import (
	"fmt"
	"regexp"

	"golang.org/x/mod/semver"
)

// CurrentVersion is the newest project schema this build reads and writes.
const CurrentVersion = "1.0.0"

var versionRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// CompareVersions compares two major.minor.patch strings field by field and
// returns -1, 0 or +1.
func CompareVersions(a, b string) (int, error) {
	if !versionRe.MatchString(a) {
		return 0, fmt.Errorf("schema: malformed version %q", a)
	}
	if !versionRe.MatchString(b) {
		return 0, fmt.Errorf("schema: malformed version %q", b)
	}
	return semver.Compare("v"+a, "v"+b), nil
}
