package session

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// The bridge embeds the Shioaji driver it was built against. The tick and
// k-bar payload shapes changed across driver releases, so only this range is
// known to produce what the pipeline expects.
const (
	requiredMinVersion = "v1.0.0"
	requiredMaxVersion = "v1.2.0" // exclusive
)

// VerifyVersion checks the bridge-reported driver version against the
// supported range. Callers run this once after the first login, before
// constructing any gatherer; nothing in this package checks versions as a
// side effect.
func VerifyVersion(v string) error {
	if v == "" {
		return fmt.Errorf("bridge did not report a driver version")
	}
	canonical := v
	if !strings.HasPrefix(canonical, "v") {
		canonical = "v" + canonical
	}
	if !semver.IsValid(canonical) {
		return fmt.Errorf("driver version %q is not a valid semantic version", v)
	}
	if semver.Compare(canonical, requiredMinVersion) < 0 || semver.Compare(canonical, requiredMaxVersion) >= 0 {
		return fmt.Errorf("driver version %s is unsupported: need >=%s and <%s",
			v, strings.TrimPrefix(requiredMinVersion, "v"), strings.TrimPrefix(requiredMaxVersion, "v"))
	}
	return nil
}
