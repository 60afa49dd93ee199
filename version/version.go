/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package version

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Latest is the version keyword resolved against the registry.
const Latest = "latest"

// ErrNoMatchingVersion is returned by Highest when no candidate satisfies
// the constraint.
var ErrNoMatchingVersion = errors.New("no matching version")

// ParseVersion parses a version string and returns a semver.Version object.
// The validation is looser than strict semver 2.0.0, allowing for
// a 'v' prefix and 0-prefixed numbers in the major, minor, and patch segments
// (e.g., v2025.02.03-rc.1 is considered valid).
func ParseVersion(v string) (*semver.Version, error) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return nil, semver.ErrInvalidSemVer
	}

	return semver.NewVersion(v)
}

// Validate returns an error if v is neither Latest nor a parsable version.
func Validate(v string) error {
	if v == Latest {
		return nil
	}
	if _, err := ParseVersion(v); err != nil {
		return fmt.Errorf("invalid driver version '%s': %w", v, err)
	}
	return nil
}

// Sort filters the given strings based on the provided semver range
// and sorts them in descending order.
func Sort(c *semver.Constraints, vs []string) []string {
	var versions []*semver.Version
	for _, v := range vs {
		if pv, err := ParseVersion(v); err == nil && (c == nil || c.Check(pv)) {
			versions = append(versions, pv)
		}
	}
	sort.Stable(sort.Reverse(semver.Collection(versions)))
	sorted := make([]string, 0, len(versions))
	for _, v := range versions {
		sorted = append(sorted, v.Original())
	}
	return sorted
}

// Highest returns the highest of the given versions satisfying the
// constraint. Without a constraint, pre-releases are ignored.
func Highest(c *semver.Constraints, vs []string) (string, error) {
	if c == nil {
		var err error
		// A bare wildcard excludes pre-releases.
		if c, err = semver.NewConstraint("*"); err != nil {
			return "", err
		}
	}
	sorted := Sort(c, vs)
	if len(sorted) == 0 {
		return "", ErrNoMatchingVersion
	}
	return sorted[0], nil
}
