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

// Package digest verifies downloaded artifacts against the checksums
// advertised by package registries.
package digest

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Canonical is the algorithm package registries advertise checksums in.
const Canonical = digest.SHA256

// ChecksumMismatchError is returned when the computed digest of an
// artifact does not match the advertised one.
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: computed '%s' doesn't match advertised '%s'", e.Actual, e.Expected)
}

// Parse converts an advertised checksum into a digest.Digest. Bare hex
// strings are taken to be SHA-256. The hex part is compared
// case-insensitively in both the bare and the 'algorithm:hex' form.
func Parse(checksum string) (digest.Digest, error) {
	checksum = strings.TrimSpace(checksum)
	algo, encoded, found := strings.Cut(checksum, ":")
	if !found {
		algo, encoded = Canonical.String(), checksum
	}
	d := digest.NewDigestFromEncoded(digest.Algorithm(strings.ToLower(algo)), strings.ToLower(encoded))
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("invalid checksum '%s': %w", checksum, err)
	}
	return d, nil
}

// Verify checks data against the expected checksum. An empty checksum
// skips the verification and returns nil; callers are responsible for
// reporting that the artifact was not verified.
func Verify(data []byte, expected string) error {
	if strings.TrimSpace(expected) == "" {
		return nil
	}

	d, err := Parse(expected)
	if err != nil {
		return err
	}

	verifier := d.Verifier()
	if _, err := verifier.Write(data); err != nil {
		return err
	}
	if !verifier.Verified() {
		return &ChecksumMismatchError{
			Expected: d.Encoded(),
			Actual:   d.Algorithm().FromBytes(data).Encoded(),
		}
	}
	return nil
}

// Compute returns the hex encoded canonical digest of data.
func Compute(data []byte) string {
	return Canonical.FromBytes(data).Encoded()
}
