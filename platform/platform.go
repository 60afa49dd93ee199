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

// Package platform maps a target platform identifier to the naming and
// extraction parameters of the prebuilt FlightSQL driver for that platform.
package platform

import (
	"fmt"
	"path"
	"runtime"
	"sort"
	"strings"
)

const (
	// WheelProject is the distribution name of the driver on the package index.
	WheelProject = "adbc-driver-flightsql"

	// CondaPackage is the name of the driver package on conda channels.
	CondaPackage = "libadbc-driver-flightsql"

	wheelPrefix = "adbc_driver_flightsql"
)

// Variant holds the platform specific parameters used to locate the
// driver artifact and the library inside it.
type Variant struct {
	// Platform is the canonical GOOS/GOARCH identifier of the variant.
	Platform string

	// WheelSuffix is appended to '<project>-<version>-' to form the wheel filename.
	WheelSuffix string

	// CondaSubdir is the channel subdirectory holding packages for the platform.
	CondaSubdir string

	// LibFilename is the file name of the shared library.
	LibFilename string

	// LibDir is the directory of the library inside an unpacked conda package.
	LibDir string

	// CondaLibFilename overrides LibFilename for conda packages, which
	// follow the platform's native shared library naming.
	CondaLibFilename string
}

// WheelFilename returns the wheel file name published for the given version.
func (v Variant) WheelFilename(version string) string {
	return fmt.Sprintf("%s-%s-%s", wheelPrefix, version, v.WheelSuffix)
}

// CondaFilename returns the conda package file name for the given version and build.
func (v Variant) CondaFilename(version, build string) string {
	return fmt.Sprintf("%s-%s-%s.conda", CondaPackage, version, build)
}

// LibPath returns the slash separated path of the library inside an
// unpacked conda package.
func (v Variant) LibPath() string {
	return path.Join(v.LibDir, v.CondaLib())
}

// CondaLib returns the library file name used inside conda packages.
func (v Variant) CondaLib() string {
	if v.CondaLibFilename != "" {
		return v.CondaLibFilename
	}
	return v.LibFilename
}

// UnsupportedPlatformError is returned when no Variant exists for a
// platform identifier.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported target '%s' for ADBC FlightSQL driver (must be one of: %q)",
		e.Platform, Supported())
}

var variants = map[string]Variant{
	"linux/amd64": {
		Platform:    "linux/amd64",
		WheelSuffix: "py3-none-manylinux1_x86_64.manylinux2014_x86_64.manylinux_2_17_x86_64.manylinux_2_5_x86_64.whl",
		CondaSubdir: "linux-64",
		LibFilename: "libadbc_driver_flightsql.so",
		LibDir:      "lib",
	},
	"linux/arm64": {
		Platform:    "linux/arm64",
		WheelSuffix: "py3-none-manylinux2014_aarch64.manylinux_2_17_aarch64.whl",
		CondaSubdir: "linux-aarch64",
		LibFilename: "libadbc_driver_flightsql.so",
		LibDir:      "lib",
	},
	"darwin/amd64": {
		Platform:         "darwin/amd64",
		WheelSuffix:      "py3-none-macosx_10_15_x86_64.whl",
		CondaSubdir:      "osx-64",
		LibFilename:      "libadbc_driver_flightsql.so",
		LibDir:           "lib",
		CondaLibFilename: "libadbc_driver_flightsql.dylib",
	},
	"darwin/arm64": {
		Platform:         "darwin/arm64",
		WheelSuffix:      "py3-none-macosx_11_0_arm64.whl",
		CondaSubdir:      "osx-arm64",
		LibFilename:      "libadbc_driver_flightsql.so",
		LibDir:           "lib",
		CondaLibFilename: "libadbc_driver_flightsql.dylib",
	},
	"windows/amd64": {
		Platform:    "windows/amd64",
		WheelSuffix: "py3-none-win_amd64.whl",
		CondaSubdir: "win-64",
		LibFilename: "adbc_driver_flightsql.dll",
		LibDir:      "Library/bin",
	},
}

// aliases maps target triples to canonical identifiers.
var aliases = map[string]string{
	"x86_64-unknown-linux-gnu":  "linux/amd64",
	"aarch64-unknown-linux-gnu": "linux/arm64",
	"x86_64-apple-darwin":       "darwin/amd64",
	"aarch64-apple-darwin":      "darwin/arm64",
	"x86_64-pc-windows-msvc":    "windows/amd64",
}

// Resolve returns the Variant for the given platform identifier. Both
// GOOS/GOARCH (or GOOS_GOARCH) strings and target triples are accepted.
func Resolve(id string) (Variant, error) {
	key := strings.TrimSpace(id)
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	key = strings.Replace(key, "_", "/", 1)
	if v, ok := variants[key]; ok {
		return v, nil
	}
	return Variant{}, &UnsupportedPlatformError{Platform: id}
}

// Host returns the identifier of the platform the program runs on.
func Host() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Supported returns the sorted canonical identifiers.
func Supported() []string {
	ids := make([]string, 0, len(variants))
	for id := range variants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Aliases returns the target triples accepted for the given canonical identifier.
func Aliases(id string) []string {
	var out []string
	for alias, canonical := range aliases {
		if canonical == id {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}
