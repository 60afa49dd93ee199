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

package platform

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		wantPlatform string
		wantLib      string
		wantErr      bool
	}{
		{name: "linux amd64", id: "linux/amd64", wantPlatform: "linux/amd64", wantLib: "libadbc_driver_flightsql.so"},
		{name: "underscore form", id: "linux_arm64", wantPlatform: "linux/arm64", wantLib: "libadbc_driver_flightsql.so"},
		{name: "target triple", id: "aarch64-apple-darwin", wantPlatform: "darwin/arm64", wantLib: "libadbc_driver_flightsql.so"},
		{name: "windows triple", id: "x86_64-pc-windows-msvc", wantPlatform: "windows/amd64", wantLib: "adbc_driver_flightsql.dll"},
		{name: "surrounding whitespace", id: " darwin/amd64 ", wantPlatform: "darwin/amd64", wantLib: "libadbc_driver_flightsql.so"},
		{name: "unknown triple", id: "riscv64gc-unknown-linux-gnu", wantErr: true},
		{name: "unknown arch", id: "linux/386", wantErr: true},
		{name: "empty", id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			v, err := Resolve(tt.id)
			if tt.wantErr {
				g.Expect(err).To(HaveOccurred())
				var upe *UnsupportedPlatformError
				g.Expect(errors.As(err, &upe)).To(BeTrue())
				g.Expect(upe.Platform).To(Equal(tt.id))
				g.Expect(err.Error()).To(ContainSubstring("linux/amd64"))
				return
			}
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(v.Platform).To(Equal(tt.wantPlatform))
			g.Expect(v.LibFilename).To(Equal(tt.wantLib))
		})
	}
}

func TestResolve_AllSupportedHaveFilenames(t *testing.T) {
	g := NewWithT(t)

	ids := Supported()
	g.Expect(ids).To(HaveLen(5))
	for _, id := range ids {
		v, err := Resolve(id)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(v.WheelSuffix).ToNot(BeEmpty())
		g.Expect(v.LibFilename).ToNot(BeEmpty())
		g.Expect(v.CondaSubdir).ToNot(BeEmpty())
		g.Expect(v.CondaLib()).ToNot(BeEmpty())
		g.Expect(Aliases(id)).To(HaveLen(1))
	}
}

func TestVariant_Filenames(t *testing.T) {
	g := NewWithT(t)

	v, err := Resolve("darwin/arm64")
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(v.WheelFilename("1.9.0")).To(Equal("adbc_driver_flightsql-1.9.0-py3-none-macosx_11_0_arm64.whl"))
	g.Expect(v.CondaFilename("1.9.0", "custom_1")).To(Equal("libadbc-driver-flightsql-1.9.0-custom_1.conda"))
	g.Expect(v.LibPath()).To(Equal("lib/libadbc_driver_flightsql.dylib"))

	w, err := Resolve("windows/amd64")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(w.LibPath()).To(Equal("Library/bin/adbc_driver_flightsql.dll"))
}
