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

package archive

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/fluxcd/adbc-driver-fetch/testserver"
)

func TestExtractFromZip(t *testing.T) {
	wheel, err := testserver.Zip([]testserver.File{
		{Name: "adbc_driver_flightsql/__init__.py", Body: "# init"},
		{Name: "x/notes/", Body: ""},
		{Name: "x/libfoo.so", Body: "ELF libfoo"},
		{Name: "y/libfoo.so", Body: "second copy"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		data         []byte
		filename     string
		maxUntarSize int64
		wantName     string
		wantBody     string
		wantNotFound bool
		wantErr      bool
	}{
		{
			name:     "first matching entry wins",
			data:     wheel,
			filename: "libfoo.so",
			wantName: "x/libfoo.so",
			wantBody: "ELF libfoo",
		},
		{
			name:         "no matching entry",
			data:         wheel,
			filename:     "foo.dll",
			wantNotFound: true,
		},
		{
			name:         "breaches max untar size",
			data:         wheel,
			filename:     "libfoo.so",
			maxUntarSize: 3,
			wantErr:      true,
		},
		{
			name:     "not a zip archive",
			data:     []byte("<html>"),
			filename: "libfoo.so",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			var opts []Option
			if tt.maxUntarSize != 0 {
				opts = append(opts, WithMaxUntarSize(tt.maxUntarSize))
			}
			entry, err := ExtractFromZip(tt.data, tt.filename, opts...)

			if tt.wantNotFound {
				var nf *EntryNotFoundError
				g.Expect(errors.As(err, &nf)).To(BeTrue())
				g.Expect(nf.Searched).To(Equal(4))
				g.Expect(err.Error()).To(ContainSubstring("searched 4 entries"))
				return
			}
			if tt.wantErr {
				g.Expect(err).To(HaveOccurred())
				return
			}
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(entry.Name).To(Equal(tt.wantName))
			g.Expect(string(entry.Data)).To(Equal(tt.wantBody))
		})
	}
}

func TestExtractFromConda_Zstd(t *testing.T) {
	g := NewWithT(t)

	tarball, err := testserver.ZstdTar([]testserver.File{
		{Name: "lib/"},
		{Name: "lib/libfoo.so", Body: "zstd packaged libfoo"},
		{Name: "lib/libfoo.so.1", Linkname: "libfoo.so"},
		{Name: "share/doc/README", Body: "docs"},
	})
	g.Expect(err).ToNot(HaveOccurred())
	pkg, err := testserver.CondaPackage("pkg-libfoo-1.2.3-h0_0.tar.zst", tarball)
	g.Expect(err).ToNot(HaveOccurred())

	tmpDir := t.TempDir()
	entry, err := ExtractFromConda(pkg, "lib/libfoo.so", WithTempDir(tmpDir))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entry.Name).To(Equal("lib/libfoo.so"))
	g.Expect(string(entry.Data)).To(Equal("zstd packaged libfoo"))

	// The scratch directory is gone.
	leftovers, err := os.ReadDir(tmpDir)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(leftovers).To(BeEmpty())
}

func TestExtractFromConda_Bzip2Fallback(t *testing.T) {
	g := NewWithT(t)

	tarball, err := os.ReadFile(filepath.Join("testdata", "pkg-libfoo-1.2.3-h0_0.tar.bz2"))
	g.Expect(err).ToNot(HaveOccurred())
	pkg, err := testserver.CondaPackage("pkg-libfoo-1.2.3-h0_0.tar.bz2", tarball)
	g.Expect(err).ToNot(HaveOccurred())

	// lib/ holds the symlink libfoo.so.1 and the file libfoo.so.1.2.3.
	entry, err := ExtractFromConda(pkg, "lib/libfoo.so")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entry.Name).To(Equal("lib/libfoo.so.1.2.3"))
	g.Expect(string(entry.Data)).To(Equal("bzip2 packaged libfoo\n"))
}

func TestExtractFromConda_Errors(t *testing.T) {
	tarball, err := testserver.ZstdTar([]testserver.File{
		{Name: "lib/libbar.so", Body: "bar"},
	})
	if err != nil {
		t.Fatal(err)
	}

	twoTarballs, err := testserver.Zip([]testserver.File{
		{Name: "pkg-a.tar.zst", Body: string(tarball)},
		{Name: "pkg-b.tar.zst", Body: string(tarball)},
	})
	if err != nil {
		t.Fatal(err)
	}
	noTarball, err := testserver.CondaPackage("data-a.tar.zst", tarball)
	if err != nil {
		t.Fatal(err)
	}
	wrongLib, err := testserver.CondaPackage("pkg-a.tar.zst", tarball)
	if err != nil {
		t.Fatal(err)
	}
	corrupt, err := testserver.CondaPackage("pkg-a.tar.zst", []byte("not zstd"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		data         []byte
		maxUntarSize int64
		wantNotFound bool
		wantErr      string
	}{
		{name: "no package tarball", data: noTarball, wantNotFound: true, wantErr: `pkg-\*\.tar\.zst or pkg-\*\.tar\.bz2`},
		{name: "library missing from lib", data: wrongLib, wantNotFound: true},
		{name: "more than one package tarball", data: twoTarballs, wantErr: "expected exactly one"},
		{name: "corrupt tarball", data: corrupt, wantErr: "pkg-a.tar.zst"},
		{name: "breaches max untar size", data: wrongLib, maxUntarSize: 1, wantErr: `max (untar|archive) size`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			opts := []Option{WithTempDir(t.TempDir())}
			if tt.maxUntarSize != 0 {
				opts = append(opts, WithMaxUntarSize(tt.maxUntarSize))
			}
			_, err := ExtractFromConda(tt.data, "lib/libfoo.so", opts...)
			g.Expect(err).To(HaveOccurred())
			if tt.wantNotFound {
				var nf *EntryNotFoundError
				g.Expect(errors.As(err, &nf)).To(BeTrue())
				if tt.wantErr != "" {
					g.Expect(err.Error()).To(MatchRegexp(tt.wantErr))
				}
				return
			}
			g.Expect(err.Error()).To(MatchRegexp(tt.wantErr))
		})
	}
}

func TestUntar_RejectsEscapes(t *testing.T) {
	tests := []struct {
		name  string
		files []testserver.File
	}{
		{
			name:  "parent directory in name",
			files: []testserver.File{{Name: "../evil.so", Body: "x"}},
		},
		{
			name:  "parent directory inside name",
			files: []testserver.File{{Name: "lib/../../evil.so", Body: "x"}},
		},
		{
			name:  "absolute name",
			files: []testserver.File{{Name: "/tmp/evil.so", Body: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			raw, err := testserver.Tar(tt.files)
			g.Expect(err).ToNot(HaveOccurred())

			root := t.TempDir()
			err = Untar(bytes.NewReader(raw), filepath.Join(root, "pkg"))
			g.Expect(err).To(MatchError(ContainSubstring("invalid name")))

			entries, err := os.ReadDir(root)
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(entries).To(BeEmpty())
		})
	}
}

func TestUntar_SkipsSymlinks(t *testing.T) {
	g := NewWithT(t)

	raw, err := testserver.Tar([]testserver.File{
		{Name: "lib/libfoo.so.1.2", Body: "so"},
		{Name: "lib/libfoo.so", Linkname: "libfoo.so.1.2"},
		{Name: "lib/passwd", Linkname: "/etc/passwd"},
		{Name: "lib/outside.so", Linkname: "../../outside.so"},
	})
	g.Expect(err).ToNot(HaveOccurred())

	dir := t.TempDir()
	g.Expect(Untar(bytes.NewReader(raw), dir)).To(Succeed())

	entries, err := os.ReadDir(filepath.Join(dir, "lib"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entries).To(HaveLen(1))
	g.Expect(entries[0].Name()).To(Equal("libfoo.so.1.2"))
}

func TestUntar_Modes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not supported on Windows")
	}
	g := NewWithT(t)

	raw, err := testserver.Tar([]testserver.File{
		{Name: "bin/tool", Body: "#!/bin/sh", Mode: 0o755},
		{Name: "lib/readonly.so", Body: "so", Mode: 0o444},
	})
	g.Expect(err).ToNot(HaveOccurred())

	dir := t.TempDir()
	g.Expect(Untar(bytes.NewReader(raw), dir)).To(Succeed())

	fi, err := os.Stat(filepath.Join(dir, "bin", "tool"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(fi.Mode().Perm()).To(Equal(os.FileMode(0o755)))

	fi, err = os.Stat(filepath.Join(dir, "lib", "readonly.so"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(fi.Mode().Perm()).To(Equal(os.FileMode(0o444)))
}

func TestUntar_MaxUntarSize(t *testing.T) {
	g := NewWithT(t)

	raw, err := testserver.Tar([]testserver.File{
		{Name: "lib/libfoo.so", Body: "0123456789"},
	})
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(Untar(bytes.NewReader(raw), t.TempDir(), WithMaxUntarSize(5))).ToNot(Succeed())
	g.Expect(Untar(bytes.NewReader(raw), t.TempDir(), WithMaxUntarSize(0))).To(Succeed())
}
