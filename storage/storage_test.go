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

package storage_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	intdigest "github.com/fluxcd/adbc-driver-fetch/digest"
	. "github.com/fluxcd/adbc-driver-fetch/storage"
)

func TestCached(t *testing.T) {
	tests := []struct {
		name        string
		content     *string
		want        bool
		wantRemoved bool
	}{
		{name: "missing file", content: nil, want: false},
		{name: "non-empty file", content: ptr("ELF"), want: true},
		{name: "zero-size file is removed", content: ptr(""), want: false, wantRemoved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			p := filepath.Join(t.TempDir(), "libadbc_driver_flightsql.so")
			if tt.content != nil {
				g.Expect(os.WriteFile(p, []byte(*tt.content), 0o644)).To(Succeed())
			}

			got, err := Cached(p)
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(got).To(Equal(tt.want))

			if tt.wantRemoved {
				_, err := os.Stat(p)
				g.Expect(os.IsNotExist(err)).To(BeTrue())
			}
		})
	}
}

func TestCached_Directory(t *testing.T) {
	g := NewWithT(t)

	_, err := Cached(t.TempDir())
	g.Expect(err).To(HaveOccurred())
}

func TestInstall(t *testing.T) {
	g := NewWithT(t)

	content := []byte("ELF libfoo")
	dest := filepath.Join(t.TempDir(), "out", "nested", "libfoo.so")

	lib, err := Install(dest, bytes.NewReader(content), "1.9.0")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(lib.Path).To(Equal(dest))
	g.Expect(lib.Size).To(BeEquivalentTo(len(content)))
	g.Expect(lib.Digest).To(Equal(intdigest.Canonical.FromBytes(content).String()))

	got, err := os.ReadFile(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(got).To(Equal(content))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(dest)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(fi.Mode().Perm()).To(Equal(LibraryMode))
	}

	v, err := InstalledVersion(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(v).To(Equal("1.9.0"))

	// Only the library and its version are left behind.
	entries, err := os.ReadDir(filepath.Dir(dest))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entries).To(HaveLen(2))
	g.Expect(entries[0].Name()).To(Equal("libfoo.so"))
	g.Expect(entries[1].Name()).To(Equal("libfoo.so.version"))
}

func TestInstall_Overwrites(t *testing.T) {
	g := NewWithT(t)

	dest := filepath.Join(t.TempDir(), "libfoo.so")
	g.Expect(os.WriteFile(dest, []byte("old"), 0o600)).To(Succeed())

	_, err := Install(dest, bytes.NewReader([]byte("new")), "1.9.0")
	g.Expect(err).ToNot(HaveOccurred())

	got, err := os.ReadFile(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(got)).To(Equal("new"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestInstall_ReaderError(t *testing.T) {
	g := NewWithT(t)

	dir := t.TempDir()
	dest := filepath.Join(dir, "libfoo.so")

	_, err := Install(dest, failingReader{}, "1.9.0")
	g.Expect(err).To(MatchError("connection reset"))

	entries, err := os.ReadDir(dir)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entries).To(BeEmpty())
}

func TestLock(t *testing.T) {
	g := NewWithT(t)

	dest := filepath.Join(t.TempDir(), "out", "libfoo.so")

	unlock, err := Lock(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(dest + ".lock").To(BeAnExistingFile())

	acquired := make(chan struct{})
	go func() {
		unlock2, err := Lock(dest)
		if err == nil {
			unlock2()
		}
		close(acquired)
	}()

	g.Consistently(acquired, 100*time.Millisecond).ShouldNot(BeClosed())
	unlock()
	g.Eventually(acquired, time.Second).Should(BeClosed())
}

func TestAtomicWriteFile_Mode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not supported on Windows")
	}
	g := NewWithT(t)

	dest := filepath.Join(t.TempDir(), "zz_driver.go")
	_, err := AtomicWriteFile(dest, bytes.NewReader([]byte("package driver\n")), 0o644)
	g.Expect(err).ToNot(HaveOccurred())

	fi, err := os.Stat(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(fi.Mode().Perm()).To(Equal(os.FileMode(0o644)))
}

func ptr(s string) *string {
	return &s
}

func TestInstalledVersion(t *testing.T) {
	g := NewWithT(t)

	dest := filepath.Join(t.TempDir(), "libfoo.so")

	v, err := InstalledVersion(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(v).To(BeEmpty())

	_, err = Install(dest, bytes.NewReader([]byte("v1")), "1.8.0")
	g.Expect(err).ToNot(HaveOccurred())
	_, err = Install(dest, bytes.NewReader([]byte("v2")), "1.9.0")
	g.Expect(err).ToNot(HaveOccurred())

	v, err = InstalledVersion(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(v).To(Equal("1.9.0"))
}
