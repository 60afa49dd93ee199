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

package testserver

import (
	"archive/tar"
	"bytes"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// File holds the name and string contents of an archive entry.
// Entries with a Linkname are written as symbolic links, entries
// whose name ends with a slash as directories.
type File struct {
	Name     string
	Body     string
	Mode     int64
	Linkname string
}

func (f File) mode() int64 {
	if f.Mode != 0 {
		return f.Mode
	}
	return 0o644
}

// Zip returns a zip archive holding the given files, in order.
func Zip(files []File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(f.Body)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Tar returns an uncompressed tarball holding the given files, in order.
func Tar(files []File) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{
			Name:     f.Name,
			Mode:     f.mode(),
			Size:     int64(len(f.Body)),
			Typeflag: tar.TypeReg,
		}
		switch {
		case f.Linkname != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = f.Linkname
			hdr.Size = 0
		case strings.HasSuffix(f.Name, "/"):
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(f.Body)); err != nil {
				return nil, err
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ZstdTar returns a zstd compressed tarball holding the given files.
func ZstdTar(files []File) ([]byte, error) {
	raw, err := Tar(files)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// CondaPackage returns a .conda archive whose package tarball is stored
// under tarballName (e.g. 'pkg-libfoo-1.0-h0_0.tar.zst'), next to the
// metadata and info entries every conda package carries.
func CondaPackage(tarballName string, tarball []byte) ([]byte, error) {
	info, err := ZstdTar([]File{{Name: "info/index.json", Body: `{"name":"libfoo"}`}})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data []byte
	}{
		{"metadata.json", []byte(`{"conda_pkg_format_version": 2}`)},
		{"info-" + strings.TrimPrefix(tarballName, "pkg-"), info},
		{tarballName, tarball},
	}
	for _, e := range entries {
		// Tarballs are already compressed.
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
