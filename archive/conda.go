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
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

const (
	pkgPrefix    = "pkg-"
	zstdTarball  = ".tar.zst"
	bzip2Tarball = ".tar.bz2"
)

// ExtractFromConda unpacks the 'pkg-' tarball of a .conda archive into a
// scratch directory and returns the library found at libPath, a slash
// separated path relative to the package root (e.g. lib/libfoo.so).
// The scratch directory is removed before returning.
func ExtractFromConda(data []byte, libPath string, opts ...Option) (*Entry, error) {
	o := newOptions(opts)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open conda package: %w", err)
	}

	var tarballs []*zip.File
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if strings.HasPrefix(name, pkgPrefix) &&
			(strings.HasSuffix(name, zstdTarball) || strings.HasSuffix(name, bzip2Tarball)) {
			tarballs = append(tarballs, f)
		}
	}
	switch len(tarballs) {
	case 0:
		return nil, &EntryNotFoundError{
			Archive:  "conda package",
			Filename: pkgPrefix + "*" + zstdTarball + " or " + pkgPrefix + "*" + bzip2Tarball,
			Searched: len(zr.File),
		}
	case 1:
	default:
		return nil, fmt.Errorf("conda package contains %d '%s' tarballs, expected exactly one", len(tarballs), pkgPrefix)
	}
	tarball := tarballs[0]

	rc, err := tarball.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", tarball.Name, err)
	}
	defer rc.Close()

	var stream io.Reader
	if strings.HasSuffix(tarball.Name, zstdTarball) {
		dec, err := zstd.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader for %s: %w", tarball.Name, err)
		}
		defer dec.Close()
		stream = dec
	} else {
		stream = bzip2.NewReader(rc)
	}

	scratch, err := os.MkdirTemp(o.tmpDir, "adbc-conda-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := Untar(stream, scratch, opts...); err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", tarball.Name, err)
	}

	libDir, err := securejoin.SecureJoin(scratch, filepath.FromSlash(path.Dir(libPath)))
	if err != nil {
		return nil, err
	}
	found, err := FindLibrary(libDir, path.Base(libPath))
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(found)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(found), err)
	}
	rel, err := filepath.Rel(scratch, found)
	if err != nil {
		return nil, err
	}
	return &Entry{Name: filepath.ToSlash(rel), Data: content}, nil
}
