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

// Package storage places the driver library at its destination path.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fluxcd/pkg/lockedfile"

	intdigest "github.com/fluxcd/adbc-driver-fetch/digest"
)

// LibraryMode is the file mode of an installed library on Unix-like systems.
const LibraryMode os.FileMode = 0o755

// Library describes a file written by AtomicWriteFile.
type Library struct {
	// Path is the destination the content was written to.
	Path string

	// Digest is the SHA-256 checksum of the written content in the
	// '<algo>:<hex>' format.
	Digest string

	// Size is the number of bytes written.
	Size int64
}

// Cached reports whether a usable library exists at path. A zero-sized
// file is the leftover of an interrupted run: it is removed and reported
// as absent.
func Cached(path string) (bool, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, fmt.Errorf("destination '%s' is a directory", path)
	}
	if fi.Size() > 0 {
		return true, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("failed to remove empty library file: %w", err)
	}
	return false, nil
}

// VersionFile returns the path of the file recording the driver version
// of the library at path.
func VersionFile(path string) string {
	return path + ".version"
}

// Install atomically writes the library read from reader to path with
// LibraryMode and records version in VersionFile(path). The version is
// written first so that an installed library always has one.
func Install(path string, reader io.Reader, version string) (*Library, error) {
	if _, err := AtomicWriteFile(VersionFile(path), strings.NewReader(version+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to record library version: %w", err)
	}
	lib, err := AtomicWriteFile(path, reader, LibraryMode)
	if err != nil {
		os.Remove(VersionFile(path))
		return nil, err
	}
	return lib, nil
}

// InstalledVersion returns the driver version Install recorded for the
// library at path, or an empty string if there is none.
func InstalledVersion(path string) (string, error) {
	data, err := os.ReadFile(VersionFile(path))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read library version: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// AtomicWriteFile atomically writes the io.Reader contents to path, creating
// the parent directories. Readers never observe a partially written file at
// path: the content is written to a temporary file in the same directory
// and renamed over the destination.
func AtomicWriteFile(path string, reader io.Reader, mode os.FileMode) (lib *Library, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	tf, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return nil, err
	}
	tfName := tf.Name()
	defer func() {
		if err != nil {
			os.Remove(tfName)
		}
	}()

	d := intdigest.Canonical.Digester()
	sz := &writeCounter{}
	mw := io.MultiWriter(tf, d.Hash(), sz)

	if _, err := io.Copy(mw, reader); err != nil {
		tf.Close()
		return nil, err
	}
	if err := tf.Close(); err != nil {
		return nil, err
	}

	// Windows has no executable bit; the temp file default is kept.
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tfName, mode); err != nil {
			return nil, err
		}
	}

	if err := os.Rename(tfName, path); err != nil {
		return nil, err
	}

	return &Library{
		Path:   path,
		Digest: d.Digest().String(),
		Size:   sz.written,
	}, nil
}

// Lock takes an exclusive cross-process lock guarding the library at
// path. The lock file lives next to the library.
func Lock(path string) (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	mutex := lockedfile.MutexAt(path + ".lock")
	return mutex.Lock()
}

// writeCounter is an implementation of io.Writer
// that only records the number of bytes written.
type writeCounter struct {
	written int64
}

// Write implements the io.Writer interface.
func (wc *writeCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.written += int64(n)
	return n, nil
}
