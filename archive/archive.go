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

// Package archive extracts the driver library from the distribution
// formats of package registries: wheels (flat zip archives) and conda
// packages (a zip holding compressed tarballs).
package archive

import (
	"fmt"
	"io"
)

// DefaultMaxUntarSize is the default limit on the decompressed size of
// an archive, in bytes.
const DefaultMaxUntarSize = 1 << 30

// Entry is a file extracted from an archive.
type Entry struct {
	// Name is the path of the file inside the archive.
	Name string

	// Data is the decompressed content of the file.
	Data []byte
}

// EntryNotFoundError is returned when an archive does not contain the
// expected file.
type EntryNotFoundError struct {
	Archive  string
	Filename string
	Searched int
}

func (e *EntryNotFoundError) Error() string {
	if e.Searched > 0 {
		return fmt.Sprintf("%s did not contain %s; searched %d entries", e.Archive, e.Filename, e.Searched)
	}
	return fmt.Sprintf("%s did not contain %s", e.Archive, e.Filename)
}

type options struct {
	maxUntarSize int64
	tmpDir       string
}

// Option configures the extraction.
type Option func(*options)

// WithMaxUntarSize limits the number of decompressed bytes. Values lower
// than one disable the limit.
func WithMaxUntarSize(size int64) Option {
	return func(o *options) {
		o.maxUntarSize = size
	}
}

// WithTempDir sets the parent directory of scratch directories. The
// default is os.TempDir.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tmpDir = dir
	}
}

func newOptions(opts []Option) options {
	o := options{maxUntarSize: DefaultMaxUntarSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// limitedReader returns an error instead of EOF once more than max bytes
// have been read.
type limitedReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.max > 0 && l.read > l.max {
		return n, fmt.Errorf("decompressed size exceeds the max untar size of %d bytes", l.max)
	}
	return n, err
}

func limit(r io.Reader, max int64) io.Reader {
	if max < 1 {
		return r
	}
	return &limitedReader{r: r, max: max}
}
