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
	"io"

	"github.com/fluxcd/pkg/tar"
)

// Untar writes the plain tar stream read from r into dir. Symbolic links
// are skipped: the library is looked up among regular files, where
// FindLibrary falls back to the versioned file a link would point to.
func Untar(r io.Reader, dir string, opts ...Option) error {
	o := newOptions(opts)
	maxSize := tar.UnlimitedUntarSize
	if o.maxUntarSize > 0 {
		maxSize = int(o.maxUntarSize)
	}
	return tar.Untar(limit(r, o.maxUntarSize), dir,
		tar.WithMaxUntarSize(maxSize),
		tar.WithSkipGzip(),
		tar.WithSkipSymlinks())
}
