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
	"os"
	"path/filepath"
	"strings"
)

// libraryExtensions are the shared library suffixes, longest first.
var libraryExtensions = []string{".dylib", ".dll", ".so"}

// FindLibrary returns the path of the library named filename in dir.
//
// When dir has no regular file (or link to one) of that exact name, the
// directory listing is scanned for versioned variants: entries starting
// with the library stem and carrying the same extension, e.g.
// libfoo.so.1.2 for libfoo.so. The first candidate in listing order wins,
// except that a plain file replaces a symlink chosen before it.
func FindLibrary(dir, filename string) (string, error) {
	exact := filepath.Join(dir, filename)
	if fi, err := os.Stat(exact); err == nil && fi.Mode().IsRegular() {
		return exact, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &EntryNotFoundError{Archive: "package", Filename: filename}
		}
		return "", err
	}

	stem, ext := splitLibraryName(filename)
	var chosen string
	var chosenIsLink bool
	for _, e := range entries {
		if e.IsDir() || !isLibraryVariant(e.Name(), stem, ext) {
			continue
		}
		isLink := e.Type()&os.ModeSymlink != 0
		if chosen == "" {
			chosen, chosenIsLink = e.Name(), isLink
			if !isLink {
				break
			}
			continue
		}
		if chosenIsLink && !isLink {
			chosen, chosenIsLink = e.Name(), false
			break
		}
	}

	if chosen == "" {
		return "", &EntryNotFoundError{Archive: "package", Filename: filename, Searched: len(entries)}
	}
	return filepath.Join(dir, chosen), nil
}

func splitLibraryName(filename string) (stem, ext string) {
	for _, e := range libraryExtensions {
		if strings.HasSuffix(filename, e) {
			return strings.TrimSuffix(filename, e), e
		}
	}
	ext = filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext), ext
}

func isLibraryVariant(name, stem, ext string) bool {
	if !strings.HasPrefix(name, stem) {
		return false
	}
	rest := name[len(stem):]
	if ext == "" {
		return true
	}
	return strings.HasSuffix(rest, ext) || strings.Contains(rest, ext+".")
}
