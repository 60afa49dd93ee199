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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fluxcd/adbc-driver-fetch/conda"
	"github.com/fluxcd/adbc-driver-fetch/platform"
	"github.com/fluxcd/adbc-driver-fetch/pypi"
)

const (
	indexPrefix   = "pypi"
	filesPrefix   = "files"
	channelPrefix = "conda"
)

// NewTempRegistryServer returns a RegistryServer with a newly created temp
// dir as the docroot.
func NewTempRegistryServer() (*RegistryServer, error) {
	srv, err := NewTempHTTPServer()
	if err != nil {
		return nil, err
	}
	return &RegistryServer{srv}, nil
}

// RegistryServer is an HTTP server for testing purposes that mimics the
// JSON API of a Python package index and the layout of a conda channel.
// Artifacts are published as static files in the docroot.
type RegistryServer struct {
	*HTTPServer
}

// IndexURL returns the base URL of the package index JSON API.
func (s *RegistryServer) IndexURL() string {
	return s.URL() + "/" + indexPrefix
}

// ChannelURL returns the base URL of the conda channel.
func (s *RegistryServer) ChannelURL() string {
	return s.URL() + "/" + channelPrefix
}

// PublishWheel stores the wheel and lists it, with the given sha256
// digest, in the release manifest of the project version and in the
// project manifest. The server must be started.
func (s *RegistryServer) PublishWheel(project, version, filename string, data []byte, sha256 string) error {
	if s.URL() == "" {
		return errors.New("server must be started to be able to publish a wheel")
	}

	if err := s.writeFile(filepath.Join(filesPrefix, filename), data); err != nil {
		return err
	}
	file := pypi.File{
		Filename: filename,
		URL:      fmt.Sprintf("%s/%s/%s", s.URL(), filesPrefix, filename),
		Digests:  pypi.Digests{SHA256: sha256},
	}

	releasePath := filepath.Join(indexPrefix, project, version, "json")
	var release pypi.Release
	if err := s.readJSON(releasePath, &release); err != nil {
		return err
	}
	release.Info = pypi.Info{Name: project, Version: version}
	release.URLs = append(release.URLs, file)
	if err := s.writeJSON(releasePath, release); err != nil {
		return err
	}

	projectPath := filepath.Join(indexPrefix, project, "json")
	var meta pypi.Release
	if err := s.readJSON(projectPath, &meta); err != nil {
		return err
	}
	if meta.Releases == nil {
		meta.Releases = map[string][]pypi.File{}
	}
	meta.Info = pypi.Info{Name: project, Version: version}
	meta.Releases[version] = append(meta.Releases[version], file)
	return s.writeJSON(projectPath, meta)
}

// PublishCondaPackage stores the package in the channel subdir and lists
// it, with the given sha256 digest, in the subdir repodata.
func (s *RegistryServer) PublishCondaPackage(subdir, filename string, data []byte, sha256 string) error {
	if err := s.writeFile(filepath.Join(channelPrefix, subdir, filename), data); err != nil {
		return err
	}

	repodataPath := filepath.Join(channelPrefix, subdir, "repodata.json")
	var rd conda.RepoData
	if err := s.readJSON(repodataPath, &rd); err != nil {
		return err
	}
	if rd.PackagesConda == nil {
		rd.PackagesConda = map[string]conda.PackageRecord{}
	}
	rd.PackagesConda[filename] = conda.PackageRecord{
		Name:   platform.CondaPackage,
		SHA256: sha256,
		Size:   int64(len(data)),
	}
	return s.writeJSON(repodataPath, rd)
}

func (s *RegistryServer) writeFile(rel string, data []byte) error {
	p := filepath.Join(s.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// readJSON decodes the docroot file into v, leaving v untouched when the
// file does not exist yet.
func (s *RegistryServer) readJSON(rel string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.Root(), rel))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *RegistryServer) writeJSON(rel string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.writeFile(rel, data)
}
