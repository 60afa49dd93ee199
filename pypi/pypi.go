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

// Package pypi reads release metadata from a package index implementing
// the PyPI JSON API.
package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/fluxcd/adbc-driver-fetch/version"
)

// DefaultBaseURL is the JSON API root of the public Python package index.
const DefaultBaseURL = "https://pypi.org/pypi"

// Getter downloads the content at a URL.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Digests holds the checksums advertised for a release file.
type Digests struct {
	SHA256 string `json:"sha256,omitempty"`
}

// File is a downloadable distribution of a release.
type File struct {
	Filename string  `json:"filename"`
	URL      string  `json:"url"`
	Digests  Digests `json:"digests"`
	Yanked   bool    `json:"yanked,omitempty"`
}

// Info holds the project metadata of a release.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Release is the manifest returned by the index for a project version.
// Releases is only populated by the project level endpoint.
type Release struct {
	Info     Info              `json:"info"`
	URLs     []File            `json:"urls"`
	Releases map[string][]File `json:"releases,omitempty"`
}

// MissingArtifactError is returned when a release does not list the
// expected distribution file.
type MissingArtifactError struct {
	Version  string
	Filename string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("release %s missing expected artifact %s", e.Version, e.Filename)
}

// DecodeError is returned when the index response is not a valid manifest.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode release metadata from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FindFile returns the file whose name equals filename exactly.
func (r *Release) FindFile(filename string) (File, error) {
	for _, f := range r.URLs {
		if f.Filename == filename {
			return f, nil
		}
	}
	return File{}, &MissingArtifactError{Version: r.Info.Version, Filename: filename}
}

// Client queries the JSON API of a package index.
type Client struct {
	BaseURL string
	Getter  Getter
}

// NewClient returns a Client for the index at baseURL. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string, getter Getter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Getter:  getter,
	}
}

// ReleaseURL returns the metadata endpoint of the given project version.
func (c *Client) ReleaseURL(project, v string) string {
	return fmt.Sprintf("%s/%s/%s/json", c.BaseURL, project, v)
}

// ProjectURL returns the metadata endpoint of the given project.
func (c *Client) ProjectURL(project string) string {
	return fmt.Sprintf("%s/%s/json", c.BaseURL, project)
}

// Release fetches and decodes the manifest of the given project version.
func (c *Client) Release(ctx context.Context, project, v string) (*Release, error) {
	release, err := c.get(ctx, c.ReleaseURL(project, v))
	if err != nil {
		return nil, err
	}
	if release.Info.Version == "" {
		release.Info.Version = v
	}
	return release, nil
}

// Latest returns the highest released version of the project satisfying
// the constraint. Versions without files, or with only yanked files, are
// ignored.
func (c *Client) Latest(ctx context.Context, project string, constraint *semver.Constraints) (string, error) {
	meta, err := c.get(ctx, c.ProjectURL(project))
	if err != nil {
		return "", err
	}

	var candidates []string
	for v, files := range meta.Releases {
		for _, f := range files {
			if !f.Yanked {
				candidates = append(candidates, v)
				break
			}
		}
	}

	latest, err := version.Highest(constraint, candidates)
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest version of %s: %w", project, err)
	}
	return latest, nil
}

func (c *Client) get(ctx context.Context, url string) (*Release, error) {
	data, err := c.Getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release metadata: %w", err)
	}

	var release Release
	if err := json.Unmarshal(data, &release); err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return &release, nil
}
