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

// Package conda locates driver packages on a conda channel.
package conda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fluxcd/adbc-driver-fetch/platform"
)

// DefaultChannel is the channel the driver is published to.
const DefaultChannel = "https://conda.anaconda.org/conda-forge"

// Getter downloads the content at a URL.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// PackageRecord is the repodata entry of a single package file.
type PackageRecord struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Build   string `json:"build"`
	SHA256  string `json:"sha256,omitempty"`
	MD5     string `json:"md5,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

// RepoData is the index of a channel subdirectory.
type RepoData struct {
	Packages      map[string]PackageRecord `json:"packages"`
	PackagesConda map[string]PackageRecord `json:"packages.conda"`
}

// MissingPackageError is returned when the repodata of a channel does not
// list the expected package file.
type MissingPackageError struct {
	Subdir   string
	Filename string
}

func (e *MissingPackageError) Error() string {
	return fmt.Sprintf("channel subdir %s missing expected package %s", e.Subdir, e.Filename)
}

// Find returns the record of the given package file.
func (r *RepoData) Find(subdir, filename string) (PackageRecord, error) {
	if rec, ok := r.PackagesConda[filename]; ok {
		return rec, nil
	}
	if rec, ok := r.Packages[filename]; ok {
		return rec, nil
	}
	return PackageRecord{}, &MissingPackageError{Subdir: subdir, Filename: filename}
}

// ArtifactURL returns the download URL of the driver package for the
// given variant. No request is made: the URL is assumed to exist.
func ArtifactURL(channel string, variant platform.Variant, version, build string) string {
	return strings.TrimRight(channel, "/") + "/" + variant.CondaSubdir + "/" + variant.CondaFilename(version, build)
}

// Client reads the repodata index of a channel.
type Client struct {
	Channel string
	Getter  Getter
}

// NewClient returns a Client for the given channel. An empty channel
// selects DefaultChannel.
func NewClient(channel string, getter Getter) *Client {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Client{
		Channel: strings.TrimRight(channel, "/"),
		Getter:  getter,
	}
}

// RepoDataURL returns the URL of the repodata index of subdir.
func (c *Client) RepoDataURL(subdir string) string {
	return fmt.Sprintf("%s/%s/repodata.json", c.Channel, subdir)
}

// RepoData fetches and decodes the repodata index of subdir.
func (c *Client) RepoData(ctx context.Context, subdir string) (*RepoData, error) {
	url := c.RepoDataURL(subdir)
	data, err := c.Getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel repodata: %w", err)
	}

	var rd RepoData
	if err := json.Unmarshal(data, &rd); err != nil {
		return nil, fmt.Errorf("failed to decode channel repodata from %s: %w", url, err)
	}
	return &rd, nil
}

// Checksum returns the SHA-256 advertised by the channel for the package
// file of the given variant.
func (c *Client) Checksum(ctx context.Context, variant platform.Variant, version, build string) (string, error) {
	rd, err := c.RepoData(ctx, variant.CondaSubdir)
	if err != nil {
		return "", err
	}
	filename := variant.CondaFilename(version, build)
	rec, err := rd.Find(variant.CondaSubdir, filename)
	if err != nil {
		return "", err
	}
	if rec.SHA256 == "" {
		return "", fmt.Errorf("channel repodata has no sha256 for %s", filename)
	}
	return rec.SHA256, nil
}
