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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"

	"github.com/fluxcd/adbc-driver-fetch/platform"
	"github.com/fluxcd/adbc-driver-fetch/publish"
	"github.com/fluxcd/adbc-driver-fetch/version"
)

const (
	// SourcePyPI selects the wheel published on a PyPI style index.
	SourcePyPI = "pypi"

	// SourceConda selects the package published on a conda channel.
	SourceConda = "conda"
)

// Options contains the configuration settings of a driver fetch.
type Options struct {
	// Target is the platform identifier the driver is fetched for.
	Target string `json:"target"`

	// Source is the package registry kind, 'pypi' or 'conda'.
	Source string `json:"source"`

	// Version is the driver release, or 'latest'.
	Version string `json:"version"`

	// VersionConstraint is the semver range 'latest' is resolved within.
	VersionConstraint string `json:"versionConstraint"`

	// LibPath is an explicit destination, either a directory or a file path.
	LibPath string `json:"libPath"`

	// OutDir is the directory the library is placed in when LibPath is unset.
	OutDir string `json:"outDir"`

	// IndexURL is the base URL of the JSON API of the package index.
	IndexURL string `json:"indexURL"`

	// Channel is the base URL of the conda channel.
	Channel string `json:"channel"`

	// Build is the conda build string of the package.
	Build string `json:"build"`

	// ChannelVerify enables checksum verification of conda packages
	// against the channel repodata.
	ChannelVerify bool `json:"channelVerify"`

	// Token is sent as bearer token to the index or channel.
	Token string `json:"-"`

	// MirrorHost replaces the host of every request URL.
	MirrorHost string `json:"mirrorHost"`

	// Retries is the number of retries of a failed request.
	Retries int `json:"retries"`

	// Timeout bounds a single request, including reading the body.
	Timeout time.Duration `json:"timeout"`

	// MaxDownloadSize is the maximum number of bytes downloaded per request.
	MaxDownloadSize int64 `json:"maxDownloadSize"`

	// MaxUntarSize is the maximum number of bytes decompressed from an archive.
	MaxUntarSize int64 `json:"maxUntarSize"`

	// OutputFormat is the format the outputs are published in.
	OutputFormat string `json:"outputFormat"`

	// OutputFile is the file the outputs are written to, stdout if empty.
	OutputFile string `json:"outputFile"`

	// GoPackage is the package clause of the generated Go file.
	GoPackage string `json:"goPackage"`

	// envErrs holds the environment values BindFlags could not parse.
	envErrs []error
}

// Validate returns an error describing every invalid setting.
func (o *Options) Validate() error {
	var result error
	for _, err := range o.envErrs {
		result = multierror.Append(result, err)
	}
	if _, err := platform.Resolve(o.Target); err != nil {
		result = multierror.Append(result, err)
	}
	switch o.Source {
	case SourcePyPI:
		if o.IndexURL == "" {
			result = multierror.Append(result, errors.New("index URL must be set for source 'pypi'"))
		}
	case SourceConda:
		if o.Channel == "" {
			result = multierror.Append(result, errors.New("channel must be set for source 'conda'"))
		}
		if o.Build == "" {
			result = multierror.Append(result, errors.New("build must be set for source 'conda'"))
		}
		if o.Version == version.Latest {
			result = multierror.Append(result, errors.New("version 'latest' is only supported for source 'pypi'"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown source '%s' (must be one of: %q)", o.Source, []string{SourcePyPI, SourceConda}))
	}
	if o.Version == "" {
		result = multierror.Append(result, errors.New("version must be set"))
	} else if err := version.Validate(o.Version); err != nil {
		result = multierror.Append(result, err)
	}
	if o.VersionConstraint != "" {
		if _, err := semver.NewConstraint(o.VersionConstraint); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid version constraint '%s': %w", o.VersionConstraint, err))
		}
	}
	if o.LibPath == "" && o.OutDir == "" {
		result = multierror.Append(result, errors.New("one of lib path or out dir must be set"))
	}
	if o.Retries < 0 {
		result = multierror.Append(result, fmt.Errorf("retries must not be negative, got %d", o.Retries))
	}
	if o.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must be positive, got %s", o.Timeout))
	}
	if o.OutputFormat != "" {
		if err := publish.ValidateFormat(o.OutputFormat); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// OutputPath returns the absolute destination of the library named
// libFilename. An explicit LibPath naming an existing directory receives
// the library under its own name; any other LibPath is the file path.
// Without LibPath the library is placed in OutDir.
func (o *Options) OutputPath(libFilename string) (string, error) {
	p := filepath.Join(o.OutDir, libFilename)
	if o.LibPath != "" {
		p = o.LibPath
		if fi, err := os.Stat(o.LibPath); err == nil && fi.IsDir() {
			p = filepath.Join(o.LibPath, libFilename)
		}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid library path '%s': %w", p, err)
	}
	return abs, nil
}
