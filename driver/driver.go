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

// Package driver resolves the native ADBC FlightSQL driver library for a
// target platform: it locates the release artifact on a package registry,
// downloads and verifies it, extracts the library and installs it at a
// deterministic path.
package driver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"

	"github.com/fluxcd/adbc-driver-fetch/archive"
	"github.com/fluxcd/adbc-driver-fetch/conda"
	"github.com/fluxcd/adbc-driver-fetch/config"
	"github.com/fluxcd/adbc-driver-fetch/digest"
	"github.com/fluxcd/adbc-driver-fetch/http/fetch"
	"github.com/fluxcd/adbc-driver-fetch/logger"
	"github.com/fluxcd/adbc-driver-fetch/platform"
	"github.com/fluxcd/adbc-driver-fetch/pypi"
	"github.com/fluxcd/adbc-driver-fetch/storage"
	"github.com/fluxcd/adbc-driver-fetch/version"
)

// Getter downloads the content at a URL.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Result describes the installed driver library.
type Result struct {
	// LibPath is the absolute path of the library.
	LibPath string

	// Version is the driver release the library belongs to.
	Version string

	// Variant is the platform variant the library was resolved for.
	Variant platform.Variant

	// Source is the registry kind the library was fetched from.
	Source string

	// Digest is the checksum of the installed library, empty when the
	// library was already present.
	Digest string

	// Cached is true when an existing library was reused without any
	// network access.
	Cached bool
}

// Resolver fetches the driver library as configured by its Options.
type Resolver struct {
	opts   config.Options
	getter Getter
	tmpDir string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGetter replaces the HTTP fetcher built from the Options.
func WithGetter(g Getter) Option {
	return func(r *Resolver) {
		r.getter = g
	}
}

// WithTempDir sets the parent directory of the scratch directory conda
// packages are unpacked in.
func WithTempDir(dir string) Option {
	return func(r *Resolver) {
		r.tmpDir = dir
	}
}

// NewResolver returns a Resolver for the given Options, which are
// expected to be valid.
func NewResolver(opts config.Options, options ...Option) *Resolver {
	r := &Resolver{opts: opts}
	for _, o := range options {
		o(r)
	}
	return r
}

// Resolve runs the pipeline and returns the installed library. When a
// non-empty library already exists at the destination it is returned as
// is: no request is made and nothing is extracted or verified again. The
// reported version is then the one recorded at install time, falling back
// to the configured version for libraries placed by other means.
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	log := logr.FromContextOrDiscard(ctx)

	variant, err := platform.Resolve(r.opts.Target)
	if err != nil {
		return nil, err
	}
	dest, err := r.opts.OutputPath(variant.LibFilename)
	if err != nil {
		return nil, err
	}
	log = log.WithValues("platform", variant.Platform, "source", r.opts.Source, "path", dest)

	unlock, err := storage.Lock(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to lock '%s': %w", dest, err)
	}
	defer unlock()

	result := &Result{
		LibPath: dest,
		Version: r.opts.Version,
		Variant: variant,
		Source:  r.opts.Source,
	}

	cached, err := storage.Cached(dest)
	if err != nil {
		return nil, err
	}
	if cached {
		installed, err := storage.InstalledVersion(dest)
		if err != nil {
			return nil, err
		}
		switch {
		case installed != "":
			if r.opts.Version != version.Latest && installed != r.opts.Version {
				log.Info("keeping installed driver library of another version, remove it to fetch the configured one",
					"installed", installed, "configured", r.opts.Version)
			}
			result.Version = installed
		case r.opts.Version == version.Latest:
			return nil, fmt.Errorf("driver library at '%s' has no recorded version to resolve '%s' to: "+
				"set an explicit version or remove the library", dest, version.Latest)
		}
		log.V(logger.DebugLevel).Info("driver library already present, skipping download", "version", result.Version)
		result.Cached = true
		return result, nil
	}

	getter := r.getter
	if getter == nil {
		getter = r.newFetcher(log)
	}

	var entry *archive.Entry
	switch r.opts.Source {
	case config.SourcePyPI:
		entry, result.Version, err = r.fromIndex(ctx, log, getter, variant)
	case config.SourceConda:
		entry, err = r.fromChannel(ctx, log, getter, variant)
	default:
		err = fmt.Errorf("unknown source '%s'", r.opts.Source)
	}
	if err != nil {
		return nil, err
	}

	lib, err := storage.Install(dest, bytes.NewReader(entry.Data), result.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to install driver library: %w", err)
	}
	result.Digest = lib.Digest
	log.Info("driver library installed", "version", result.Version, "entry", entry.Name, "digest", lib.Digest)
	return result, nil
}

func (r *Resolver) fromIndex(ctx context.Context, log logr.Logger, getter Getter, variant platform.Variant) (*archive.Entry, string, error) {
	client := pypi.NewClient(r.opts.IndexURL, getter)

	v := r.opts.Version
	if v == version.Latest {
		var constraint *semver.Constraints
		if r.opts.VersionConstraint != "" {
			c, err := semver.NewConstraint(r.opts.VersionConstraint)
			if err != nil {
				return nil, "", fmt.Errorf("invalid version constraint '%s': %w", r.opts.VersionConstraint, err)
			}
			constraint = c
		}
		latest, err := client.Latest(ctx, platform.WheelProject, constraint)
		if err != nil {
			return nil, "", err
		}
		log.V(logger.DebugLevel).Info("resolved latest driver version", "version", latest)
		v = latest
	}

	release, err := client.Release(ctx, platform.WheelProject, v)
	if err != nil {
		return nil, "", err
	}
	file, err := release.FindFile(variant.WheelFilename(v))
	if err != nil {
		return nil, "", err
	}

	log.V(logger.DebugLevel).Info("downloading wheel", "url", file.URL)
	data, err := getter.Get(ctx, file.URL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download wheel: %w", err)
	}
	if err := r.verify(log, data, file.Digests.SHA256); err != nil {
		return nil, "", err
	}

	entry, err := archive.ExtractFromZip(data, variant.LibFilename, r.archiveOptions()...)
	if err != nil {
		return nil, "", err
	}
	return entry, v, nil
}

func (r *Resolver) fromChannel(ctx context.Context, log logr.Logger, getter Getter, variant platform.Variant) (*archive.Entry, error) {
	url := conda.ArtifactURL(r.opts.Channel, variant, r.opts.Version, r.opts.Build)

	var expected string
	if r.opts.ChannelVerify {
		sum, err := conda.NewClient(r.opts.Channel, getter).Checksum(ctx, variant, r.opts.Version, r.opts.Build)
		if err != nil {
			return nil, err
		}
		expected = sum
	}

	log.V(logger.DebugLevel).Info("downloading conda package", "url", url)
	data, err := getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download conda package: %w", err)
	}
	if err := r.verify(log, data, expected); err != nil {
		return nil, err
	}

	return archive.ExtractFromConda(data, variant.LibPath(), r.archiveOptions()...)
}

func (r *Resolver) verify(log logr.Logger, data []byte, expected string) error {
	if expected == "" {
		log.Info("no checksum available for the downloaded artifact, skipping integrity verification")
		return nil
	}
	if err := digest.Verify(data, expected); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	return nil
}

func (r *Resolver) archiveOptions() []archive.Option {
	opts := []archive.Option{archive.WithMaxUntarSize(r.opts.MaxUntarSize)}
	if r.tmpDir != "" {
		opts = append(opts, archive.WithTempDir(r.tmpDir))
	}
	return opts
}

func (r *Resolver) newFetcher(log logr.Logger) *fetch.Fetcher {
	return fetch.NewFetcher(
		fetch.WithRetries(r.opts.Retries),
		fetch.WithTimeout(r.opts.Timeout),
		fetch.WithMaxDownloadSize(r.opts.MaxDownloadSize),
		fetch.WithHostOverride(r.opts.MirrorHost),
		fetch.WithBearerToken(r.opts.Token),
		fetch.WithLogger(log.WithName("fetch")),
	)
}
