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

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluxcd/adbc-driver-fetch/conda"
	"github.com/fluxcd/adbc-driver-fetch/config"
	"github.com/fluxcd/adbc-driver-fetch/masktoken"
	"github.com/fluxcd/adbc-driver-fetch/platform"
	"github.com/fluxcd/adbc-driver-fetch/pypi"
	"github.com/fluxcd/adbc-driver-fetch/version"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print where the driver would be fetched from and installed to",
	Long: `The resolve command prints the platform variant, the artifact location
and the destination of the driver library without any network access.`,
	Example: `  # Show the conda package URL for Linux on ARM
  adbc-fetch resolve --source=conda --target=aarch64-unknown-linux-gnu`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

var resolveArgs struct {
	options config.Options
}

func init() {
	resolveArgs.options.BindFlags(resolveCmd.Flags())
	rootCmd.AddCommand(resolveCmd)
}

type resolution struct {
	Platform    string `yaml:"platform"`
	Source      string `yaml:"source"`
	Version     string `yaml:"version"`
	Artifact    string `yaml:"artifact"`
	Metadata    string `yaml:"metadata,omitempty"`
	URL         string `yaml:"url,omitempty"`
	LibFilename string `yaml:"libFilename"`
	ArchivePath string `yaml:"archivePath,omitempty"`
	LibPath     string `yaml:"libPath"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	opts := resolveArgs.options
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	res, err := resolve(opts)
	if err != nil {
		return err
	}
	return writeResolution(cmd.OutOrStdout(), res)
}

func resolve(opts config.Options) (*resolution, error) {
	variant, err := platform.Resolve(opts.Target)
	if err != nil {
		return nil, err
	}
	dest, err := opts.OutputPath(variant.LibFilename)
	if err != nil {
		return nil, err
	}

	res := &resolution{
		Platform:    variant.Platform,
		Source:      opts.Source,
		Version:     opts.Version,
		LibFilename: variant.LibFilename,
		LibPath:     dest,
	}
	switch opts.Source {
	case config.SourcePyPI:
		client := pypi.NewClient(opts.IndexURL, nil)
		if opts.Version == version.Latest {
			// The release is only known once the index was queried.
			res.Artifact = variant.WheelFilename("<version>")
			res.Metadata = client.ProjectURL(platform.WheelProject)
			break
		}
		res.Artifact = variant.WheelFilename(opts.Version)
		res.Metadata = client.ReleaseURL(platform.WheelProject, opts.Version)
	case config.SourceConda:
		res.Artifact = variant.CondaFilename(opts.Version, opts.Build)
		res.URL = conda.ArtifactURL(opts.Channel, variant, opts.Version, opts.Build)
		res.ArchivePath = variant.LibPath()
		if opts.ChannelVerify {
			res.Metadata = conda.NewClient(opts.Channel, nil).RepoDataURL(variant.CondaSubdir)
		}
	}
	res.Metadata = masktoken.MaskURL(res.Metadata)
	res.URL = masktoken.MaskURL(res.URL)
	return res, nil
}

func writeResolution(w io.Writer, res *resolution) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}
