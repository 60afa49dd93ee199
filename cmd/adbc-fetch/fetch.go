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
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxcd/adbc-driver-fetch/config"
	"github.com/fluxcd/adbc-driver-fetch/driver"
	"github.com/fluxcd/adbc-driver-fetch/publish"
	"github.com/fluxcd/adbc-driver-fetch/storage"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the driver library and publish its path and version",
	Long: `The fetch command resolves the driver artifact of the target platform,
downloads it with retries, verifies its checksum, extracts the library and
installs it at the destination. A non-empty library already present at the
destination is reused without any network access.`,
	Example: `  # Fetch the driver of the host platform into ./lib and print KEY=VALUE pairs
  adbc-fetch fetch --out-dir=./lib

  # Fetch from conda-forge for Apple silicon, verifying the package checksum
  adbc-fetch fetch --source=conda --target=aarch64-apple-darwin --channel-verify

  # Generate a Go file with the library path as a constant
  adbc-fetch fetch --output-format=go --go-package=flightsql --output-file=zz_driver.go`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var fetchArgs struct {
	options config.Options
}

func init() {
	fetchArgs.options.BindFlags(fetchCmd.Flags())
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := setupSignalHandler()

	opts := fetchArgs.options
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	result, err := driver.NewResolver(opts).Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch ADBC FlightSQL driver: %w", err)
	}

	out := publish.Outputs{
		LibPath:  result.LibPath,
		Version:  result.Version,
		Platform: result.Variant.Platform,
		Source:   result.Source,
		Digest:   result.Digest,
	}
	return writeOutputs(cmd.OutOrStdout(), opts, out)
}

func writeOutputs(stdout io.Writer, opts config.Options, out publish.Outputs) error {
	pubOpts := publish.Options{GoPackage: opts.GoPackage}
	// Set by go generate to the file holding the directive.
	if f := os.Getenv("GOFILE"); f != "" {
		pubOpts.RerunFiles = []string{f}
	}

	if opts.OutputFile == "" {
		return publish.Write(stdout, opts.OutputFormat, out, pubOpts)
	}

	var buf bytes.Buffer
	if err := publish.Write(&buf, opts.OutputFormat, out, pubOpts); err != nil {
		return err
	}
	if _, err := storage.AtomicWriteFile(opts.OutputFile, &buf, 0o644); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}
	return nil
}
