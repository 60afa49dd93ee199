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

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/fluxcd/adbc-driver-fetch/config"
)

func validOptions() config.Options {
	return config.Options{
		Target:   "linux/amd64",
		Source:   config.SourcePyPI,
		Version:  "1.9.0",
		OutDir:   ".",
		IndexURL: "https://pypi.org/pypi",
		Channel:  "https://conda.anaconda.org/conda-forge",
		Retries:  3,
		Timeout:  time.Minute,
	}
}

func Test_Options_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *config.Options)
		wantErr string
	}{
		{
			name:   "valid pypi options",
			mutate: func(o *config.Options) {},
		},
		{
			name:   "valid conda options",
			mutate: func(o *config.Options) { o.Source = config.SourceConda; o.Build = "h3a9b5c8_0" },
		},
		{
			name:    "conda without build",
			mutate:  func(o *config.Options) { o.Source = config.SourceConda },
			wantErr: "build must be set for source 'conda'",
		},
		{
			name:   "latest with constraint",
			mutate: func(o *config.Options) { o.Version = "latest"; o.VersionConstraint = ">=1.8.0 <2.0.0" },
		},
		{
			name:    "unsupported target",
			mutate:  func(o *config.Options) { o.Target = "plan9/386" },
			wantErr: "unsupported target 'plan9/386'",
		},
		{
			name:    "unknown source",
			mutate:  func(o *config.Options) { o.Source = "npm" },
			wantErr: "unknown source 'npm'",
		},
		{
			name:    "unparsable version",
			mutate:  func(o *config.Options) { o.Version = "one" },
			wantErr: "invalid driver version 'one'",
		},
		{
			name:    "empty version",
			mutate:  func(o *config.Options) { o.Version = "" },
			wantErr: "version must be set",
		},
		{
			name:    "latest from a conda channel",
			mutate:  func(o *config.Options) { o.Source = config.SourceConda; o.Version = "latest" },
			wantErr: "only supported for source 'pypi'",
		},
		{
			name:    "invalid constraint",
			mutate:  func(o *config.Options) { o.VersionConstraint = "garbage" },
			wantErr: "invalid version constraint",
		},
		{
			name:    "no destination",
			mutate:  func(o *config.Options) { o.OutDir = "" },
			wantErr: "lib path or out dir",
		},
		{
			name:    "negative retries",
			mutate:  func(o *config.Options) { o.Retries = -1 },
			wantErr: "retries must not be negative",
		},
		{
			name:    "unknown output format",
			mutate:  func(o *config.Options) { o.OutputFormat = "toml" },
			wantErr: "unknown output format 'toml'",
		},
		{
			name:    "zero timeout",
			mutate:  func(o *config.Options) { o.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			o := validOptions()
			tt.mutate(&o)
			err := o.Validate()
			if tt.wantErr == "" {
				g.Expect(err).ToNot(HaveOccurred())
				return
			}
			g.Expect(err).To(HaveOccurred())
			g.Expect(err.Error()).To(ContainSubstring(tt.wantErr))
		})
	}
}

func Test_Options_OutputPath(t *testing.T) {
	dir := t.TempDir()
	existingDir := filepath.Join(dir, "libs")
	if err := os.Mkdir(existingDir, 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		libPath string
		outDir  string
		want    string
	}{
		{
			name:   "out dir when lib path is unset",
			outDir: filepath.Join(dir, "out"),
			want:   filepath.Join(dir, "out", "libadbc_driver_flightsql.so"),
		},
		{
			name:    "existing directory receives the library",
			libPath: existingDir,
			outDir:  filepath.Join(dir, "out"),
			want:    filepath.Join(existingDir, "libadbc_driver_flightsql.so"),
		},
		{
			name:    "any other lib path is the file",
			libPath: filepath.Join(dir, "custom", "driver.so"),
			outDir:  filepath.Join(dir, "out"),
			want:    filepath.Join(dir, "custom", "driver.so"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			o := config.Options{LibPath: tt.libPath, OutDir: tt.outDir}
			got, err := o.OutputPath("libadbc_driver_flightsql.so")
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(got).To(Equal(tt.want))
		})
	}
}

func Test_Options_OutputPath_Absolute(t *testing.T) {
	g := NewWithT(t)

	o := config.Options{OutDir: "relative"}
	got, err := o.OutputPath("libfoo.so")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(filepath.IsAbs(got)).To(BeTrue())
	g.Expect(got).To(HaveSuffix(filepath.Join("relative", "libfoo.so")))
}
