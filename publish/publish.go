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

// Package publish hands the location and version of the installed
// driver library to the build that consumes it.
package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	// LibPathKey names the absolute path of the installed library.
	LibPathKey = "ADBC_FLIGHTSQL_LIB_PATH"

	// LibVersionKey names the version of the installed library.
	LibVersionKey = "ADBC_FLIGHTSQL_LIB_VERSION"
)

// Formats the outputs can be written in.
const (
	FormatEnv   = "env"
	FormatCargo = "cargo"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatGo    = "go"
)

// Formats returns the supported output formats.
func Formats() []string {
	return []string{FormatEnv, FormatCargo, FormatJSON, FormatYAML, FormatGo}
}

// RerunEnv lists the environment variables whose change invalidates
// the outputs.
var RerunEnv = []string{"ADBC_FLIGHTSQL_VERSION", "ADBC_FLIGHTSQL_LIB_PATH"}

// Outputs are the values published to the consuming build.
type Outputs struct {
	LibPath  string `json:"libPath" yaml:"libPath"`
	Version  string `json:"version" yaml:"version"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
	Digest   string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

// UnknownFormatError is returned for an output format not listed by Formats.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown output format '%s' (must be one of: %q)", e.Format, Formats())
}

// Options configures the written outputs.
type Options struct {
	// GoPackage is the package clause of the generated Go file.
	GoPackage string

	// RerunFiles are the files whose change invalidates the outputs,
	// typically the source of the generator invocation.
	RerunFiles []string
}

// ValidateFormat returns an error if f is not a supported format.
func ValidateFormat(f string) error {
	for _, known := range Formats() {
		if f == known {
			return nil
		}
	}
	return &UnknownFormatError{Format: f}
}

// Write renders the outputs in the given format to w.
func Write(w io.Writer, f string, out Outputs, opts Options) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatEnv:
		data = envFile(out)
	case FormatCargo:
		data = cargoDirectives(out, opts.RerunFiles)
	case FormatJSON:
		data, err = json.MarshalIndent(document{Outputs: out, Inputs: inputs(opts.RerunFiles)}, "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(document{Outputs: out, Inputs: inputs(opts.RerunFiles)})
	case FormatGo:
		data, err = goSource(out, opts)
	default:
		return &UnknownFormatError{Format: f}
	}
	if err != nil {
		return fmt.Errorf("failed to render %s outputs: %w", f, err)
	}
	_, err = w.Write(data)
	return err
}

type document struct {
	Outputs `yaml:",inline"`
	Inputs  []string `json:"inputs" yaml:"inputs"`
}

func inputs(files []string) []string {
	return append(append([]string(nil), RerunEnv...), files...)
}

func envFile(out Outputs) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s=%s\n", LibPathKey, out.LibPath)
	fmt.Fprintf(&b, "%s=%s\n", LibVersionKey, out.Version)
	return b.Bytes()
}

func cargoDirectives(out Outputs, files []string) []byte {
	if len(files) == 0 {
		files = []string{"build.rs"}
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "cargo:rustc-env=%s=%s\n", LibPathKey, out.LibPath)
	fmt.Fprintf(&b, "cargo:rustc-env=%s=%s\n", LibVersionKey, out.Version)
	for _, env := range RerunEnv {
		fmt.Fprintf(&b, "cargo:rerun-if-env-changed=%s\n", env)
	}
	for _, f := range files {
		fmt.Fprintf(&b, "cargo:rerun-if-changed=%s\n", f)
	}
	return b.Bytes()
}

var goTemplate = template.Must(template.New("go").Parse(`// Code generated by adbc-fetch. DO NOT EDIT.
// Regenerate when any of these change: {{ .Inputs }}.

package {{ .Package }}

// LibPath is the absolute path of the ADBC FlightSQL driver library{{ with .Platform }} for {{ . }}{{ end }}.
const LibPath = {{ printf "%q" .LibPath }}

// LibVersion is the version of the ADBC FlightSQL driver library.
const LibVersion = {{ printf "%q" .Version }}
`))

func goSource(out Outputs, opts Options) ([]byte, error) {
	pkg := opts.GoPackage
	if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
		return nil, fmt.Errorf("invalid Go package name '%s'", pkg)
	}

	var b bytes.Buffer
	err := goTemplate.Execute(&b, struct {
		Outputs
		Package string
		Inputs  string
	}{
		Outputs: out,
		Package: pkg,
		Inputs:  strings.Join(inputs(opts.RerunFiles), ", "),
	})
	if err != nil {
		return nil, err
	}
	return format.Source(b.Bytes())
}
