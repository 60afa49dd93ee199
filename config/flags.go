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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/fluxcd/adbc-driver-fetch/conda"
	"github.com/fluxcd/adbc-driver-fetch/http/fetch"
	"github.com/fluxcd/adbc-driver-fetch/platform"
	"github.com/fluxcd/adbc-driver-fetch/pypi"
)

const (
	flagTarget   = "target"
	envTarget    = "ADBC_FLIGHTSQL_TARGET"
	envTargetAlt = "TARGET"

	flagSource    = "source"
	envSource     = "ADBC_FLIGHTSQL_SOURCE"
	defaultSource = SourcePyPI

	flagVersion = "version"
	envVersion  = "ADBC_FLIGHTSQL_VERSION"

	flagVersionConstraint = "version-constraint"
	envVersionConstraint  = "ADBC_FLIGHTSQL_VERSION_CONSTRAINT"

	flagLibPath = "lib-path"
	envLibPath  = "ADBC_FLIGHTSQL_LIB_PATH"

	flagOutDir    = "out-dir"
	envOutDir     = "OUT_DIR"
	defaultOutDir = "."

	flagIndexURL = "index-url"
	envIndexURL  = "ADBC_FLIGHTSQL_INDEX_URL"

	flagChannel = "channel"
	envChannel  = "ADBC_FLIGHTSQL_CHANNEL"

	flagBuild = "build"
	envBuild  = "ADBC_FLIGHTSQL_BUILD"

	flagChannelVerify = "channel-verify"
	envChannelVerify  = "ADBC_FLIGHTSQL_CHANNEL_VERIFY"

	envToken = "ADBC_FLIGHTSQL_TOKEN"

	flagMirrorHost = "mirror-host"
	envMirrorHost  = "ADBC_FLIGHTSQL_MIRROR_HOST"

	flagRetries = "retries"

	flagTimeout = "timeout"
	envTimeout  = "ADBC_FLIGHTSQL_TIMEOUT"

	flagMaxDownloadSize    = "max-download-size"
	defaultMaxDownloadSize = 512 << 20

	flagMaxUntarSize    = "max-untar-size"
	defaultMaxUntarSize = 1 << 30

	flagOutputFormat    = "output-format"
	defaultOutputFormat = "env"

	flagOutputFile = "output-file"

	flagGoPackage    = "go-package"
	defaultGoPackage = "driver"
)

// DefaultVersion is the driver release fetched when none is configured.
const DefaultVersion = "1.9.0"

// EnvVars lists the environment variables the options are read from.
var EnvVars = []string{
	envTarget, envTargetAlt, envSource, envVersion, envVersionConstraint,
	envLibPath, envOutDir, envIndexURL, envChannel, envBuild,
	envChannelVerify, envToken, envMirrorHost, envTimeout,
}

// BindFlags will parse the given pflag.FlagSet and set the Options accordingly.
// Defaults are taken from the environment, so flags take precedence over it.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Target, flagTarget,
		envOrDefault(envTarget, envOrDefault(envTargetAlt, platform.Host())),
		"The platform the driver is fetched for, e.g. 'linux/amd64' or 'x86_64-unknown-linux-gnu'.")

	fs.StringVar(&o.Source, flagSource,
		envOrDefault(envSource, defaultSource),
		"The package registry the driver is fetched from. Can be 'pypi' or 'conda'.")

	fs.StringVar(&o.Version, flagVersion,
		envOrDefault(envVersion, DefaultVersion),
		"The driver version, or 'latest' to resolve the highest release on the index.")

	fs.StringVar(&o.VersionConstraint, flagVersionConstraint,
		envOrDefault(envVersionConstraint, ""),
		"The semver range 'latest' is resolved within, e.g. '>=1.8.0 <2.0.0'.")

	fs.StringVar(&o.LibPath, flagLibPath,
		envOrDefault(envLibPath, ""),
		"The destination of the library. An existing directory receives the library under its own name.")

	fs.StringVar(&o.OutDir, flagOutDir,
		envOrDefault(envOutDir, defaultOutDir),
		"The directory the library is placed in when no lib path is set.")

	fs.StringVar(&o.IndexURL, flagIndexURL,
		envOrDefault(envIndexURL, pypi.DefaultBaseURL),
		"The base URL of the JSON API of the package index.")

	fs.StringVar(&o.Channel, flagChannel,
		envOrDefault(envChannel, conda.DefaultChannel),
		"The base URL of the conda channel.")

	fs.StringVar(&o.Build, flagBuild,
		envOrDefault(envBuild, ""),
		"The conda build string of the package, e.g. 'h3a9b5c8_0'. Required for source 'conda'.")

	fs.BoolVar(&o.ChannelVerify, flagChannelVerify,
		o.boolEnvOrDefault(envChannelVerify, false),
		"Verify conda packages against the checksum advertised in the channel repodata.")

	fs.StringVar(&o.MirrorHost, flagMirrorHost,
		envOrDefault(envMirrorHost, ""),
		"The host all requests are sent to instead of the one in the URL.")

	fs.IntVar(&o.Retries, flagRetries,
		fetch.DefaultRetries,
		"The number of retries of a failed request.")

	fs.DurationVar(&o.Timeout, flagTimeout,
		o.durationEnvOrDefault(envTimeout, fetch.DefaultTimeout),
		"The timeout of a single request.")

	fs.Int64Var(&o.MaxDownloadSize, flagMaxDownloadSize,
		defaultMaxDownloadSize,
		"The maximum number of bytes downloaded per request. Zero disables the limit.")

	fs.Int64Var(&o.MaxUntarSize, flagMaxUntarSize,
		defaultMaxUntarSize,
		"The maximum number of bytes decompressed from an archive. Zero disables the limit.")

	fs.StringVar(&o.OutputFormat, flagOutputFormat,
		defaultOutputFormat,
		"The format of the published outputs. Can be 'env', 'cargo', 'json', 'yaml' or 'go'.")

	fs.StringVar(&o.OutputFile, flagOutputFile,
		"",
		"The file the outputs are written to, defaults to stdout.")

	fs.StringVar(&o.GoPackage, flagGoPackage,
		defaultGoPackage,
		"The package name of the generated file when the output format is 'go'.")

	o.Token = os.Getenv(envToken)
}

// envOrDefault returns the value of the environment variable named by the key.
// If the variable is empty or not present, it returns the defaultValue instead.
func envOrDefault(envName, defaultValue string) string {
	ret := os.Getenv(envName)
	if ret != "" {
		return ret
	}

	return defaultValue
}

// boolEnvOrDefault is envOrDefault for bool values. A value that does not
// parse is recorded for Validate and the defaultValue is returned.
func (o *Options) boolEnvOrDefault(envName string, defaultValue bool) bool {
	val := os.Getenv(envName)
	if val == "" {
		return defaultValue
	}
	ret, err := strconv.ParseBool(val)
	if err != nil {
		o.envErrs = append(o.envErrs, fmt.Errorf("invalid value '%s' for %s: %w", val, envName, err))
		return defaultValue
	}
	return ret
}

// durationEnvOrDefault is envOrDefault for time.Duration values. A value
// that does not parse is recorded for Validate and the defaultValue is
// returned.
func (o *Options) durationEnvOrDefault(envName string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(envName)
	if val == "" {
		return defaultValue
	}
	ret, err := time.ParseDuration(val)
	if err != nil {
		o.envErrs = append(o.envErrs, fmt.Errorf("invalid value '%s' for %s: %w", val, envName, err))
		return defaultValue
	}
	return ret
}
