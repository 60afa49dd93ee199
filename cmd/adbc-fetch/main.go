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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/fluxcd/adbc-driver-fetch/logger"
)

// VERSION is set at build time.
var VERSION = "0.0.0-dev.0"

var rootCmd = &cobra.Command{
	Use:   "adbc-fetch",
	Short: "Fetch the native ADBC FlightSQL driver library for a target platform",
	Long: `adbc-fetch downloads the prebuilt ADBC FlightSQL driver shared library
from a Python package index or a conda channel, verifies and extracts it, and
publishes its path and version to the build that links or loads it.

Use it from a go:generate directive:

  //go:generate go run github.com/fluxcd/adbc-driver-fetch/cmd/adbc-fetch fetch --output-format=go --output-file=zz_driver.go`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootArgs.logOptions.Validate(); err != nil {
			return err
		}
		log = logger.NewLogger(rootArgs.logOptions)
		return nil
	},
}

var rootArgs struct {
	logOptions logger.Options
}

var log = logr.Discard()

func init() {
	rootArgs.logOptions.BindFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if log.GetSink() == nil {
			log = logger.NewLogger(logger.Options{LogEncoding: "console", LogLevel: "error"})
		}
		log.Error(err, "command failed")
		os.Exit(1)
	}
}

// setupSignalHandler returns a context carrying the logger that is
// canceled on SIGTERM or SIGINT. A second signal terminates the program.
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()

	return logr.NewContext(ctx, log)
}
