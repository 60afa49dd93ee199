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

	"github.com/spf13/cobra"

	"github.com/fluxcd/adbc-driver-fetch/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of adbc-fetch and the default driver version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "adbc-fetch: v%s\n", VERSION)
		fmt.Fprintf(cmd.OutOrStdout(), "driver: %s\n", config.DefaultVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
