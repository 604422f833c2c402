// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/canonical/academy-ledger/internal/version"
	"github.com/canonical/academy-ledger/pkg/status"
)

var remoteVersion bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Get the application's version",
	Long:  `Get the application's version, or with --remote the version of the server at --endpoint`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !remoteVersion {
			fmt.Printf("App Version: %s\n", version.Version)
			return nil
		}

		v := new(status.Version)
		if err := newLedgerClient().do(cmd.Context(), http.MethodGet, "/api/v0/version", nil, v); err != nil {
			return fmt.Errorf("failed to get server version: %w", err)
		}

		fmt.Printf("Server Version: %s\n", v.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&remoteVersion, "remote", false, "Query the server version")
}
