// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	endpoint    string
	accessToken string
	serviceKey  string
	tenantSlug  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "academy-ledger",
	Short: "Academy Ledger",
	Long:  `Academy Ledger CLI for running the billing service and managing credits and payments.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "http://localhost:8080", "HTTP server endpoint")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", os.Getenv("ACADEMY_LEDGER_TOKEN"), "Bearer access token")
	rootCmd.PersistentFlags().StringVar(&serviceKey, "service-key", "", "Service key for server-to-server calls")
	rootCmd.PersistentFlags().StringVar(&tenantSlug, "tenant", "", "Tenant slug used with --service-key")
}
