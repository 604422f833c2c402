// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/canonical/academy-ledger/pkg/audit"
)

var (
	auditOrgID string
	auditLimit uint64
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
}

var listAuditCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("limit", strconv.FormatUint(auditLimit, 10))
		if auditOrgID != "" {
			q.Set("org_id", auditOrgID)
		}

		resp := new(audit.ListResponse)
		if err := newLedgerClient().do(cmd.Context(), http.MethodGet, "/api/v1/admin/audit-logs?"+q.Encode(), nil, resp); err != nil {
			return fmt.Errorf("failed to list audit logs: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CREATED\tACTOR\tORG\tACTION\tTARGET")
		for _, l := range resp.Logs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s/%s\n",
				l.CreatedAt.Format("2006-01-02 15:04:05"), l.ActorID, lo.FromPtrOr(l.OrgID, "-"), l.Action, l.TargetType, l.TargetID)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(listAuditCmd)

	listAuditCmd.Flags().StringVar(&auditOrgID, "org-id", "", "Only entries of this organization")
	listAuditCmd.Flags().Uint64Var(&auditLimit, "limit", audit.DefaultListLimit, "Number of entries to show")
}
