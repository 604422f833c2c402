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

	"github.com/spf13/cobra"

	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/credit"
)

var (
	creditAmount      int64
	creditType        string
	creditDescription string
	creditLimit       uint64
)

var creditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Inspect and adjust organization credit balances",
}

var getCreditCmd = &cobra.Command{
	Use:   "get [org-id]",
	Short: "Show the credit balance and recent transactions of an organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("limit", strconv.FormatUint(creditLimit, 10))

		resp := new(credit.SummaryResponse)
		if err := newLedgerClient().do(cmd.Context(), http.MethodGet, "/api/v1/admin/organizations/"+url.PathEscape(args[0])+"/credit?"+q.Encode(), nil, resp); err != nil {
			return fmt.Errorf("failed to get credit: %w", err)
		}

		fmt.Printf("%s (ID: %s) balance: %d\n", resp.Name, resp.OrgID, resp.CreditBalance)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CREATED\tAMOUNT\tBALANCE\tTYPE\tACTOR\tDESCRIPTION")
		for _, t := range resp.Transactions {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n", t.CreatedAt.Format("2006-01-02 15:04"), t.Amount, t.BalanceAfter, t.Type, t.ActorID, t.Description)
		}
		return w.Flush()
	},
}

var adjustCreditCmd = &cobra.Command{
	Use:   "adjust [org-id]",
	Short: "Apply a signed credit adjustment to an organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := credit.AdjustRequest{
			Amount:      creditAmount,
			CreditType:  types.CreditType(creditType),
			Description: creditDescription,
		}

		resp := new(credit.AdjustResponse)
		if err := newLedgerClient().do(cmd.Context(), http.MethodPost, "/api/v1/admin/organizations/"+url.PathEscape(args[0])+"/credit", req, resp); err != nil {
			return fmt.Errorf("failed to adjust credit: %w", err)
		}

		fmt.Printf("Credit adjusted: %d -> %d (%+d)\n", resp.PreviousBalance, resp.CreditBalance, resp.Amount)
		for _, warning := range resp.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(creditCmd)
	creditCmd.AddCommand(getCreditCmd)
	creditCmd.AddCommand(adjustCreditCmd)

	getCreditCmd.Flags().Uint64Var(&creditLimit, "limit", credit.DefaultTransactionLimit, "Number of transactions to show")

	adjustCreditCmd.Flags().Int64Var(&creditAmount, "amount", 0, "Signed amount to apply")
	adjustCreditCmd.Flags().StringVar(&creditType, "type", string(types.CreditTypePaid), "Credit type (free or paid)")
	adjustCreditCmd.Flags().StringVar(&creditDescription, "description", "", "Reason for the adjustment")
	_ = adjustCreditCmd.MarkFlagRequired("amount")
}
