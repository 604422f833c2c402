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
	"github.com/canonical/academy-ledger/pkg/payments"
)

var (
	paymentStudentID string
	paymentStatus    string
	paymentPage      int64
	paymentSize      int64
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Inspect and cancel payments of the caller's tenant",
}

var listPaymentsCmd = &cobra.Command{
	Use:   "list",
	Short: "List payments",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("page", strconv.FormatInt(paymentPage, 10))
		q.Set("size", strconv.FormatInt(paymentSize, 10))
		if paymentStudentID != "" {
			q.Set("student_id", paymentStudentID)
		}
		if paymentStatus != "" {
			q.Set("status", paymentStatus)
		}

		resp := new(payments.ListResponse)
		if err := newLedgerClient().do(cmd.Context(), http.MethodGet, "/api/v1/payments?"+q.Encode(), nil, resp); err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSTUDENT\tAMOUNT\tMETHOD\tHOURS\tPASS MINUTES\tSTATUS\tCREATED")
		for _, p := range resp.Payments {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.2f\t%d\t%s\t%s\n",
				p.ID, p.StudentName, p.Amount, p.PaymentMethod, p.GrantedClassHours, p.GrantedPassMinutes, p.Status, p.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var getPaymentCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp := new(payments.GetResponse)
		if err := newLedgerClient().do(cmd.Context(), http.MethodGet, "/api/v1/payments/"+url.PathEscape(args[0]), nil, resp); err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}

		p := resp.Payment
		fmt.Printf("Payment %s: %d via %s for %s (%s)\n", p.ID, p.Amount, p.PaymentMethod, p.StudentName, p.Status)
		fmt.Printf("Granted: %.2f class hours, %d pass minutes\n", p.GrantedClassHours, p.GrantedPassMinutes)
		return nil
	},
}

var cancelPaymentCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a payment and roll back the entitlements it granted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := payments.CancelRequest{Status: types.PaymentStatusCancelled}

		resp := new(payments.CancelResponse)
		if err := newLedgerClient().do(cmd.Context(), http.MethodPatch, "/api/v1/payments/"+url.PathEscape(args[0]), req, resp); err != nil {
			return fmt.Errorf("failed to cancel payment: %w", err)
		}

		fmt.Printf("Payment cancelled: %s\n", resp.Payment.ID)
		fmt.Printf("Rolled back: %.2f class hours, %d pass minutes\n", resp.Rollback.Credits, resp.Rollback.PassMinutes)
		if resp.Clipped != nil {
			fmt.Fprintf(os.Stderr, "warning: %.2f class hours and %d pass minutes were already used\n", resp.Clipped.Credits, resp.Clipped.PassMinutes)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paymentCmd)
	paymentCmd.AddCommand(listPaymentsCmd)
	paymentCmd.AddCommand(getPaymentCmd)
	paymentCmd.AddCommand(cancelPaymentCmd)

	listPaymentsCmd.Flags().StringVar(&paymentStudentID, "student-id", "", "Only payments of this student")
	listPaymentsCmd.Flags().StringVar(&paymentStatus, "status", "", "Only payments with this status")
	listPaymentsCmd.Flags().Int64Var(&paymentPage, "page", 1, "Page number")
	listPaymentsCmd.Flags().Int64Var(&paymentSize, "size", 20, "Page size")
}
