package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caderno-vivo/caderno/internal/engine"
)

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Commit a reviewed message to the ledger",
		Long: `Approve turns a message's extracted candidate into a permanent record.
Transactions need a value, category and account; sales need a client.
Fields the extractor missed can be supplied with flags.`,
	}

	cmd.AddCommand(approveTransactionCmd())
	cmd.AddCommand(approveSaleCmd())

	return cmd
}

func approveTransactionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transaction <message-id>",
		Short: "Approve a message as a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			messageID := args[0]

			controller, store, err := initController(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := applyOverrides(cmd, controller, messageID); err != nil {
				return err
			}

			if err := controller.ApproveTransaction(ctx, messageID); err != nil {
				return err
			}

			fmt.Printf("Transaction approved for message %s.\n", messageID)
			return nil
		},
	}

	addCandidateFlags(cmd)
	return cmd
}

func approveSaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sale <message-id>",
		Short: "Approve a message as a sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			messageID := args[0]

			controller, store, err := initController(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := applyOverrides(cmd, controller, messageID); err != nil {
				return err
			}

			if err := controller.ApproveSale(ctx, messageID); err != nil {
				return err
			}

			fmt.Printf("Sale approved for message %s.\n", messageID)
			return nil
		},
	}

	addCandidateFlags(cmd)
	return cmd
}

func addCandidateFlags(cmd *cobra.Command) {
	cmd.Flags().String("value", "", "override the extracted value (decimal comma, e.g. 150,00)")
	cmd.Flags().String("date", "", "override the extracted date (YYYY-MM-DD)")
	cmd.Flags().String("description", "", "override the extracted description")
	cmd.Flags().String("category", "", "category id for the record")
	cmd.Flags().String("account", "", "account id for the record")
	cmd.Flags().String("client", "", "client id for the record")
	cmd.Flags().String("weight", "", "override the extracted weight in grams")
	cmd.Flags().String("shipping", "", "override the extracted shipping cost")
}

// applyOverrides copies any candidate flags the reviewer set onto the loaded
// item before committing.
func applyOverrides(cmd *cobra.Command, controller *engine.Controller, messageID string) error {
	item, ok := controller.Item(messageID)
	if !ok {
		return fmt.Errorf("message %s is not in the triage queues", messageID)
	}

	candidate := item.Candidate
	changed := false

	overrides := map[string]*string{
		"value":       &candidate.Value,
		"date":        &candidate.Date,
		"description": &candidate.Description,
		"category":    &candidate.CategoryID,
		"account":     &candidate.AccountID,
		"client":      &candidate.ClientID,
		"weight":      &candidate.Weight,
		"shipping":    &candidate.Shipping,
	}
	for flag, field := range overrides {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*field = v
			changed = true
		}
	}

	if !changed {
		return nil
	}
	return controller.SetCandidate(messageID, candidate)
}
