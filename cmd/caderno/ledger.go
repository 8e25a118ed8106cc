package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func ledgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <message-id>",
		Short: "Show ledger records created from a message",
		Long: `Audit what a message turned into: every transaction and sale record
carrying the given message id as its source.`,
		Args: cobra.ExactArgs(1),
		RunE: runLedger,
	}
}

func runLedger(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	messageID := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	transactions, err := store.GetTransactionsBySourceMessage(ctx, messageID)
	if err != nil {
		return err
	}
	sales, err := store.GetSalesBySourceMessage(ctx, messageID)
	if err != nil {
		return err
	}

	if len(transactions) == 0 && len(sales) == 0 {
		fmt.Printf("No ledger records reference message %s.\n", messageID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	if len(transactions) > 0 {
		fmt.Fprintln(w, "Transactions:")
		fmt.Fprintln(w, "ID\tDate\tType\tValue\tCategory\tAccount\tClient\tDescription")
		for _, r := range transactions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\n",
				r.ID,
				r.Date.Format("2006-01-02"),
				r.Type,
				r.Value,
				r.CategoryID,
				r.AccountID,
				orDash(r.ClientID),
				r.Description)
		}
	}

	if len(sales) > 0 {
		if len(transactions) > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "Sales:")
		fmt.Fprintln(w, "ID\tCode\tDate\tValue\tWeight\tShipping\tClient\tSeller")
		for _, r := range sales {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
				r.ID,
				r.Code,
				r.Date.Format("2006-01-02"),
				r.Value,
				r.Weight,
				r.Shipping,
				r.ClientID,
				r.Seller)
		}
	}

	return nil
}
