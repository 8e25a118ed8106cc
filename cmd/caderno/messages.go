package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caderno-vivo/caderno/internal/model"
)

func messagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List stored messages",
		Long:  `Show stored messages in any status, newest first.`,
		RunE:  runMessages,
	}

	cmd.Flags().String("status", "pending", "status to list (pending, processed, error)")
	return cmd
}

func runMessages(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	statusName, _ := cmd.Flags().GetString("status")
	status, err := parseStatus(statusName)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	msgs, err := store.GetMessagesByStatus(ctx, status)
	if err != nil {
		return err
	}

	if len(msgs) == 0 {
		fmt.Printf("No messages with status %q.\n", status)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintln(w, "ID\tReceived\tSender\tReason\tMessage")
	for _, msg := range msgs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			msg.ID,
			msg.CreatedAt.Format("2006-01-02 15:04"),
			msg.SourceChannelID,
			orDash(msg.DiscardReason),
			truncate(msg.Content, 48))
	}

	return nil
}

func parseStatus(name string) (model.MessageStatus, error) {
	switch strings.ToLower(name) {
	case "pending":
		return model.StatusPending, nil
	case "processed":
		return model.StatusProcessed, nil
	case "error":
		return model.StatusError, nil
	default:
		return "", fmt.Errorf("invalid status: %s (want pending, processed or error)", name)
	}
}
