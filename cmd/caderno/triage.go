package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caderno-vivo/caderno/internal/engine"
	"github.com/caderno-vivo/caderno/internal/model"
)

func triageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Review the triage queues",
		Long: `Classify every pending message and show the selected queue with its
extracted candidate fields. Approving, rejecting and restoring messages
is done with the approve, reject and restore commands.`,
		RunE: runTriage,
	}

	cmd.Flags().String("queue", "transaction", "queue to show (transaction, sale, discard)")
	cmd.Flags().Int("page", 1, "page of results to show")
	cmd.Flags().Bool("no-refine", false, "skip AI refinement even when configured")
	cmd.Flags().Bool("watch", false, "keep running and re-render when the message store changes")

	return cmd
}

func runTriage(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	queueName, _ := cmd.Flags().GetString("queue")
	page, _ := cmd.Flags().GetInt("page")
	noRefine, _ := cmd.Flags().GetBool("no-refine")
	watch, _ := cmd.Flags().GetBool("watch")

	queue, err := parseQueue(queueName)
	if err != nil {
		return err
	}

	controller, store, err := initController(ctx, !noRefine)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	controller.SetActiveQueue(queue)
	controller.SetPage(page)

	renderQueue(controller, queue)
	if !watch {
		return nil
	}

	// Live mode: the controller reloads on store changes; re-render after
	// each completed reload. Drain the initial load's signal, already
	// rendered above.
	select {
	case <-controller.Updates():
	default:
	}
	go controller.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-controller.Updates():
			renderQueue(controller, queue)
		}
	}
}

func renderQueue(controller *engine.Controller, queue model.Queue) {
	items, page, totalPages := controller.Page()
	if len(items) == 0 {
		fmt.Printf("Queue %q is empty.\n", queue)
		return
	}
	printQueue(queue, items, page, totalPages)
}

func parseQueue(name string) (model.Queue, error) {
	switch strings.ToLower(name) {
	case "transaction":
		return model.QueueTransaction, nil
	case "sale":
		return model.QueueSale, nil
	case "discard":
		return model.QueueDiscard, nil
	default:
		return "", fmt.Errorf("invalid queue: %s (want transaction, sale or discard)", name)
	}
}

func printQueue(queue model.Queue, items []engine.Item, page, totalPages int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "Queue: %s (page %d/%d)\n\n", queue, page, totalPages)
	fmt.Fprintln(w, "ID\tSender\tValue\tDate\tClient\tDescription\tMessage")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 8),
		strings.Repeat("-", 12),
		strings.Repeat("-", 8),
		strings.Repeat("-", 10),
		strings.Repeat("-", 12),
		strings.Repeat("-", 16),
		strings.Repeat("-", 32))

	for _, item := range items {
		sender := item.Message.SourceChannelID
		if item.Sender != nil {
			sender = item.Sender.Name
		}
		client := item.Candidate.ClientID
		value := item.Candidate.Value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			item.Message.ID,
			sender,
			value,
			item.Candidate.Date,
			orDash(client),
			orDash(truncate(item.Candidate.Description, 24)),
			truncate(item.Message.Content, 48))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
