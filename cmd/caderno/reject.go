package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// discardReasons is the fixed list of rejection reasons; "other" opens the
// free-text path.
var discardReasons = map[string]string{
	"nao-financeiro": "Não é um lançamento financeiro",
	"duplicada":      "Mensagem duplicada",
	"spam":           "Spam ou propaganda",
	"teste":          "Mensagem de teste",
}

func rejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <message-id>",
		Short: "Discard a message from the triage queues",
		Long: `Mark a message as discarded. Rejected messages stay in the discard queue
and can be brought back with the restore command.

Reasons: nao-financeiro, duplicada, spam, teste, or "other" together with
--other-text for anything else. Without a reason a default placeholder is
stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reasonKey, _ := cmd.Flags().GetString("reason")
			otherText, _ := cmd.Flags().GetString("other-text")
			reason, err := resolveDiscardReason(reasonKey, otherText)
			if err != nil {
				return err
			}

			controller, store, err := initController(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := controller.Reject(ctx, args[0], reason); err != nil {
				return err
			}

			fmt.Printf("Message %s discarded.\n", args[0])
			return nil
		},
	}

	cmd.Flags().String("reason", "", "discard reason (nao-financeiro, duplicada, spam, teste, other)")
	cmd.Flags().String("other-text", "", `free-text reason, used with --reason other`)
	return cmd
}

func resolveDiscardReason(key, otherText string) (string, error) {
	switch {
	case key == "":
		return "", nil
	case key == "other":
		if strings.TrimSpace(otherText) == "" {
			return "", fmt.Errorf(`--reason other requires --other-text`)
		}
		return strings.TrimSpace(otherText), nil
	default:
		label, ok := discardReasons[strings.ToLower(key)]
		if !ok {
			return "", fmt.Errorf("invalid reason: %s (want nao-financeiro, duplicada, spam, teste or other)", key)
		}
		return label, nil
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <message-id>",
		Short: "Return a discarded message to triage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			controller, store, err := initController(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := controller.Restore(ctx, args[0]); err != nil {
				return err
			}

			fmt.Printf("Message %s restored to triage.\n", args[0])
			return nil
		},
	}
}

func clearDiscardedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-discarded",
		Short: "Permanently delete all discarded messages",
		Long: `Delete every message in the discard queue. This is a destructive
operation; the messages cannot be restored afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			force, _ := cmd.Flags().GetBool("force")

			controller, store, err := initController(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if !force {
				fmt.Print("Permanently delete all discarded messages? [y/N]: ")
				var response string
				if _, err := fmt.Fscanln(os.Stdin, &response); err != nil {
					slog.Debug("failed to read confirmation", "error", err)
				}
				if strings.ToLower(strings.TrimSpace(response)) != "y" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			count, err := controller.ClearDiscarded(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Deleted %d discarded messages.\n", count)
			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")
	return cmd
}
