package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/caderno-vivo/caderno/internal/model"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo reference data and sample messages",
		Long: `Insert a small set of categories, accounts, clients and pending messages
so the triage flow can be tried without a live message source.`,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	categories := []model.Category{
		{ID: uuid.NewString(), Name: "Fornecedores"},
		{ID: uuid.NewString(), Name: "Despesas Fixas"},
		{ID: uuid.NewString(), Name: "Vendas"},
	}
	for i := range categories {
		if err := store.SaveCategory(ctx, &categories[i]); err != nil {
			return fmt.Errorf("failed to seed category: %w", err)
		}
	}

	accounts := []model.Account{
		{ID: uuid.NewString(), Name: "Caixa"},
		{ID: uuid.NewString(), Name: "Conta PJ"},
	}
	for i := range accounts {
		if err := store.SaveAccount(ctx, &accounts[i]); err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}
	}

	clients := []model.Client{
		{ID: uuid.NewString(), Name: "Maria Oliveira", Phone: "5511998765432"},
		{ID: uuid.NewString(), Name: "Ana Paula Costa", Phone: "5521987651234"},
		{ID: uuid.NewString(), Name: "Sara Semijoias", Phone: "5531912348765"},
	}
	for i := range clients {
		if err := store.SaveClient(ctx, &clients[i]); err != nil {
			return fmt.Errorf("failed to seed client: %w", err)
		}
	}

	now := time.Now()
	messages := []model.PendingMessage{
		{
			ID:              uuid.NewString(),
			CreatedAt:       now.Add(-3 * time.Hour),
			SourceChannelID: "5511998765432",
			Content:         "Tipo: venda Cliente: Maria Valor: 250,00 Peso: 8g Frete: 15,00",
			Status:          model.StatusPending,
		},
		{
			ID:              uuid.NewString(),
			CreatedAt:       now.Add(-2 * time.Hour),
			SourceChannelID: "5521987651234",
			Content:         "paguei o boleto do fornecedor, R$ 480,00 em 12/08/2026",
			Status:          model.StatusPending,
		},
		{
			ID:              uuid.NewString(),
			CreatedAt:       now.Add(-90 * time.Minute),
			SourceChannelID: "5531912348765",
			Content:         "Oi! Quero um colar igual ao do anúncio, pode ser?",
			Status:          model.StatusPending,
		},
		{
			ID:              uuid.NewString(),
			CreatedAt:       now.Add(-time.Hour),
			SourceChannelID: "5541955554444",
			Content:         "bom dia, tudo bem?",
			Status:          model.StatusPending,
		},
	}
	for i := range messages {
		if err := store.InsertMessage(ctx, &messages[i]); err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}
	}

	fmt.Printf("Seeded %d categories, %d accounts, %d clients and %d messages.\n",
		len(categories), len(accounts), len(clients), len(messages))
	return nil
}
