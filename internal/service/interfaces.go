// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/caderno-vivo/caderno/internal/model"
)

// MessageStore is the contract with the inbound message table. Messages are
// created by the ingestion transport (outside this engine); the engine only
// reads the triage backlog and transitions statuses.
type MessageStore interface {
	// GetTriageMessages returns all messages with status pending or error,
	// ordered newest-first.
	GetTriageMessages(ctx context.Context) ([]model.PendingMessage, error)
	GetMessageByID(ctx context.Context, id string) (*model.PendingMessage, error)
	// UpdateMessageStatus sets status and discard reason together. Reason is
	// stored only for the error status; an empty reason clears the column.
	UpdateMessageStatus(ctx context.Context, id string, status model.MessageStatus, reason string) error
	// UpdateMessageStatusOnly is the schema-compatibility fallback used when
	// the combined status+reason write fails.
	UpdateMessageStatusOnly(ctx context.Context, id string, status model.MessageStatus) error
	DeleteMessages(ctx context.Context, ids []string) error
	// Subscribe registers a channel that receives a signal on every message
	// table mutation (insert, update, delete). Signals coalesce; receivers
	// must treat each one as "something changed, reload".
	Subscribe() <-chan struct{}
	Unsubscribe(ch <-chan struct{})
}

// ReferenceStore is the read-only reference data the extractor resolves
// names against.
type ReferenceStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetClients(ctx context.Context) ([]model.Client, error)
}

// LedgerStore receives the permanent records the commit engine produces.
type LedgerStore interface {
	SaveTransaction(ctx context.Context, record *model.TransactionRecord) error
	SaveSale(ctx context.Context, record *model.SaleRecord) error
	// Audit-trail lookups keyed by the source message back-reference.
	GetTransactionsBySourceMessage(ctx context.Context, messageID string) ([]model.TransactionRecord, error)
	GetSalesBySourceMessage(ctx context.Context, messageID string) ([]model.SaleRecord, error)
}

// Refiner is the optional AI refinement endpoint: best-effort, fallible,
// call/response only. A nil result with a nil error means "no opinion".
type Refiner interface {
	Refine(ctx context.Context, content string, refs model.ReferenceSet) (*model.Refinement, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
