package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caderno-vivo/caderno/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidStatus = errors.New("invalid message status")
	ErrInvalidRecord = errors.New("invalid ledger record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateStatus(status model.MessageStatus) error {
	switch status {
	case model.StatusPending, model.StatusProcessed, model.StatusError:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

func validateTransactionRecord(record *model.TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if record.CategoryID == "" || record.AccountID == "" {
		return fmt.Errorf("%w: missing category or account", ErrInvalidRecord)
	}
	return nil
}

func validateSaleRecord(record *model.SaleRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if record.ClientID == "" {
		return fmt.Errorf("%w: missing client", ErrInvalidRecord)
	}
	return nil
}
