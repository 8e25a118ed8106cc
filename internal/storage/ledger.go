package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/caderno-vivo/caderno/internal/model"
)

// SaveTransaction inserts one permanent transaction record.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, record *model.TransactionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactionRecord(record); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, description, value, type, date, status,
			category_id, account_id, client_id,
			automated, source_message_id, source_channel_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?)
	`,
		record.ID,
		record.Description,
		record.Value,
		string(record.Type),
		record.Date,
		record.Status,
		record.CategoryID,
		record.AccountID,
		record.ClientID,
		record.Automated,
		record.SourceMessageID,
		record.SourceChannelID,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction record: %w", err)
	}
	return nil
}

// SaveSale inserts one permanent sale record.
func (s *SQLiteStorage) SaveSale(ctx context.Context, record *model.SaleRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSaleRecord(record); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (
			id, code, date, client_id, value, weight, shipping,
			seller, automated, source_message_id, source_channel_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Code,
		record.Date,
		record.ClientID,
		record.Value,
		record.Weight,
		record.Shipping,
		record.Seller,
		record.Automated,
		record.SourceMessageID,
		record.SourceChannelID,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sale record: %w", err)
	}
	return nil
}

// GetTransactionsBySourceMessage returns the transactions committed from a
// given message; the audit trail for approve idempotence.
func (s *SQLiteStorage) GetTransactionsBySourceMessage(ctx context.Context, messageID string) ([]model.TransactionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(messageID, "messageID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, value, type, date, status,
			category_id, account_id, COALESCE(client_id, ''),
			automated, source_message_id, source_channel_id, created_at
		FROM transactions
		WHERE source_message_id = ?
		ORDER BY created_at
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.TransactionRecord
	for rows.Next() {
		var r model.TransactionRecord
		var entryType string
		if err := rows.Scan(
			&r.ID, &r.Description, &r.Value, &entryType, &r.Date, &r.Status,
			&r.CategoryID, &r.AccountID, &r.ClientID,
			&r.Automated, &r.SourceMessageID, &r.SourceChannelID, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		r.Type = model.EntryType(entryType)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetSalesBySourceMessage returns the sales committed from a given message.
func (s *SQLiteStorage) GetSalesBySourceMessage(ctx context.Context, messageID string) ([]model.SaleRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(messageID, "messageID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, date, client_id, value,
			COALESCE(weight, 0), COALESCE(shipping, 0),
			COALESCE(seller, ''), automated, source_message_id, source_channel_id, created_at
		FROM sales
		WHERE source_message_id = ?
		ORDER BY created_at
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.SaleRecord
	for rows.Next() {
		var r model.SaleRecord
		if err := rows.Scan(
			&r.ID, &r.Code, &r.Date, &r.ClientID, &r.Value,
			&r.Weight, &r.Shipping,
			&r.Seller, &r.Automated, &r.SourceMessageID, &r.SourceChannelID, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sale record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
