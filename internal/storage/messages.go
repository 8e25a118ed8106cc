package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/caderno-vivo/caderno/internal/common"
	"github.com/caderno-vivo/caderno/internal/model"
)

// InsertMessage stores a freshly ingested message. The ingestion transport is
// the usual writer; the engine itself only calls this from seeding and tests.
func (s *SQLiteStorage) InsertMessage(ctx context.Context, msg *model.PendingMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: msg", ErrNilParameter)
	}
	if err := validateString(msg.ID, "msg.ID"); err != nil {
		return err
	}
	if msg.Status == "" {
		msg.Status = model.StatusPending
	}
	if err := validateStatus(msg.Status); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, created_at, source_channel_id, content, status, discard_reason)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))
	`, msg.ID, msg.CreatedAt, msg.SourceChannelID, msg.Content, string(msg.Status), msg.DiscardReason)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	s.notifyChange()
	return nil
}

// GetTriageMessages returns all pending and error messages, newest first.
func (s *SQLiteStorage) GetTriageMessages(ctx context.Context) ([]model.PendingMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, source_channel_id, content, status, COALESCE(discard_reason, '')
		FROM messages
		WHERE status IN ('pending', 'error')
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query triage messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// GetMessagesByStatus returns all messages with the given status, newest
// first. Used by the CLI listing surface.
func (s *SQLiteStorage) GetMessagesByStatus(ctx context.Context, status model.MessageStatus) ([]model.PendingMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, source_channel_id, content, status, COALESCE(discard_reason, '')
		FROM messages
		WHERE status = ?
		ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query messages by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// GetMessageByID returns a single message, or common.ErrNotFound.
func (s *SQLiteStorage) GetMessageByID(ctx context.Context, id string) (*model.PendingMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var msg model.PendingMessage
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source_channel_id, content, status, COALESCE(discard_reason, '')
		FROM messages
		WHERE id = ?
	`, id).Scan(&msg.ID, &msg.CreatedAt, &msg.SourceChannelID, &msg.Content, &status, &msg.DiscardReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	msg.Status = model.MessageStatus(status)

	return &msg, nil
}

// UpdateMessageStatus sets status and discard reason together. An empty
// reason clears the stored reason.
func (s *SQLiteStorage) UpdateMessageStatus(ctx context.Context, id string, status model.MessageStatus, reason string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ?, discard_reason = NULLIF(?, '') WHERE id = ?
	`, string(status), reason, id)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}

	s.notifyChange()
	return nil
}

// UpdateMessageStatusOnly writes status without touching the reason column.
// This is the degraded path for stores whose messages table predates the
// discard_reason migration.
func (s *SQLiteStorage) UpdateMessageStatusOnly(ctx context.Context, id string, status model.MessageStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}

	s.notifyChange()
	return nil
}

// DeleteMessages removes a set of messages by id in one batch.
func (s *SQLiteStorage) DeleteMessages(ctx context.Context, ids []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM messages WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	s.notifyChange()
	return nil
}

func scanMessages(rows *sql.Rows) ([]model.PendingMessage, error) {
	var messages []model.PendingMessage
	for rows.Next() {
		var msg model.PendingMessage
		var status string
		if err := rows.Scan(&msg.ID, &msg.CreatedAt, &msg.SourceChannelID, &msg.Content, &status, &msg.DiscardReason); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Status = model.MessageStatus(status)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
