package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: messages, reference data",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS messages (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					source_channel_id TEXT NOT NULL,
					content TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'pending'
				)`,
				`CREATE INDEX idx_messages_status ON messages(status)`,
				`CREATE INDEX idx_messages_created_at ON messages(created_at)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					parent_id TEXT
				)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS clients (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					phone TEXT,
					category TEXT
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Ledger tables with source message back-references",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					description TEXT NOT NULL,
					value REAL NOT NULL,
					type TEXT NOT NULL,
					date DATETIME NOT NULL,
					status TEXT NOT NULL DEFAULT 'confirmed',
					category_id TEXT NOT NULL,
					account_id TEXT NOT NULL,
					client_id TEXT,
					automated INTEGER NOT NULL DEFAULT 0,
					source_message_id TEXT,
					source_channel_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_source ON transactions(source_message_id)`,

				`CREATE TABLE IF NOT EXISTS sales (
					id TEXT PRIMARY KEY,
					code TEXT NOT NULL,
					date DATETIME NOT NULL,
					client_id TEXT NOT NULL,
					value REAL NOT NULL,
					weight REAL,
					shipping REAL,
					seller TEXT,
					automated INTEGER NOT NULL DEFAULT 0,
					source_message_id TEXT,
					source_channel_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_sales_source ON sales(source_message_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		// Older deployments run without this column; the reject path falls
		// back to a status-only write against them.
		Version:     3,
		Description: "Add discard_reason to messages",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE messages ADD COLUMN discard_reason TEXT`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.schemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
