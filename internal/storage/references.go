package storage

import (
	"context"
	"fmt"

	"github.com/caderno-vivo/caderno/internal/model"
)

// The reference tables are read-only to the triage engine; the Save methods
// exist for the record-editor screens outside this engine and for seeding.

// GetCategories lists all categories.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(parent_id, '') FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetAccounts lists all accounts.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetClients lists all clients.
func (s *SQLiteStorage) GetClients(ctx context.Context) ([]model.Client, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), COALESCE(category, '') FROM clients ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Category); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// SaveCategory inserts or updates a category.
func (s *SQLiteStorage) SaveCategory(ctx context.Context, c *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(c.ID, "c.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, parent_id) VALUES (?, ?, NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id
	`, c.ID, c.Name, c.ParentID)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// SaveAccount inserts or updates an account.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, a *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(a.ID, "a.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, a.ID, a.Name)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// SaveClient inserts or updates a client.
func (s *SQLiteStorage) SaveClient(ctx context.Context, c *model.Client) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(c.ID, "c.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, phone, category) VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, phone = excluded.phone, category = excluded.category
	`, c.ID, c.Name, c.Phone, c.Category)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}
