// Package storage provides the SQLite persistence layer: the inbound message
// table, the read-only reference tables and the permanent ledgers.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the service store interfaces using SQLite. Every
// mutation of the message table signals subscribers, so the review queue can
// recompute from scratch on change.
type SQLiteStorage struct {
	db          *sql.DB
	dbPath      string
	subscribers map[<-chan struct{}]chan struct{}
	subMutex    sync.Mutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:          db,
		dbPath:      dbPath,
		subscribers: make(map[<-chan struct{}]chan struct{}),
	}, nil
}

// Close closes the database connection and all subscriber channels.
func (s *SQLiteStorage) Close() error {
	s.subMutex.Lock()
	for key, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, key)
	}
	s.subMutex.Unlock()
	return s.db.Close()
}

// Subscribe registers a change-notification channel. The channel has a
// buffer of one; signals coalesce while the receiver is busy.
func (s *SQLiteStorage) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMutex.Lock()
	defer s.subMutex.Unlock()
	var key <-chan struct{} = ch
	s.subscribers[key] = ch
	return ch
}

// Unsubscribe removes and closes a previously registered channel.
func (s *SQLiteStorage) Unsubscribe(ch <-chan struct{}) {
	s.subMutex.Lock()
	defer s.subMutex.Unlock()
	if c, ok := s.subscribers[ch]; ok {
		close(c)
		delete(s.subscribers, ch)
	}
}

// notifyChange signals every subscriber without blocking: a subscriber with
// a pending signal already knows a reload is due.
func (s *SQLiteStorage) notifyChange() {
	s.subMutex.Lock()
	defer s.subMutex.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *SQLiteStorage) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
