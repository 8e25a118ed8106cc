// Package model defines the core domain models used throughout the application.
package model

import "time"

// MessageStatus tracks where an inbound message sits in its lifecycle.
type MessageStatus string

// Message status constants. "error" doubles as the discarded state: a
// message rejected by a reviewer and a message that failed processing land
// in the same bucket, distinguished only by the presence of a DiscardReason.
const (
	StatusPending   MessageStatus = "pending"
	StatusProcessed MessageStatus = "processed"
	StatusError     MessageStatus = "error"
)

// PendingMessage is one inbound chat message awaiting triage.
type PendingMessage struct {
	CreatedAt       time.Time
	ID              string
	SourceChannelID string
	Content         string
	Status          MessageStatus
	DiscardReason   string
}

// Queue is the work queue a message is triaged into. It is derived from the
// message content on every load and never persisted.
type Queue string

// Triage queues.
const (
	QueueTransaction Queue = "transaction"
	QueueSale        Queue = "sale"
	QueueDiscard     Queue = "discard"
)
