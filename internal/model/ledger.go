package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus for permanent transaction records. Records committed by
// the triage pipeline are always confirmed; other statuses belong to the
// manual-entry screens outside this engine.
const TransactionStatusConfirmed = "confirmed"

// TransactionRecord is a permanent income/expense ledger entry. Automated
// marks provenance (created by the triage pipeline, not manual entry) and
// SourceMessageID/SourceChannelID point back at the message it came from.
type TransactionRecord struct {
	CreatedAt       time.Time
	Date            time.Time
	ID              string
	Description     string
	Type            EntryType
	Status          string
	CategoryID      string
	AccountID       string
	ClientID        string
	SourceMessageID string
	SourceChannelID string
	Value           float64
	Automated       bool
}

// SaleRecord is a permanent sale ledger entry. Sales are deliberately a
// separate ledger from transactions; approving a sale never creates a
// transaction record.
type SaleRecord struct {
	CreatedAt       time.Time
	Date            time.Time
	ID              string
	Code            string
	ClientID        string
	Seller          string
	SourceMessageID string
	SourceChannelID string
	Value           float64
	Weight          float64
	Shipping        float64
	Automated       bool
}

// NewSaleCode generates a short human-readable sale code.
func NewSaleCode() string {
	id := strings.ToUpper(uuid.NewString())
	return fmt.Sprintf("VND-%s", id[:8])
}
