package model

// EntryType indicates whether a candidate represents money in or money out.
type EntryType string

// Entry type constants.
const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// CandidateRecord is the mutable draft a reviewer edits before approval.
// Value, Weight and Shipping keep their locale formatting (decimal comma)
// until commit time; foreign keys are empty strings when unresolved.
type CandidateRecord struct {
	Value       string
	Date        string // ISO calendar date, YYYY-MM-DD
	Type        EntryType
	Description string
	CategoryID  string
	AccountID   string
	ClientID    string
	Weight      string
	Shipping    string
}

// Refinement is a partial candidate produced by the AI adapter. Empty fields
// mean "no opinion"; Merge applies non-empty fields over the heuristic
// candidate. The adapter may also override the triage queue.
type Refinement struct {
	Value       string
	Date        string
	Type        EntryType
	Description string
	CategoryID  string
	AccountID   string
	ClientID    string
	Weight      string
	Shipping    string
	Queue       Queue
}

// Merge overlays a refinement onto a heuristic candidate. An AI field wins
// iff it is present and non-empty; everything else keeps its heuristic value.
func Merge(heuristic CandidateRecord, r *Refinement) CandidateRecord {
	if r == nil {
		return heuristic
	}
	out := heuristic
	if r.Value != "" {
		out.Value = r.Value
	}
	if r.Date != "" {
		out.Date = r.Date
	}
	if r.Type != "" {
		out.Type = r.Type
	}
	if r.Description != "" {
		out.Description = r.Description
	}
	if r.CategoryID != "" {
		out.CategoryID = r.CategoryID
	}
	if r.AccountID != "" {
		out.AccountID = r.AccountID
	}
	if r.ClientID != "" {
		out.ClientID = r.ClientID
	}
	if r.Weight != "" {
		out.Weight = r.Weight
	}
	if r.Shipping != "" {
		out.Shipping = r.Shipping
	}
	return out
}
