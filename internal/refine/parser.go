package refine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/caderno-vivo/caderno/internal/model"
)

type refinementPayload struct {
	Value       string `json:"value"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	AccountID   string `json:"account_id"`
	ClientID    string `json:"client_id"`
	Weight      string `json:"weight"`
	Shipping    string `json:"shipping"`
	Queue       string `json:"queue"`
}

// parseRefinement decodes the model's JSON reply into a partial refinement.
// Ids the model invented (not present in the reference lists) are dropped,
// as are malformed type and queue values; a bad field never spoils the rest.
func parseRefinement(raw string, refs model.ReferenceSet) (*model.Refinement, error) {
	var payload refinementPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decoding refinement JSON: %w", err)
	}

	r := &model.Refinement{
		Value:       strings.TrimSpace(payload.Value),
		Date:        strings.TrimSpace(payload.Date),
		Description: strings.TrimSpace(payload.Description),
		Weight:      strings.TrimSpace(payload.Weight),
		Shipping:    strings.TrimSpace(payload.Shipping),
	}

	switch model.EntryType(payload.Type) {
	case model.EntryIncome, model.EntryExpense:
		r.Type = model.EntryType(payload.Type)
	}
	switch model.Queue(payload.Queue) {
	case model.QueueTransaction, model.QueueSale, model.QueueDiscard:
		r.Queue = model.Queue(payload.Queue)
	}

	if hasCategory(refs.Categories, payload.CategoryID) {
		r.CategoryID = payload.CategoryID
	}
	if hasAccount(refs.Accounts, payload.AccountID) {
		r.AccountID = payload.AccountID
	}
	if hasClient(refs.Clients, payload.ClientID) {
		r.ClientID = payload.ClientID
	}

	return r, nil
}

// stripFences removes a markdown code fence around a JSON body, a common
// model reply shape even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func hasCategory(categories []model.Category, id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func hasAccount(accounts []model.Account, id string) bool {
	for _, a := range accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}

func hasClient(clients []model.Client, id string) bool {
	for _, c := range clients {
		if c.ID == id {
			return true
		}
	}
	return false
}
