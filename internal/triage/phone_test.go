package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caderno-vivo/caderno/internal/model"
)

func TestIdentifiersMatch(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", "11987654321", "11987654321", true},
		{"country code on one side", "5511987654321", "11987654321", true},
		{"country code on both sides", "5511987654321", "5511987654321", true},
		{"formatted vs raw", "+55 (11) 98765-4321", "11987654321", true},
		{"suffix without area code", "987654321", "11987654321", true},
		{"different numbers", "5511987654321", "5511912345678", false},
		{"short strings never suffix-match", "4321", "11987654321", false},
		{"empty", "", "11987654321", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identifiersMatch(tt.a, tt.b))
		})
	}
}

func TestMatchSender(t *testing.T) {
	clients := []model.Client{
		{ID: "cli-1", Name: "João Silva", Phone: "11987654321"},
		{ID: "cli-2", Name: "Sara Semijoias", Phone: "5521912345678"},
	}

	got := MatchSender("5511987654321", clients)
	require.NotNil(t, got)
	assert.Equal(t, "cli-1", got.ID)

	got = MatchSender("21912345678", clients)
	require.NotNil(t, got)
	assert.Equal(t, "cli-2", got.ID)

	assert.Nil(t, MatchSender("5531999990000", clients))
}
