package triage

import (
	"strings"

	"github.com/caderno-vivo/caderno/internal/model"
)

// Local numbers run 10 or 11 digits (area code plus subscriber); anything
// longer carries a country-code prefix worth stripping.
const maxLocalDigits = 11

// normalizeIdentifier reduces a phone-like identifier to digits, dropping a
// leading country code when the remainder is still a plausible local number.
func normalizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	for len(d) > maxLocalDigits {
		d = d[1:]
	}
	return d
}

// identifiersMatch reports whether two phone-like identifiers plausibly
// refer to the same line: equality after normalization, or a one-sided
// suffix match long enough to rule out coincidence.
func identifiersMatch(a, b string) bool {
	na, nb := normalizeIdentifier(a), normalizeIdentifier(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	const minSuffix = 8
	if len(na) >= minSuffix && len(nb) >= minSuffix {
		return strings.HasSuffix(na, nb) || strings.HasSuffix(nb, na)
	}
	return false
}

// MatchSender resolves the originating channel identifier to a known client
// for display context. This identity is never used for financial client
// assignment; that stays with the extractor's name resolution.
func MatchSender(sourceChannelID string, clients []model.Client) *model.Client {
	for i := range clients {
		if clients[i].Phone == "" {
			continue
		}
		if identifiersMatch(sourceChannelID, clients[i].Phone) {
			return &clients[i]
		}
	}
	return nil
}
