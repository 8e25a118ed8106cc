// Package triage implements the inbound message triage pipeline: the queue
// classifier, the heuristic field extractor and the reference matchers they
// share. Everything in this package is a pure function of its inputs.
package triage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches locale-formatted amounts: "1.234,56", "50,00" and
// plain decimals like "75.30". Thousand-separator forms are tried first so
// the greedy alternation never splits them.
const numberPattern = `\d{1,3}(?:\.\d{3})+,\d{2}|\d+,\d{1,2}|\d+(?:\.\d{1,2})?`

var reDecimalComma = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+,\d{2}|\d+,\d{2}`)

// ParseDecimal converts a locale-formatted numeric string into a float.
// "1.234,56" parses as 1234.56, "50,00" as 50 and "75.30" as 75.3. A leading
// currency marker is tolerated.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "R$"), "r$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric string")
	}

	if strings.Contains(s, ",") {
		// Comma is the decimal separator; dots are thousand separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric string %q: %w", s, err)
	}
	return v, nil
}
