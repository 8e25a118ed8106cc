package triage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/caderno-vivo/caderno/internal/model"
)

// Default descriptions when the message carries none; conditioned on the
// resolved entry type.
const (
	defaultIncomeDescription  = "Venda/Recebimento"
	defaultExpenseDescription = "Pagamento/Despesa"
)

var (
	reDateLike = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`)
	reFullDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)

	reValueLabel    = regexp.MustCompile(`(?i)\bvalor\b\s*:?\s*(?:r\$\s*)?(` + numberPattern + `)`)
	reCurrencyValue = regexp.MustCompile(`(?i)r\$\s*(` + numberPattern + `)`)

	reWeightLabel   = regexp.MustCompile(`(?i)\bpeso\s*:?\s*(\d+(?:[.,]\d+)?)`)
	reShippingLabel = regexp.MustCompile(`(?i)\bfrete\s*:?\s*(?:r\$\s*)?(` + numberPattern + `)`)

	reClientLabel      = regexp.MustCompile(`(?i)\b(?:cliente|nome)\s*:\s*`)
	reDescriptionLabel = regexp.MustCompile(`(?i)\bdescri[cç][aã]o\s*:\s*`)

	// reFieldStop bounds a labeled free-text span: the next recognized field
	// keyword, a currency marker, a newline or punctuation. Labels are often
	// concatenated on one line, so capture must not run past the next one.
	reFieldStop = regexp.MustCompile(`(?i)\b(?:descri[cç][aã]o|tipo|valor|data|peso|frete|obs|cliente|nome)\b|r\$|\n|[,;.!?]`)
)

// Type resolution vocabulary. Label synonyms are checked by containment so
// inflected forms still map; the fallback verb lists mirror how this
// business phrases money movement in chat.
var (
	incomeLabelWords  = []string{"venda", "recebimento", "receita", "entrada", "lucro"}
	expenseLabelWords = []string{"despesa", "gasto", "saída", "saida", "pagamento", "compra"}

	incomeVerbs  = []string{"recebi", "pagou", "depositou", "venda", "vendi", "entrou"}
	expenseVerbs = []string{"paguei", "gastei", "gasto", "comprei", "despesa", "transferi"}
)

// Extract pulls a candidate record out of free text using the default
// policy. It never fails: absence of a signal yields an empty field.
func Extract(content string, refs model.ReferenceSet) model.CandidateRecord {
	return DefaultPolicy().Extract(content, refs)
}

// Extract composes the individual extraction rules in a fixed pipeline.
// Deterministic given identical reference lists.
func (p Policy) Extract(content string, refs model.ReferenceSet) model.CandidateRecord {
	entryType := p.resolveType(content)

	return model.CandidateRecord{
		Value:       ExtractValue(content),
		Date:        ExtractDate(content),
		Type:        entryType,
		Description: extractDescription(content, entryType),
		CategoryID:  MatchCategory(content, refs.Categories),
		AccountID:   MatchAccount(content, refs.Accounts),
		ClientID:    ResolveClient(content, refs.Clients),
		Weight:      ExtractWeight(content),
		Shipping:    ExtractShipping(content),
	}
}

// maskDates blanks date-shaped substrings so day numbers are never misread
// as money. Replacement preserves offsets.
func maskDates(content string) string {
	return reDateLike.ReplaceAllStringFunc(content, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

// ExtractValue finds the monetary value, first match wins: explicit valor
// label, then a currency-prefixed number, then a bare decimal-comma number.
// The locale formatting of the match is preserved.
func ExtractValue(content string) string {
	text := maskDates(content)

	if m := reValueLabel.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := reCurrencyValue.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := reDecimalComma.FindString(text); m != "" {
		return m
	}
	return ""
}

// ExtractDate returns the first full DD/MM/YYYY date as an ISO calendar
// date, or "" when the message carries none.
func ExtractDate(content string) string {
	m := reFullDate.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// resolveType decides income vs expense: explicit tipo label, then verb
// scan, then the policy default. The default is a conservative bias toward
// expense so unclassified money mentions never overstate revenue.
func (p Policy) resolveType(content string) model.EntryType {
	text := strings.ToLower(content)

	if m := reTipoLabel.FindStringSubmatch(text); m != nil {
		word := m[1]
		for _, w := range incomeLabelWords {
			if strings.Contains(word, w) {
				return model.EntryIncome
			}
		}
		for _, w := range expenseLabelWords {
			if strings.Contains(word, w) {
				return model.EntryExpense
			}
		}
	}

	if containsAny(text, incomeVerbs) {
		return model.EntryIncome
	}
	if containsAny(text, expenseVerbs) {
		return model.EntryExpense
	}
	return p.DefaultType
}

// ResolveClient resolves the message's client in two phases: an explicit
// cliente/nome label whose captured span is fuzzily matched, then a whole-
// content scan for any known client name.
func ResolveClient(content string, clients []model.Client) string {
	if span := captureLabeledSpan(content, reClientLabel); span != "" {
		if id := matchClientByName(span, clients); id != "" {
			return id
		}
	}
	return scanContentForClient(content, clients)
}

// ExtractWeight returns the labeled weight as a bare number ("5" from
// "Peso: 5g"), or "".
func ExtractWeight(content string) string {
	if m := reWeightLabel.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

// ExtractShipping returns the labeled shipping value, decimal-comma
// tolerant, or "".
func ExtractShipping(content string) string {
	if m := reShippingLabel.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

func extractDescription(content string, entryType model.EntryType) string {
	if span := captureLabeledSpan(content, reDescriptionLabel); span != "" {
		return span
	}
	if entryType == model.EntryIncome {
		return defaultIncomeDescription
	}
	return defaultExpenseDescription
}

// captureLabeledSpan returns the text between a label and the next field
// boundary, trimmed. Empty when the label is absent.
func captureLabeledSpan(content string, label *regexp.Regexp) string {
	loc := label.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	rest := content[loc[1]:]
	if stop := reFieldStop.FindStringIndex(rest); stop != nil {
		rest = rest[:stop[0]]
	}
	return strings.TrimSpace(rest)
}
