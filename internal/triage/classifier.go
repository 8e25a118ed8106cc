package triage

import (
	"regexp"
	"strings"

	"github.com/caderno-vivo/caderno/internal/model"
)

// Policy holds the tunable business constants behind triage. The defaults
// reproduce observed production behavior: commerce language outranks generic
// payment language, and an ambiguous money mention is assumed to be spend.
type Policy struct {
	// DefaultType is assigned when no label or keyword resolves a type.
	DefaultType model.EntryType
	// SaleWinsTies checks sale vocabulary before transaction vocabulary.
	SaleWinsTies bool
}

// DefaultPolicy returns the production triage policy.
func DefaultPolicy() Policy {
	return Policy{
		DefaultType:  model.EntryExpense,
		SaleWinsTies: true,
	}
}

var reTipoLabel = regexp.MustCompile(`(?i)\btipo\s*:\s*([\p{L}]+)`)

// saleLabelWords and transactionLabelWords map an explicit "tipo:" label to
// a queue; containment, not equality, so "vendas" still reads as a sale.
var (
	saleLabelWords        = []string{"venda"}
	transactionLabelWords = []string{"recebimento", "pagamento", "despesa", "entrada", "saida", "saída"}
)

// paymentPhrases are exact multi-word confirmations that always mean a
// bookkeeping transaction, checked before any keyword scan so that phrases
// like "cliente pagou" are not captured by the sale vocabulary.
var paymentPhrases = []string{
	"pagamento recebido",
	"pix recebido",
	"cliente pagou",
	"recebi o pix",
	"recebimento de",
	"comprovante de pagamento",
}

// saleKeywords is the commerce vocabulary of this business's chat traffic:
// order nouns, jewelry-domain nouns and buying-intent verbs.
var saleKeywords = []string{
	"pedido", "encomenda", "cliente", "produto", "estoque",
	"preço", "preco", "peso", "grama", "gramas", "frete",
	"peça", "peca", "joia", "jóia", "semijoia", "semijoias",
	"anel", "colar", "brinco", "pulseira", "corrente", "pingente",
	"banho de ouro", "folheado",
	"quero", "gostaria", "vendi", "venda",
}

// transactionKeywords cover generic payment and bookkeeping language.
var transactionKeywords = []string{
	"paguei", "pagamento", "pagar", "pagou",
	"transferência", "transferencia", "transferi",
	"pix", "boleto", "fatura", "nota fiscal",
	"depósito", "deposito", "depositou",
	"despesa", "gasto", "gastei",
	"recebi", "recebimento",
	"comprei", "compra",
}

var reCurrencyHint = regexp.MustCompile(`(?i)r\$\s*\d`)

// Classify assigns a message to exactly one work queue using the default
// policy. It is a pure function of the text: no reference data, no I/O.
func Classify(content string) model.Queue {
	return DefaultPolicy().Classify(content)
}

// Classify applies the layered triage rules in strict priority order: tipo
// label override, payment-confirmation phrases, sale vocabulary, transaction
// vocabulary, currency fallback, discard.
func (p Policy) Classify(content string) model.Queue {
	text := strings.ToLower(content)

	if q, ok := classifyByLabel(text); ok {
		return q
	}

	for _, phrase := range paymentPhrases {
		if strings.Contains(text, phrase) {
			return model.QueueTransaction
		}
	}

	first, second := saleKeywords, transactionKeywords
	firstQueue, secondQueue := model.QueueSale, model.QueueTransaction
	if !p.SaleWinsTies {
		first, second = second, first
		firstQueue, secondQueue = secondQueue, firstQueue
	}
	if containsAny(text, first) {
		return firstQueue
	}
	if containsAny(text, second) {
		return secondQueue
	}

	if reCurrencyHint.MatchString(text) || reDecimalComma.MatchString(text) {
		return model.QueueTransaction
	}

	return model.QueueDiscard
}

// classifyByLabel resolves an explicit "tipo:" label. Only a recognized
// synonym short-circuits the remaining rules; an unrecognized label word
// cannot name a queue, so classification falls through.
func classifyByLabel(text string) (model.Queue, bool) {
	m := reTipoLabel.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	word := strings.ToLower(m[1])
	for _, w := range saleLabelWords {
		if strings.Contains(word, w) {
			return model.QueueSale, true
		}
	}
	for _, w := range transactionLabelWords {
		if strings.Contains(word, w) {
			return model.QueueTransaction, true
		}
	}
	return "", false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
