// Package refine implements the optional AI refinement adapter. Refinement
// is best-effort: every failure path degrades to the heuristic candidate and
// is never surfaced to the reviewer.
package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/caderno-vivo/caderno/internal/common"
	"github.com/caderno-vivo/caderno/internal/model"
	"github.com/caderno-vivo/caderno/internal/service"
)

const defaultModel = openai.GPT4oMini

const systemPrompt = `You are a bookkeeping assistant for a small Brazilian jewelry business. ` +
	`Given one WhatsApp message, extract financial fields. Return ONLY valid JSON with keys: ` +
	`value (string, decimal comma), date (string, YYYY-MM-DD), type ("income" or "expense"), ` +
	`description (string), category_id (string), account_id (string), client_id (string), ` +
	`weight (string), shipping (string), queue ("transaction", "sale" or "discard"). ` +
	`Use ids from the provided reference lists only. Leave a key empty when the message gives no signal.`

// OpenAI implements service.Refiner on the OpenAI chat-completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// Config holds refinement adapter settings.
type Config struct {
	APIKey string
	Model  string
}

// New creates an OpenAI-backed refiner. Returns an error when no credential
// is configured; callers treat that as "refinement disabled".
func New(cfg Config) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: no API key configured", common.ErrRefinerUnavailable)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &OpenAI{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}, nil
}

// Refine asks the model for a partial candidate. The result merges over the
// heuristic extraction; it never replaces it wholesale.
func (o *OpenAI) Refine(ctx context.Context, content string, refs model.ReferenceSet) (*model.Refinement, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	prompt := buildPrompt(content, refs)

	var raw string
	err := common.WithRetry(ctx, func() error {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.1,
			MaxTokens:   300,
		})
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: true}
		}
		if len(resp.Choices) == 0 {
			return &common.RetryableError{Err: fmt.Errorf("no response choices"), Retryable: true}
		}
		raw = resp.Choices[0].Message.Content
		return nil
	}, service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	})
	if err != nil {
		return nil, fmt.Errorf("refinement call failed: %w", err)
	}

	refinement, err := parseRefinement(raw, refs)
	if err != nil {
		return nil, fmt.Errorf("refinement response unusable: %w", err)
	}
	return refinement, nil
}

func buildPrompt(content string, refs model.ReferenceSet) string {
	var b strings.Builder

	b.WriteString("Categories:\n")
	for _, c := range refs.Categories {
		fmt.Fprintf(&b, "- %s: %s\n", c.ID, c.Name)
	}
	b.WriteString("Accounts:\n")
	for _, a := range refs.Accounts {
		fmt.Fprintf(&b, "- %s: %s\n", a.ID, a.Name)
	}
	b.WriteString("Clients:\n")
	for _, c := range refs.Clients {
		fmt.Fprintf(&b, "- %s: %s\n", c.ID, c.Name)
	}

	b.WriteString("\nMessage:\n")
	b.WriteString(content)
	return b.String()
}
