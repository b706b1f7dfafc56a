/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package anthropicsuggester provides a suggest.Completer backed by the
// Anthropic Messages API.
package anthropicsuggester

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/mendloop/metrics"
	"chainguard.dev/mendloop/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// Completer implements suggest.Completer using Claude.
type Completer struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	temperature  float64
	retryConfig  retry.Config
	genaiMetrics *metrics.GenAI
}

// New creates a Completer with defaults suitable for patch suggestion.
func New(client anthropic.Client, opts ...Option) (*Completer, error) {
	c := &Completer{
		client:       client,
		model:        "claude-sonnet-4-5@20250929",
		maxTokens:    8192,
		temperature:  0.1, // low temperature for deterministic diffs
		retryConfig:  retry.DefaultConfig(),
		genaiMetrics: metrics.NewGenAI("chainguard.ai.mendloop"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return c, nil
}

// Name implements suggest.Completer.
func (c *Completer) Name() string {
	return "anthropic/" + c.model
}

// Complete sends one system+user exchange and returns the text response.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	log := clog.FromContext(ctx)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(user),
			},
		}},
	}
	params.Temperature = anthropic.Float(c.temperature)

	message, err := retry.WithBackoff(ctx, c.retryConfig, "create_message", isRetryableClaudeError, func() (*anthropic.Message, error) {
		return c.client.Messages.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("creating message: %w", err)
	}

	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		c.genaiMetrics.RecordTokens(ctx, c.model, message.Usage.InputTokens, message.Usage.OutputTokens)
	}

	var text strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("no text content in Claude's response")
	}

	log.With("model", c.model).
		With("response_length", text.Len()).
		Info("Claude completion finished")
	return text.String(), nil
}

// isRetryableClaudeError returns true for rate limit, overloaded, and
// transient server errors.
func isRetryableClaudeError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
