/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides OpenTelemetry metrics for the model calls made by
// patch suggesters and reviewers.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// GenAI counts token usage and proposal calls across providers. The meter
// name is unified across providers, with the model name as a dimension.
// Counter creation degrades to no-ops rather than failing.
type GenAI struct {
	meter            metric.Meter
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	proposalCounter  metric.Int64Counter
}

// NewGenAI creates a GenAI metrics instance with the specified meter name
// (e.g. "chainguard.ai.mendloop").
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	promptTokens, err := meter.Int64Counter("genai.token.prompt",
		metric.WithDescription("The number of prompt tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create prompt tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("genai.token.completion",
		metric.WithDescription("The number of completion tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create completion tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		completionTokens = noop.Int64Counter{}
	}

	proposalCounter, err := meter.Int64Counter("genai.proposal.calls",
		metric.WithDescription("The number of patch proposal calls made"),
		metric.WithUnit("{calls}"))
	if err != nil {
		slog.Warn("Failed to create proposal counter, metrics will be disabled", "error", err, "meter", meterName)
		proposalCounter = noop.Int64Counter{}
	}

	return &GenAI{
		meter:            meter,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		proposalCounter:  proposalCounter,
	}
}

// RecordTokens records prompt and completion token usage for a model.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.promptTokens.Add(ctx, promptTokens, attrs)
	m.completionTokens.Add(ctx, completionTokens, attrs)
}

// RecordProposal records one proposal call and its disposition
// ("proposed", "declined", or "error").
func (m *GenAI) RecordProposal(ctx context.Context, model, disposition string) {
	m.proposalCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("disposition", disposition),
	))
}
