/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"testing"
)

func TestGenAIRecordsWithoutProvider(t *testing.T) {
	t.Parallel()

	// Without a configured meter provider the global meter is a no-op;
	// recording must still be safe.
	m := NewGenAI("chainguard.ai.mendloop.test")
	ctx := context.Background()

	m.RecordTokens(ctx, "claude-sonnet-4-5", 1200, 340)
	m.RecordTokens(ctx, "gemini-2.5-flash", 0, 0)
	m.RecordProposal(ctx, "claude-sonnet-4-5", "proposed")
	m.RecordProposal(ctx, "gemini-2.5-flash", "declined")
	m.RecordProposal(ctx, "openai/gpt-4o-mini", "error")
}
