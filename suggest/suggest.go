/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package suggest defines the patch-suggester capability: given a failing
// build's log, propose a unified diff intended to fix the failure, or
// decline. Concrete providers live in subpackages and are interchangeable.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/mendloop/extract"
	"chainguard.dev/mendloop/metrics"
	"chainguard.dev/mendloop/prompt"
	"github.com/chainguard-dev/clog"
)

// ErrNoProposal is returned when a suggester declines to propose a patch.
// Callers treat provider transport errors the same way, so declining and
// failing are indistinguishable to the repair loop's result.
var ErrNoProposal = errors.New("no patch proposal available")

// Proposal is a single patch proposed by a suggester. It is consumed exactly
// once: applied or discarded.
type Proposal struct {
	// Diff is the unified diff text, relative to the working tree root.
	Diff string
	// Provider identifies which suggester produced the proposal.
	Provider string
	// Rationale is the provider's optional explanation of the fix.
	Rationale string
}

// Suggester proposes a patch for a failing build log.
type Suggester interface {
	Propose(ctx context.Context, buildLog string) (*Proposal, error)
}

// Completer is the single-exchange primitive the provider subpackages
// implement: send a system instruction and a user message, get the model's
// text back.
type Completer interface {
	// Name identifies the provider and model, e.g. "anthropic/claude-sonnet-4".
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// suggester adapts a Completer into a Suggester by wrapping the build log in
// the repair prompt and extracting a diff from the response.
type suggester struct {
	completer    Completer
	buildCommand string
	maxChars     int
	genaiMetrics *metrics.GenAI
}

// Option configures a Suggester built by New.
type Option func(*suggester)

// WithBuildCommand includes the failing build command in the repair prompt.
func WithBuildCommand(command string) Option {
	return func(s *suggester) {
		s.buildCommand = command
	}
}

// WithMaxPromptChars overrides the prompt character budget.
func WithMaxPromptChars(n int) Option {
	return func(s *suggester) {
		s.maxChars = n
	}
}

// New builds a Suggester on top of a provider Completer.
func New(c Completer, opts ...Option) (Suggester, error) {
	if c == nil {
		return nil, errors.New("completer cannot be nil")
	}
	s := &suggester{
		completer:    c,
		maxChars:     prompt.DefaultMaxChars,
		genaiMetrics: metrics.NewGenAI("chainguard.ai.mendloop"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Propose asks the model for a patch. A provider error, an explicit
// "NO PATCH" answer, and a response with no recognizable diff all map to
// ErrNoProposal.
func (s *suggester) Propose(ctx context.Context, buildLog string) (*Proposal, error) {
	log := clog.FromContext(ctx).With("provider", s.completer.Name())

	user := prompt.Repair(s.buildCommand, buildLog, s.maxChars)

	text, err := s.completer.Complete(ctx, prompt.RepairSystem, user)
	if err != nil {
		s.genaiMetrics.RecordProposal(ctx, s.completer.Name(), "error")
		log.With("error", err).Warn("Provider call failed, treating as decline")
		return nil, fmt.Errorf("%w: %v", ErrNoProposal, err)
	}

	if strings.EqualFold(strings.TrimSpace(text), "NO PATCH") {
		s.genaiMetrics.RecordProposal(ctx, s.completer.Name(), "declined")
		log.Info("Provider declined to propose a patch")
		return nil, ErrNoProposal
	}

	diff := extract.Diff(text)
	if diff == "" {
		s.genaiMetrics.RecordProposal(ctx, s.completer.Name(), "declined")
		log.With("response_length", len(text)).
			Warn("Provider response contained no recognizable diff")
		return nil, fmt.Errorf("%w: response contained no diff", ErrNoProposal)
	}

	s.genaiMetrics.RecordProposal(ctx, s.completer.Name(), "proposed")
	return &Proposal{
		Diff:      diff,
		Provider:  s.completer.Name(),
		Rationale: rationale(text),
	}, nil
}

// rationale returns any prose the model emitted before the diff block.
func rationale(text string) string {
	head, _, found := strings.Cut(text, "```")
	if !found {
		return ""
	}
	return strings.TrimSpace(head)
}
