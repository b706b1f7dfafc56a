/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package suggest

import (
	"context"
	"errors"

	"github.com/chainguard-dev/clog"
)

// Fallback tries an ordered list of suggesters and returns the first
// proposal. Declines and provider errors fall through to the next suggester;
// only when every suggester declines does Propose return ErrNoProposal.
type Fallback struct {
	suggesters []Suggester
}

// NewFallback builds a Fallback chain. At least one suggester is required.
func NewFallback(suggesters ...Suggester) (*Fallback, error) {
	if len(suggesters) == 0 {
		return nil, errors.New("fallback chain needs at least one suggester")
	}
	return &Fallback{suggesters: suggesters}, nil
}

// Propose implements Suggester.
func (f *Fallback) Propose(ctx context.Context, buildLog string) (*Proposal, error) {
	log := clog.FromContext(ctx)

	for i, s := range f.suggesters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		proposal, err := s.Propose(ctx, buildLog)
		if err == nil {
			return proposal, nil
		}
		log.With("position", i).With("error", err).
			Info("Suggester declined, trying next in chain")
	}

	return nil, ErrNoProposal
}
