/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package loop implements the repair loop controller: run a build, on
// failure ask a patch suggester for a fix, apply it, and retry, bounded by a
// retry budget.
//
// The loop is strictly sequential. One build subprocess runs to completion,
// then at most one patch-suggestion call is outstanding, then the next
// build. The controller owns the working tree exclusively for the loop's
// lifetime; nothing else may mutate it while Run is in flight.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/mendloop/buildrun"
	"chainguard.dev/mendloop/suggest"
	"github.com/chainguard-dev/clog"
)

// Tree is the working-tree capability the controller needs: a root
// directory to build in and an apply operation that snapshots the revert
// record before mutating anything.
type Tree interface {
	Dir() string
	ApplyWithRecord(ctx context.Context, diff string) error
}

// Config configures a Controller.
type Config struct {
	// BuildCommand is the shell command that must exit zero.
	BuildCommand string
	// MaxAttempts bounds the number of build invocations. Must be >= 1.
	MaxAttempts int
	// Suggester proposes patches for failing build logs.
	Suggester suggest.Suggester
	// Tree is the working tree the loop builds and patches.
	Tree Tree
	// Runner executes the build command. Defaults to buildrun.ExecRunner.
	Runner buildrun.Runner
	// BuildTimeout bounds each build invocation. Zero means no timeout.
	BuildTimeout time.Duration
	// ProposalTimeout bounds each patch-suggestion call. A timeout is
	// treated as a decline, not a crash. Defaults to 2 minutes.
	ProposalTimeout time.Duration
}

func (c *Config) validate() error {
	if c.BuildCommand == "" {
		return errors.New("build command cannot be empty")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Suggester == nil {
		return errors.New("suggester cannot be nil")
	}
	if c.Tree == nil {
		return errors.New("tree cannot be nil")
	}
	return nil
}

// Controller drives the repair loop to a terminal Result.
type Controller struct {
	cfg Config
}

// New validates the configuration and returns a Controller.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Runner == nil {
		cfg.Runner = buildrun.ExecRunner{}
	}
	if cfg.ProposalTimeout <= 0 {
		cfg.ProposalTimeout = 2 * time.Minute
	}
	return &Controller{cfg: cfg}, nil
}

// Run executes the loop until a terminal outcome. The returned error is
// non-nil only for fatal conditions: the build command could not be
// launched, the working tree could not be read or written, or the context
// was canceled. Expected conditions (build failures, suggester downtime,
// unusable patches) terminate through the Result instead.
//
// On ExhaustedRetries or NoPatchAvailable with a patch still applied, the
// tree is intentionally left in the patched-but-failing state for
// inspection; reverting is a separate explicit operation.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	log := clog.FromContext(ctx)
	var res Result

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		attempt, err := c.build(ctx, index)
		if err != nil {
			// Launch failure is fatal and consumes no retry budget.
			return res, err
		}
		res.Attempts = append(res.Attempts, attempt)
		res.Builds = index + 1

		if attempt.Succeeded() {
			res.Outcome = OutcomeSucceeded
			log.With("builds", res.Builds).
				With("patches_applied", res.PatchesApplied).
				Info("Build succeeded")
			return res, nil
		}

		res.FailureLog = attempt.Log

		if index+1 >= c.cfg.MaxAttempts {
			res.Outcome = OutcomeExhaustedRetries
			log.With("max_attempts", c.cfg.MaxAttempts).
				Warn("Retry budget exhausted")
			return res, nil
		}

		proposal, err := c.propose(ctx, attempt.Log)
		if err != nil {
			// A canceled parent context is a cancellation, not a decline.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Outcome = OutcomeNoPatchAvailable
			res.Reason = err.Error()
			log.With("error", err).Info("No patch available, stopping")
			return res, nil
		}

		log.With("provider", proposal.Provider).
			With("diff_length", len(proposal.Diff)).
			Info("Applying proposed patch")

		if err := c.cfg.Tree.ApplyWithRecord(ctx, proposal.Diff); err != nil {
			res.Outcome = OutcomeNoPatchAvailable
			res.Reason = err.Error()
			log.With("provider", proposal.Provider).
				With("error", err).
				Warn("Proposed patch did not apply, stopping")
			return res, nil
		}
		res.PatchesApplied++
	}
}

// build runs one build invocation, honoring the configured build timeout.
func (c *Controller) build(ctx context.Context, index int) (buildrun.Attempt, error) {
	if c.cfg.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.BuildTimeout)
		defer cancel()
	}
	return c.cfg.Runner.Run(ctx, c.cfg.Tree.Dir(), c.cfg.BuildCommand, index)
}

// propose asks the suggester for a patch, bounded by the proposal timeout.
func (c *Controller) propose(ctx context.Context, buildLog string) (*suggest.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProposalTimeout)
	defer cancel()
	return c.cfg.Suggester.Propose(ctx, buildLog)
}
