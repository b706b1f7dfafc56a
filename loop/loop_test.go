/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"chainguard.dev/mendloop/buildrun"
	"chainguard.dev/mendloop/patch"
	"chainguard.dev/mendloop/suggest"
)

// fakeRunner replays a script of exit codes, one per build invocation.
type fakeRunner struct {
	exitCodes []int
	launchErr error
	calls     int
}

func (f *fakeRunner) Run(_ context.Context, _, command string, index int) (buildrun.Attempt, error) {
	f.calls++
	if f.launchErr != nil {
		return buildrun.Attempt{}, fmt.Errorf("%w: %v", buildrun.ErrLaunch, f.launchErr)
	}
	if index >= len(f.exitCodes) {
		panic(fmt.Sprintf("unexpected build invocation %d", index))
	}
	code := f.exitCodes[index]
	return buildrun.Attempt{
		Index:    index,
		Command:  command,
		ExitCode: code,
		Log:      fmt.Sprintf("build %d output", index),
	}, nil
}

// fakeSuggester counts calls and replays proposals or errors.
type fakeSuggester struct {
	proposal *suggest.Proposal
	err      error
	block    bool
	calls    int
}

func (f *fakeSuggester) Propose(ctx context.Context, _ string) (*suggest.Proposal, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.proposal, nil
}

// fakeTree records applied diffs and can be scripted to fail.
type fakeTree struct {
	applyErr error
	applied  []string
}

func (f *fakeTree) Dir() string { return "/fake" }

func (f *fakeTree) ApplyWithRecord(_ context.Context, diff string) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, diff)
	return nil
}

func newController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	if cfg.BuildCommand == "" {
		cfg.BuildCommand = "make build"
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestRunFirstBuildSucceeds(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCodes: []int{0}}
	suggester := &fakeSuggester{}
	c := newController(t, Config{
		MaxAttempts: 3,
		Runner:      runner,
		Suggester:   suggester,
		Tree:        &fakeTree{},
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeSucceeded {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeSucceeded)
	}
	if res.Builds != 1 {
		t.Errorf("Builds = %d, want 1", res.Builds)
	}
	if res.PatchesApplied != 0 {
		t.Errorf("PatchesApplied = %d, want 0", res.PatchesApplied)
	}
	if res.FailureLog != "" {
		t.Errorf("FailureLog = %q, want empty", res.FailureLog)
	}
	if suggester.calls != 0 {
		t.Errorf("suggester called %d times, want 0", suggester.calls)
	}
}

func TestRunSucceedsAfterPatches(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCodes: []int{1, 1, 0}}
	suggester := &fakeSuggester{proposal: &suggest.Proposal{Diff: "the diff", Provider: "fake"}}
	tree := &fakeTree{}
	c := newController(t, Config{
		MaxAttempts: 5,
		Runner:      runner,
		Suggester:   suggester,
		Tree:        tree,
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeSucceeded {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeSucceeded)
	}
	if res.Builds != 3 {
		t.Errorf("Builds = %d, want 3", res.Builds)
	}
	if res.PatchesApplied != 2 {
		t.Errorf("PatchesApplied = %d, want 2", res.PatchesApplied)
	}
	if suggester.calls != 2 {
		t.Errorf("suggester called %d times, want 2", suggester.calls)
	}
	if len(tree.applied) != 2 {
		t.Errorf("applied %d patches, want 2", len(tree.applied))
	}
	if len(res.Attempts) != 3 {
		t.Errorf("Attempts = %d, want 3", len(res.Attempts))
	}
}

func TestRunExhaustsRetries(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCodes: []int{1, 1, 1}}
	suggester := &fakeSuggester{proposal: &suggest.Proposal{Diff: "the diff", Provider: "fake"}}
	c := newController(t, Config{
		MaxAttempts: 3,
		Runner:      runner,
		Suggester:   suggester,
		Tree:        &fakeTree{},
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeExhaustedRetries {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeExhaustedRetries)
	}
	if res.Builds != 3 {
		t.Errorf("Builds = %d, want exactly MaxAttempts", res.Builds)
	}
	// The last failing build gets no suggestion call.
	if suggester.calls != 2 {
		t.Errorf("suggester called %d times, want 2", suggester.calls)
	}
	if res.FailureLog != "build 2 output" {
		t.Errorf("FailureLog = %q, want the last build's log", res.FailureLog)
	}
}

func TestRunSingleAttemptNeverCallsSuggester(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCodes: []int{1}}
	suggester := &fakeSuggester{}
	c := newController(t, Config{
		MaxAttempts: 1,
		Runner:      runner,
		Suggester:   suggester,
		Tree:        &fakeTree{},
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeExhaustedRetries {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeExhaustedRetries)
	}
	if res.Builds != 1 {
		t.Errorf("Builds = %d, want 1", res.Builds)
	}
	if suggester.calls != 0 {
		t.Errorf("suggester called %d times, want 0", suggester.calls)
	}
}

func TestRunSuggesterDeclines(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCodes: []int{1}}
	suggester := &fakeSuggester{err: suggest.ErrNoProposal}
	c := newController(t, Config{
		MaxAttempts: 5,
		Runner:      runner,
		Suggester:   suggester,
		Tree:        &fakeTree{},
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeNoPatchAvailable {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeNoPatchAvailable)
	}
	if res.Builds != 1 {
		t.Errorf("Builds = %d, want 1", res.Builds)
	}
	if res.Reason == "" {
		t.Error("Reason is empty for a decline")
	}
	if res.FailureLog == "" {
		t.Error("FailureLog is empty for a failed build")
	}
}

func TestRunSuggesterTimeoutIsDecline(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCodes: []int{1}}
	suggester := &fakeSuggester{block: true}
	c := newController(t, Config{
		MaxAttempts:     5,
		Runner:          runner,
		Suggester:       suggester,
		Tree:            &fakeTree{},
		ProposalTimeout: 50 * time.Millisecond,
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, proposal timeout must not be fatal", err)
	}
	if res.Outcome != OutcomeNoPatchAvailable {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeNoPatchAvailable)
	}
}

func TestRunApplyFailureStopsLoop(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCodes: []int{1}}
	suggester := &fakeSuggester{proposal: &suggest.Proposal{Diff: "bad diff", Provider: "fake"}}
	tree := &fakeTree{applyErr: fmt.Errorf("%w: corrupt patch", patch.ErrApply)}
	c := newController(t, Config{
		MaxAttempts: 5,
		Runner:      runner,
		Suggester:   suggester,
		Tree:        tree,
	})

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, apply failure must not be fatal", err)
	}
	if res.Outcome != OutcomeNoPatchAvailable {
		t.Errorf("Outcome = %q, want %q", res.Outcome, OutcomeNoPatchAvailable)
	}
	if res.PatchesApplied != 0 {
		t.Errorf("PatchesApplied = %d, want 0", res.PatchesApplied)
	}
	if !strings.Contains(res.Reason, "corrupt patch") {
		t.Errorf("Reason = %q, want apply failure detail", res.Reason)
	}
	if runner.calls != 1 {
		t.Errorf("builds = %d, want no rebuild after apply failure", runner.calls)
	}
}

func TestRunLaunchFailureIsFatal(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{launchErr: errors.New("sh: not found")}
	c := newController(t, Config{
		MaxAttempts: 3,
		Runner:      runner,
		Suggester:   &fakeSuggester{},
		Tree:        &fakeTree{},
	})

	res, err := c.Run(context.Background())
	if !errors.Is(err, buildrun.ErrLaunch) {
		t.Fatalf("Run() error = %v, want ErrLaunch", err)
	}
	if res.Builds != 0 {
		t.Errorf("Builds = %d, launch failure must not consume budget", res.Builds)
	}
}

func TestRunParentCancellationIsFatal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{exitCodes: []int{1}}
	suggester := &fakeSuggester{block: true}
	c := newController(t, Config{
		MaxAttempts: 5,
		Runner:      runner,
		Suggester:   suggester,
		Tree:        &fakeTree{},
	})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if _, err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunCanceledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{exitCodes: []int{0}}
	c := newController(t, Config{
		MaxAttempts: 3,
		Runner:      runner,
		Suggester:   &fakeSuggester{},
		Tree:        &fakeTree{},
	})

	if _, err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if runner.calls != 0 {
		t.Errorf("builds = %d, want 0 after pre-canceled context", runner.calls)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	valid := Config{
		BuildCommand: "make",
		MaxAttempts:  1,
		Suggester:    &fakeSuggester{},
		Tree:         &fakeTree{},
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty build command", mutate: func(c *Config) { c.BuildCommand = "" }},
		{name: "zero max attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }},
		{name: "negative max attempts", mutate: func(c *Config) { c.MaxAttempts = -1 }},
		{name: "nil suggester", mutate: func(c *Config) { c.Suggester = nil }},
		{name: "nil tree", mutate: func(c *Config) { c.Tree = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New() expected error")
			}
		})
	}

	if _, err := New(valid); err != nil {
		t.Errorf("New() error = %v for valid config", err)
	}
}
