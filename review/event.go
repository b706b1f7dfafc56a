/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// event is the subset of a GitHub Actions webhook payload needed to find the
// pull request under review. Comment-triggered runs carry the number under
// issue rather than pull_request.
type event struct {
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Issue *struct {
		Number      int              `json:"number"`
		PullRequest *json.RawMessage `json:"pull_request"`
	} `json:"issue"`
}

// ResolvePRNumber determines the pull request number for this run. An
// explicit prNumber (the PR_NUMBER variable, typically) wins; otherwise the
// Actions event payload at eventPath is consulted.
func ResolvePRNumber(prNumber, eventPath string) (int, error) {
	if s := strings.TrimSpace(prNumber); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("parsing PR number %q: %w", s, err)
		}
		return n, nil
	}
	if eventPath == "" {
		return 0, fmt.Errorf("no PR number provided and no event payload available")
	}

	raw, err := os.ReadFile(eventPath)
	if err != nil {
		return 0, fmt.Errorf("reading event payload: %w", err)
	}
	var ev event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return 0, fmt.Errorf("decoding event payload: %w", err)
	}
	switch {
	case ev.PullRequest != nil && ev.PullRequest.Number > 0:
		return ev.PullRequest.Number, nil
	case ev.Issue != nil && ev.Issue.PullRequest != nil && ev.Issue.Number > 0:
		return ev.Issue.Number, nil
	}
	return 0, fmt.Errorf("event payload does not reference a pull request")
}

// SplitRepository splits an owner/name pair as provided by the
// GITHUB_REPOSITORY variable.
func SplitRepository(repository string) (owner, name string, err error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be owner/name, got %q", repository)
	}
	return parts[0], parts[1], nil
}
