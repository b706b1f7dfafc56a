/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package prompt builds the prompts sent to patch suggesters and reviewers.
// Both prompts are clipped to a character budget so an arbitrarily large
// build log or pull request cannot blow the provider's context window.
package prompt

import (
	"fmt"
	"strings"
)

// DefaultMaxChars is the character budget for a built prompt.
const DefaultMaxChars = 24000

// RepairSystem is the system instruction for patch suggestion.
const RepairSystem = "You are a precise software engineer fixing a broken build. " +
	"Respond with a single unified diff inside a ```diff fenced block, relative to the repository root. " +
	"If you cannot propose a fix, respond with exactly NO PATCH."

// ReviewSystem is the system instruction for pull request review.
const ReviewSystem = "You are a precise, pragmatic code reviewer."

// Repair builds the prompt asking a model to fix a failing build. The build
// log is clipped from the front when over budget: compilers and test runners
// put the interesting failures at the end.
func Repair(buildCommand, buildLog string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var b strings.Builder
	b.WriteString("The following build command failed:\n\n")
	fmt.Fprintf(&b, "    %s\n\n", buildCommand)
	b.WriteString("Build output (stdout and stderr combined):\n\n```\n")

	budget := maxChars - b.Len() - 200 // leave room for the trailer
	if budget < 0 {
		budget = 0
	}
	log := buildLog
	if len(log) > budget {
		log = "[...clipped...]\n" + log[len(log)-budget:]
	}
	b.WriteString(log)

	b.WriteString("\n```\n\n")
	b.WriteString("Propose a unified diff that makes the build pass. " +
		"Only change what is necessary. Respond with the diff in a ```diff fenced block.\n")
	return b.String()
}

// ChangedFile is one file of a pull request, with its unified diff excerpt
// as GitHub reports it.
type ChangedFile struct {
	Name  string
	Patch string
}

// Review builds the prompt asking a model to review a pull request. Files
// are included in order until the budget runs out; long patches are clipped
// rather than dropped.
func Review(files []ChangedFile, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	parts := []string{
		"You are a senior software engineer performing code review on a GitHub pull request.",
		"Be concise but specific. Prioritize correctness, security, performance, readability, testing, and maintainability.",
		"If everything looks good, respond with a short 'LGTM' style note and any nits.",
		"",
		"Changes (unified diff excerpts):",
	}

	used := 0
	for _, p := range parts {
		used += len(p) + 1
	}

	for _, f := range files {
		name := f.Name
		if name == "" {
			name = "unknown"
		}
		header := fmt.Sprintf("\n--- %s ---\n", name)
		if used+len(header) > maxChars {
			break
		}
		parts = append(parts, header)
		used += len(header)

		clip := f.Patch
		if remaining := maxChars - used - 500; remaining < len(clip) {
			if remaining < 0 {
				remaining = 0
			}
			clip = clip[:remaining]
		}
		parts = append(parts, clip)
		used += len(clip)
		// Stop once the remaining budget can hold only headers.
		if used >= maxChars-500 {
			break
		}
	}

	parts = append(parts, "\nProvide a structured review with sections: Summary, Issues (with file:line when possible), Suggestions, Tests to Add, Risk, LGTM?")
	return strings.Join(parts, "\n")
}
