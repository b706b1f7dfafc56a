/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package extract pulls structured content out of free-form model responses.
// Models are instructed to answer with fenced code blocks, but frequently add
// prose around them or skip the fences entirely, so extraction is lenient.
package extract

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Fenced extracts the content of the first ```lang fenced block in the
// response. It looks for a ```lang opener on its own line and collects
// content until the closing ``` marker. If no such block is found, the
// trimmed response is returned with any bare fences stripped.
func Fenced(responseText, lang string) string {
	opener := "```" + lang

	lines := strings.Split(responseText, "\n")
	var buf bytes.Buffer
	inBlock := false
	found := false

	for _, line := range lines {
		if !inBlock && strings.TrimRight(line, " \t") == opener {
			inBlock = true
			found = true
			continue
		}

		if inBlock && strings.TrimRight(line, " \t") == "```" {
			break
		}

		if inBlock {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
		}
	}

	if found {
		return strings.Trim(buf.String(), "\n")
	}

	// Fallback: the model may have answered with bare content, possibly
	// wrapped in unlabeled fences.
	responseText = strings.TrimSpace(responseText)
	if strings.HasPrefix(responseText, opener) && strings.HasSuffix(responseText, "```") {
		responseText = strings.TrimPrefix(responseText, opener)
		responseText = strings.TrimSuffix(responseText, "```")
		return strings.Trim(responseText, "\n")
	}
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

// Diff extracts a unified diff from a model response. It prefers a ```diff
// fenced block; failing that it falls back to scanning for the first diff
// header line ("--- " or "diff --git") and returns everything from there.
// Returns "" when the response contains nothing that looks like a diff.
func Diff(responseText string) string {
	d := Fenced(responseText, "diff")
	if looksLikeDiff(d) && hasDiffHeader(d) {
		return ensureTrailingNewline(d)
	}

	// No usable fenced block; scan the raw response for a diff header.
	lines := strings.Split(responseText, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") || strings.HasPrefix(line, "--- ") {
			candidate := strings.Join(lines[i:], "\n")
			candidate = strings.TrimSuffix(strings.TrimSpace(candidate), "```")
			candidate = strings.TrimSpace(candidate)
			if looksLikeDiff(candidate) {
				return ensureTrailingNewline(candidate)
			}
		}
	}

	return ""
}

// looksLikeDiff reports whether s has the minimal shape of a unified diff:
// a ---/+++ header pair and at least one hunk marker.
func looksLikeDiff(s string) bool {
	return strings.Contains(s, "\n+++ ") &&
		(strings.HasPrefix(s, "--- ") || strings.Contains(s, "\n--- ")) &&
		strings.Contains(s, "\n@@ ")
}

// hasDiffHeader reports whether s begins at a diff header, so surrounding
// prose is handled by the line scan instead of swallowed whole.
func hasDiffHeader(s string) bool {
	return strings.HasPrefix(s, "--- ") || strings.HasPrefix(s, "diff --git ")
}

// git apply rejects patches whose final line lacks a newline.
func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// JSON extracts JSON from a response (preferring a ```json fenced block) and
// unmarshals it into T.
func JSON[T any](responseText string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(Fenced(responseText, "json")), &result); err != nil {
		return result, err
	}
	return result, nil
}
