/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prompt

import (
	"strings"
	"testing"
)

func TestRepairIncludesCommandAndLog(t *testing.T) {
	t.Parallel()

	got := Repair("make build", "undefined: foo\nmake: *** [build] Error 2", 0)
	if !strings.Contains(got, "make build") {
		t.Error("prompt missing build command")
	}
	if !strings.Contains(got, "undefined: foo") {
		t.Error("prompt missing build log")
	}
	if !strings.Contains(got, "```diff") {
		t.Error("prompt missing diff instruction")
	}
}

func TestRepairClipsLongLogKeepingTail(t *testing.T) {
	t.Parallel()

	buildLog := strings.Repeat("noise line\n", 400) + "THE ACTUAL ERROR"
	got := Repair("go build ./...", buildLog, 2000)

	if len(got) > 2000 {
		t.Errorf("prompt length = %d, want <= 2000", len(got))
	}
	if !strings.Contains(got, "THE ACTUAL ERROR") {
		t.Error("clipping dropped the tail of the log")
	}
	if !strings.Contains(got, "[...clipped...]") {
		t.Error("clipped prompt missing clip marker")
	}
}

func TestRepairShortLogNotClipped(t *testing.T) {
	t.Parallel()

	got := Repair("make", "short error", 0)
	if strings.Contains(got, "[...clipped...]") {
		t.Error("short log should not be clipped")
	}
}

func TestReviewIncludesFiles(t *testing.T) {
	t.Parallel()

	got := Review([]ChangedFile{
		{Name: "main.go", Patch: "@@ -1 +1 @@\n-old\n+new"},
		{Name: "main_test.go", Patch: "@@ -5 +5 @@\n-a\n+b"},
	}, 0)

	for _, want := range []string{"main.go", "main_test.go", "-old", "+new", "Summary"} {
		if !strings.Contains(got, want) {
			t.Errorf("review prompt missing %q", want)
		}
	}
}

func TestReviewStopsAtBudget(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 3000)
	files := []ChangedFile{
		{Name: "first.go", Patch: big},
		{Name: "second.go", Patch: big},
		{Name: "third.go", Patch: big},
	}
	got := Review(files, 4000)

	if len(got) > 5000 {
		t.Errorf("review prompt length = %d, want near budget", len(got))
	}
	if !strings.Contains(got, "first.go") {
		t.Error("first file should always fit")
	}
	if strings.Contains(got, "third.go") {
		t.Error("third file should have been dropped by the budget")
	}
}

func TestReviewUnnamedFile(t *testing.T) {
	t.Parallel()

	got := Review([]ChangedFile{{Patch: "@@ -1 +1 @@"}}, 0)
	if !strings.Contains(got, "unknown") {
		t.Error("unnamed file should render as unknown")
	}
}
