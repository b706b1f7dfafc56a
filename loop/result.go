/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package loop

import "chainguard.dev/mendloop/buildrun"

// Outcome is the terminal disposition of a repair loop run.
type Outcome string

const (
	// OutcomeSucceeded means a build invocation exited zero.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeExhaustedRetries means every budgeted build invocation failed.
	OutcomeExhaustedRetries Outcome = "exhausted_retries"
	// OutcomeNoPatchAvailable means the suggester declined, errored, timed
	// out, or produced a patch that did not apply.
	OutcomeNoPatchAvailable Outcome = "no_patch_available"
)

// Result is the terminal outcome of a repair loop run. It is produced once,
// at loop termination.
type Result struct {
	// Outcome is the terminal state.
	Outcome Outcome
	// Builds is the number of build invocations performed (1-based count;
	// a build that succeeded on the third invocation reports Builds == 3).
	Builds int
	// PatchesApplied counts proposals that applied cleanly.
	PatchesApplied int
	// FailureLog is the combined output of the most recent failing build.
	// Empty when the first build succeeded.
	FailureLog string
	// Reason carries the decline or apply-failure detail when Outcome is
	// OutcomeNoPatchAvailable.
	Reason string
	// Attempts records every build invocation in order.
	Attempts []buildrun.Attempt
}
