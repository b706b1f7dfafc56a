/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package buildrun executes build commands and captures their outcome.
//
// A build that exits non-zero is an expected result, not an error: the
// Attempt records the exit code and the combined output. Only failures to
// launch the command at all (command not found, fork failure) surface as
// errors, wrapped in ErrLaunch.
package buildrun

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// ErrLaunch wraps failures to start the build command. These are fatal to
// the caller and distinct from a non-zero exit.
var ErrLaunch = errors.New("launching build command")

// Attempt is the immutable record of a single build invocation.
type Attempt struct {
	// Index is the 0-based position of this attempt within the run.
	Index int
	// Command is the shell command that was executed.
	Command string
	// Log holds the combined stdout and stderr, interleaved as produced.
	Log string
	// ExitCode is the command's exit status. 0 means success.
	ExitCode int
	// Start is when the command was launched.
	Start time.Time
	// Duration is the wall-clock time the command ran.
	Duration time.Duration
}

// Succeeded reports whether the build exited zero.
func (a Attempt) Succeeded() bool {
	return a.ExitCode == 0
}

// Runner executes a build command in a directory and reports the attempt.
// Implementations must honor context cancellation.
type Runner interface {
	Run(ctx context.Context, dir, command string, index int) (Attempt, error)
}

// ExecRunner implements Runner by shelling out via `sh -c`.
type ExecRunner struct{}

// Run executes command in dir and blocks until it exits. The returned error
// wraps ErrLaunch when the command could not be started; a non-zero exit is
// reported through the Attempt, not the error.
func (ExecRunner) Run(ctx context.Context, dir, command string, index int) (Attempt, error) {
	log := clog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	// A single buffer keeps stdout and stderr interleaved the way the
	// build produced them, which is what a patch suggester wants to see.
	var combined strings.Builder
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	start := time.Now()
	log.With("command", command).With("attempt", index).Info("Running build")

	err := cmd.Run()
	attempt := Attempt{
		Index:    index,
		Command:  command,
		Log:      combined.String(),
		Start:    start,
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return attempt, fmt.Errorf("%w: %w", ErrLaunch, err)
		}
		attempt.ExitCode = exitErr.ExitCode()
	}

	log.With("attempt", index).
		With("exit_code", attempt.ExitCode).
		With("duration", attempt.Duration).
		Info("Build finished")

	return attempt, nil
}
