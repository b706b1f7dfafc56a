/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package patch owns the working tree the repair loop mutates: applying
// proposed diffs, reverse-applying them, and maintaining the single revert
// record that lets an operator undo the most recent patch.
package patch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/waigani/diffparser"
)

// DefaultRevertFile is the file name, relative to the tree root, that holds
// the most recent pre-patch diff.
const DefaultRevertFile = ".mendloop-revert.diff"

// ErrApply wraps failures to apply a diff cleanly (malformed patch or
// conflict with the current tree state). git verifies the whole patch before
// writing anything, so an ErrApply means the tree was not touched.
var ErrApply = errors.New("applying diff")

// Tree is a filesystem-backed source checkout on which unified diffs can be
// applied and reverse-applied. It is owned exclusively by one repair loop
// for the loop's lifetime.
type Tree struct {
	dir        string
	repo       *gogit.Repository
	revertFile string
}

// Option configures a Tree.
type Option func(*Tree)

// WithRevertFile overrides the revert record file name, relative to the
// tree root.
func WithRevertFile(name string) Option {
	return func(t *Tree) {
		t.revertFile = name
	}
}

// Open binds a Tree to the git checkout at dir.
func Open(dir string, opts ...Option) (*Tree, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving tree dir: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", abs, err)
	}

	t := &Tree{
		dir:        abs,
		repo:       repo,
		revertFile: DefaultRevertFile,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Dir returns the absolute path of the tree root.
func (t *Tree) Dir() string {
	return t.dir
}

// RevertRecordPath returns the absolute path of the revert record file.
func (t *Tree) RevertRecordPath() string {
	return filepath.Join(t.dir, t.revertFile)
}

// Dirty reports whether the working tree has uncommitted changes, ignoring
// the revert record file itself.
func (t *Tree) Dirty() (bool, error) {
	wt, err := t.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting worktree status: %w", err)
	}
	for path, fs := range status {
		if path == t.revertFile {
			continue
		}
		if fs.Worktree != gogit.Unmodified || fs.Staging != gogit.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// Snapshot returns the unified diff of the working tree against HEAD. An
// empty string means the tree is at its baseline.
func (t *Tree) Snapshot(ctx context.Context) (string, error) {
	out, err := t.git(ctx, nil, "diff", "HEAD", "--", ".", ":!"+t.revertFile)
	if err != nil {
		return "", fmt.Errorf("snapshotting tree: %w", err)
	}
	return out, nil
}

// Apply applies a unified diff to the working tree. The diff is validated
// before git sees it; a malformed or conflicting diff returns ErrApply with
// the tree untouched.
func (t *Tree) Apply(ctx context.Context, diff string) error {
	if err := validate(diff); err != nil {
		return err
	}
	if out, err := t.git(ctx, strings.NewReader(diff), "apply", "--whitespace=nowarn", "-"); err != nil {
		return fmt.Errorf("%w: %s", ErrApply, firstLine(out, err))
	}
	clog.FromContext(ctx).With("dir", t.dir).Info("Applied diff to working tree")
	return nil
}

// ApplyReverse reverse-applies a unified diff, undoing a previous Apply.
func (t *Tree) ApplyReverse(ctx context.Context, diff string) error {
	if err := validate(diff); err != nil {
		return err
	}
	if out, err := t.git(ctx, strings.NewReader(diff), "apply", "-R", "--whitespace=nowarn", "-"); err != nil {
		return fmt.Errorf("%w: %s", ErrApply, firstLine(out, err))
	}
	clog.FromContext(ctx).With("dir", t.dir).Info("Reverse-applied diff")
	return nil
}

// validate checks that diff parses as a unified diff touching at least one
// file. An empty diff is valid for Apply's callers to reject earlier, so it
// is treated as malformed here.
func validate(diff string) error {
	if strings.TrimSpace(diff) == "" {
		return fmt.Errorf("%w: empty diff", ErrApply)
	}
	parsed, err := diffparser.Parse(diff)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApply, err)
	}
	if len(parsed.Files) == 0 {
		return fmt.Errorf("%w: diff touches no files", ErrApply)
	}
	return nil
}

// git runs a git subcommand rooted at the tree, returning combined output.
func (t *Tree) git(ctx context.Context, stdin *strings.Reader, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = t.dir
	if stdin != nil {
		cmd.Stdin = stdin
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func firstLine(out string, err error) string {
	if line, _, found := strings.Cut(strings.TrimSpace(out), "\n"); found || line != "" {
		return line
	}
	return err.Error()
}
