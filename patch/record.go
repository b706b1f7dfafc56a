/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package patch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
)

// ErrNoRevertRecord is returned by RevertLast when no patch is currently
// applied.
var ErrNoRevertRecord = errors.New("no revert record present")

// ReadRevertRecord returns the contents of the revert record file and
// whether one exists.
func (t *Tree) ReadRevertRecord() (string, bool, error) {
	data, err := os.ReadFile(t.RevertRecordPath())
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading revert record: %w", err)
	}
	return string(data), true, nil
}

// writeRevertRecord atomically replaces the revert record file. Writes go
// through a temp file and rename so a crash never leaves a half-written
// record.
func (t *Tree) writeRevertRecord(diff string) error {
	path := t.RevertRecordPath()
	tmp, err := os.CreateTemp(t.dir, t.revertFile+".tmp-")
	if err != nil {
		return fmt.Errorf("writing revert record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(diff); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing revert record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing revert record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing revert record: %w", err)
	}
	return nil
}

// clearRevertRecord removes the revert record file if present.
func (t *Tree) clearRevertRecord() error {
	err := os.Remove(t.RevertRecordPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing revert record: %w", err)
	}
	return nil
}

// ApplyWithRecord snapshots the current working-tree diff into the revert
// record and then applies diff. The snapshot happens before any mutation, so
// the record always lets an operator get back to the last-known-good state.
// If the apply fails, the tree is untouched and the previous record (or its
// absence) is restored.
func (t *Tree) ApplyWithRecord(ctx context.Context, diff string) error {
	prior, hadPrior, err := t.ReadRevertRecord()
	if err != nil {
		return err
	}

	snapshot, err := t.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := t.writeRevertRecord(snapshot); err != nil {
		return err
	}

	if err := t.Apply(ctx, diff); err != nil {
		// Put the record back the way it was; the failed proposal never
		// became the applied state.
		var restoreErr error
		if hadPrior {
			restoreErr = t.writeRevertRecord(prior)
		} else {
			restoreErr = t.clearRevertRecord()
		}
		if restoreErr != nil {
			clog.FromContext(ctx).With("error", restoreErr).
				Warn("Failed to restore prior revert record after apply failure")
		}
		return err
	}

	return nil
}

// RevertLast undoes the most recent applied patch by reverse-applying the
// revert record's baseline: the tree is reset to the diff captured in the
// record. This is an explicit operator action, never run by the loop itself.
func (t *Tree) RevertLast(ctx context.Context) error {
	record, ok, err := t.ReadRevertRecord()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoRevertRecord
	}

	// Remove everything on top of HEAD, then re-apply the recorded
	// pre-patch diff. Two steps because the record is a snapshot of the
	// pre-patch state, not the inverse of the last patch.
	current, err := t.Snapshot(ctx)
	if err != nil {
		return err
	}
	if current != "" {
		if err := t.ApplyReverse(ctx, current); err != nil {
			return err
		}
	}
	if record != "" {
		if err := t.Apply(ctx, record); err != nil {
			return err
		}
	}

	return t.clearRevertRecord()
}
