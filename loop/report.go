/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package loop

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteReport renders a human-readable summary of the run's build attempts.
func (r Result) WriteReport(w io.Writer) error {
	fmt.Fprintf(w, "Outcome: %s (%d build(s), %d patch(es) applied)\n\n", r.Outcome, r.Builds, r.PatchesApplied)

	table := newReportTable([]string{"Attempt", "Exit Code", "Duration", "Log Bytes"}, w)
	for _, a := range r.Attempts {
		if err := table.Append([]string{
			fmt.Sprintf("%d", a.Index+1),
			fmt.Sprintf("%d", a.ExitCode),
			a.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%d", len(a.Log)),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func newReportTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 80,
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
	)
}
