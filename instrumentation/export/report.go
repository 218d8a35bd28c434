/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Report renders tr as a markdown table, one row per span in tree order with
// names indented by depth.
func Report(w io.Writer, tr *spans.Trace) error {
	table := newTable(w, []string{"Span", "Kind", "Status", "Duration", "Error"})

	var err error
	tr.Walk(func(r spans.Record, depth int) bool {
		duration := "-"
		if r.EndTime != nil {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		row := []string{
			strings.Repeat("  ", depth) + r.Name,
			string(r.Kind),
			string(r.Status),
			duration,
			r.Error,
		}
		if err = table.Append(row); err != nil {
			err = fmt.Errorf("appending %s: %w", r.ID, err)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	return table.Render()
}
