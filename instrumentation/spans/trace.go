/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spans

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Trace is the tree of span records sharing one trace id.
type Trace struct {
	ID       ID
	root     ID
	records  map[ID]Record
	children map[ID][]ID
}

// Assemble groups records by trace id and links them into trees.
// Traces are ordered by the start time of their root; children by start time.
func Assemble(records []Record) []*Trace {
	byTrace := map[ID]*Trace{}
	var order []ID
	for _, r := range records {
		t, ok := byTrace[r.TraceID]
		if !ok {
			t = &Trace{
				ID:       r.TraceID,
				records:  map[ID]Record{},
				children: map[ID][]ID{},
			}
			byTrace[r.TraceID] = t
			order = append(order, r.TraceID)
		}
		t.records[r.ID] = r
	}

	traces := make([]*Trace, 0, len(order))
	for _, id := range order {
		t := byTrace[id]
		for _, r := range t.records {
			if r.ParentID == "" {
				if t.root == "" || r.StartTime.Before(t.records[t.root].StartTime) {
					t.root = r.ID
				}
				continue
			}
			t.children[r.ParentID] = append(t.children[r.ParentID], r.ID)
		}
		for parent, kids := range t.children {
			slices.SortFunc(kids, func(a, b ID) int {
				if c := t.records[a].StartTime.Compare(t.records[b].StartTime); c != 0 {
					return c
				}
				return strings.Compare(string(a), string(b))
			})
			t.children[parent] = kids
		}
		traces = append(traces, t)
	}
	slices.SortStableFunc(traces, func(a, b *Trace) int {
		ra, _ := a.Root()
		rb, _ := b.Root()
		return ra.StartTime.Compare(rb.StartTime)
	})
	return traces
}

// Root returns the record with no parent.
func (t *Trace) Root() (Record, bool) {
	r, ok := t.records[t.root]
	return r, ok
}

// Span returns the record with the given id.
func (t *Trace) Span(id ID) (Record, bool) {
	r, ok := t.records[id]
	return r, ok
}

// Children returns the records whose parent is id, by start time.
func (t *Trace) Children(id ID) []Record {
	kids := t.children[id]
	out := make([]Record, 0, len(kids))
	for _, k := range kids {
		out = append(out, t.records[k])
	}
	return out
}

// Len returns the number of spans in the trace.
func (t *Trace) Len() int { return len(t.records) }

// Walk visits the tree depth first from the root, children by start time.
// Returning false from fn skips the subtree below that record.
func (t *Trace) Walk(fn func(r Record, depth int) bool) {
	root, ok := t.Root()
	if !ok {
		return
	}
	var visit func(Record, int)
	visit = func(r Record, depth int) {
		if !fn(r, depth) {
			return
		}
		for _, c := range t.Children(r.ID) {
			visit(c, depth+1)
		}
	}
	visit(root, 0)
}

// Validate checks that the trace is a single well-nested tree: one root, every
// parent present, and every child inside its parent's time range. Spans marked
// orphan-closed are exempt from the time range check.
func (t *Trace) Validate() error {
	var errs []error
	var roots int
	for _, r := range t.records {
		if r.ParentID == "" {
			roots++
			continue
		}
		parent, ok := t.records[r.ParentID]
		if !ok {
			errs = append(errs, fmt.Errorf("span %s (%s %q): parent %s not in trace", r.ID, r.Kind, r.Name, r.ParentID))
			continue
		}
		if r.Status == StatusOrphanClosed {
			continue
		}
		if r.StartTime.Before(parent.StartTime) {
			errs = append(errs, fmt.Errorf("span %s (%s %q) starts before its parent %q", r.ID, r.Kind, r.Name, parent.Name))
		}
		switch {
		case parent.EndTime == nil:
		case r.EndTime == nil:
			errs = append(errs, fmt.Errorf("span %s (%s %q) is open after its parent %q ended", r.ID, r.Kind, r.Name, parent.Name))
		case r.EndTime.After(*parent.EndTime):
			errs = append(errs, fmt.Errorf("span %s (%s %q) ends after its parent %q", r.ID, r.Kind, r.Name, parent.Name))
		}
	}
	if roots != 1 {
		errs = append(errs, fmt.Errorf("trace %s has %d roots, wanted 1", t.ID, roots))
	}
	return errors.Join(errs...)
}
