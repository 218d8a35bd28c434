/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spans

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
)

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusOpen:         false,
		StatusOK:           true,
		StatusError:        true,
		StatusOrphanClosed: true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal(): got = %v, wanted = %v", status, got, want)
		}
	}
}

func TestAttributeMerge(t *testing.T) {
	s := New(NewID(), "", KindLLM, "gemini-pro", "", time.Now())

	if err := s.SetAttributes(attribute.String("model", "m1")); err != nil {
		t.Fatalf("SetAttributes(request) = %v", err)
	}
	if err := s.SetAttributes(attribute.Int("tokens", 42)); err != nil {
		t.Fatalf("SetAttributes(response) = %v", err)
	}
	want := map[string]any{"model": "m1", "tokens": int64(42)}
	if diff := cmp.Diff(want, s.Record().Attributes); diff != "" {
		t.Errorf("attributes (-want +got):\n%s", diff)
	}

	if err := s.SetAttributes(attribute.String("model", "m2")); err != nil {
		t.Fatalf("SetAttributes(override) = %v", err)
	}
	if got := s.Record().Attributes["model"]; got != "m2" {
		t.Errorf("model: got = %v, wanted = m2", got)
	}
}

func TestFinishIsTerminal(t *testing.T) {
	start := time.Now()
	s := New(NewID(), "", KindTool, "Lookup", "", start)

	if err := s.Finish(StatusOpen, start, nil); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Finish(open): got = %v, wanted = %v", err, ErrInvalidStatus)
	}
	if err := s.Finish(StatusError, start.Add(time.Second), errors.New("boom")); err != nil {
		t.Fatalf("Finish(error) = %v", err)
	}
	if err := s.Finish(StatusOK, start.Add(2*time.Second), nil); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("second Finish: got = %v, wanted = %v", err, ErrAlreadyTerminal)
	}
	if err := s.SetAttributes(attribute.Bool("late", true)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SetAttributes after end: got = %v, wanted = %v", err, ErrNotOpen)
	}

	r := s.Record()
	if r.Status != StatusError || r.Error != "boom" {
		t.Errorf("record: got = (%s, %q), wanted = (error, boom)", r.Status, r.Error)
	}
	if r.Duration() != time.Second {
		t.Errorf("duration: got = %v, wanted = %v", r.Duration(), time.Second)
	}
	if _, ok := r.Attributes["late"]; ok {
		t.Error("late attribute was accepted")
	}
}

func TestRootSpanIsItsOwnTrace(t *testing.T) {
	s := New(NewID(), "", KindSession, "agentscope-session", "", time.Now())
	if s.TraceID() != s.ID() {
		t.Errorf("trace id: got = %s, wanted = %s", s.TraceID(), s.ID())
	}
	child := New(NewID(), s.TraceID(), KindAgent, "Workflow", s.ID(), time.Now())
	if child.TraceID() != s.ID() {
		t.Errorf("child trace id: got = %s, wanted = %s", child.TraceID(), s.ID())
	}
}

func TestRecordJSON(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(NewID(), "t1", KindTool, "Lookup", "p1", start, attribute.String("tool.name", "Lookup"))
	if err := s.Finish(StatusOK, start.Add(time.Millisecond), nil); err != nil {
		t.Fatalf("Finish() = %v", err)
	}

	b, err := json.Marshal(s.Record())
	if err != nil {
		t.Fatalf("json.Marshal() = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("json.Unmarshal() = %v", err)
	}
	for _, key := range []string{"id", "trace_id", "kind", "name", "parent_id", "start_time", "end_time", "status", "attributes"} {
		if _, ok := got[key]; !ok {
			t.Errorf("exported record is missing %q: %s", key, b)
		}
	}
	if _, ok := got["error"]; ok {
		t.Errorf("ok span exported an error field: %s", b)
	}
	if got["kind"] != "tool" || got["status"] != "ok" {
		t.Errorf("kind/status: got = %v/%v, wanted = tool/ok", got["kind"], got["status"])
	}
}

func TestAttributesKeysAndClone(t *testing.T) {
	a := Attributes{}
	a.Set(attribute.String("b", "2"), attribute.String("a", "1"), attribute.KeyValue{})
	if diff := cmp.Diff([]string{"a", "b"}, a.Keys()); diff != "" {
		t.Errorf("Keys() (-want +got):\n%s", diff)
	}
	c := a.Clone()
	c.Set(attribute.String("a", "changed"))
	if v, _ := a.Get("a"); v.AsString() != "1" {
		t.Errorf("clone aliased original: got = %q, wanted = %q", v.AsString(), "1")
	}
}
