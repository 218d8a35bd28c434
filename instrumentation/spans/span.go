/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spans

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ID identifies a span. The zero value means "no span".
type ID string

// NewID returns a fresh random span id.
func NewID() ID {
	return ID(uuid.NewString())
}

// Kind is the category of work a span covers.
type Kind string

const (
	KindSession Kind = "session"
	KindAgent   Kind = "agent"
	KindLLM     Kind = "llm"
	KindTool    Kind = "tool"
)

// Status is the lifecycle state of a span.
type Status string

const (
	StatusOpen         Status = "open"
	StatusOK           Status = "ok"
	StatusError        Status = "error"
	StatusOrphanClosed Status = "orphan-closed"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusOK, StatusError, StatusOrphanClosed:
		return true
	}
	return false
}

var (
	// ErrNotOpen is returned when writing attributes to a span that has ended.
	ErrNotOpen = errors.New("span is not open")
	// ErrAlreadyTerminal is returned when ending a span that has already ended.
	ErrAlreadyTerminal = errors.New("span already ended")
	// ErrInvalidStatus is returned when ending a span with a non-terminal status.
	ErrInvalidStatus = errors.New("invalid terminal status")
)

// Span is one traced unit of work.
// Identity fields are fixed at creation; status, end time, error and attributes
// are guarded by mu.
type Span struct {
	id      ID
	traceID ID
	kind    Kind
	name    string
	parent  ID
	start   time.Time

	mu     sync.Mutex
	end    time.Time
	status Status
	err    string
	attrs  Attributes
}

// New creates an open span started at start. An empty traceID makes the span
// the root of its own trace.
func New(id, traceID ID, kind Kind, name string, parent ID, start time.Time, attrs ...attribute.KeyValue) *Span {
	s := &Span{
		id:      id,
		traceID: traceID,
		kind:    kind,
		name:    name,
		parent:  parent,
		start:   start,
		status:  StatusOpen,
		attrs:   Attributes{},
	}
	if s.traceID == "" {
		s.traceID = s.id
	}
	s.attrs.Set(attrs...)
	return s
}

func (s *Span) ID() ID               { return s.id }
func (s *Span) TraceID() ID          { return s.traceID }
func (s *Span) Kind() Kind           { return s.kind }
func (s *Span) Name() string         { return s.name }
func (s *Span) Parent() ID           { return s.parent }
func (s *Span) StartTime() time.Time { return s.start }

// Status returns the current status.
func (s *Span) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetAttributes merges kvs into the span's attributes, last write wins per key.
func (s *Span) SetAttributes(kvs ...attribute.KeyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusOpen {
		return fmt.Errorf("%w: %s %q is %s", ErrNotOpen, s.kind, s.name, s.status)
	}
	s.attrs.Set(kvs...)
	return nil
}

// Finish moves the span to a terminal status at time at.
// cause is recorded as the error message of the span when non-nil.
func (s *Span) Finish(status Status, at time.Time, cause error) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusOpen {
		return fmt.Errorf("%w: %s %q is %s", ErrAlreadyTerminal, s.kind, s.name, s.status)
	}
	s.status = status
	s.end = at
	if cause != nil {
		s.err = cause.Error()
	}
	return nil
}

// Record returns a snapshot of the span in export form.
func (s *Span) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Record{
		ID:         s.id,
		TraceID:    s.traceID,
		Kind:       s.kind,
		Name:       s.name,
		ParentID:   s.parent,
		StartTime:  s.start,
		Status:     s.status,
		Error:      s.err,
		Attributes: s.attrs.AsMap(),
	}
	if !s.end.IsZero() {
		end := s.end
		r.EndTime = &end
	}
	return r
}
