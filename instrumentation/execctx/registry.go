/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package execctx

import (
	"slices"
	"sync"

	"chainguard.dev/agentscope/instrumentation/spans"
)

// ID identifies an execution context. Zero is never a live context.
type ID uint64

type stack struct {
	base     spans.ID // parent of the bottom span, inherited from the spawning context
	spans    []spans.ID
	explicit bool // allocated by Open for Push, never handed to Enter callers
}

func (s *stack) top() spans.ID {
	if len(s.spans) == 0 {
		return s.base
	}
	return s.spans[len(s.spans)-1]
}

// Registry maps execution contexts to their open span stacks.
type Registry struct {
	mu     sync.Mutex
	next   ID
	stacks map[ID]*stack
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stacks: map[ID]*stack{}}
}

func (r *Registry) open(base spans.ID, explicit bool) ID {
	r.next++
	r.stacks[r.next] = &stack{base: base, explicit: explicit}
	return r.next
}

// Open allocates a new execution context for Push whose bottom span will be
// parented to base.
func (r *Registry) Open(base spans.ID) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open(base, true)
}

// Enter pushes span onto the execution context it belongs to and returns that
// context together with span's parent.
//
// id is reused only if it is still live and its top is expectedTop, i.e. the
// caller is the code that last touched it. Otherwise a fresh context is
// opened with base as the parent of its bottom span.
func (r *Registry) Enter(id ID, expectedTop, base, span spans.ID) (ID, spans.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stacks[id]
	if !ok || s.explicit || s.top() != expectedTop {
		id = r.open(base, false)
		s = r.stacks[id]
	}
	parent := s.top()
	s.spans = append(s.spans, span)
	return id, parent
}

// Push pushes span onto the stack of id and returns the context it landed on
// together with span's parent. If id is not live, it is created with base as
// the parent of its bottom span. Zero, and ids of contexts that Enter owns, are
// never pushed onto: a fresh context is opened instead.
func (r *Registry) Push(id ID, base, span spans.ID) (ID, spans.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stacks[id]
	switch {
	case id == 0 || (ok && !s.explicit):
		id = r.open(base, true)
		s = r.stacks[id]
	case !ok:
		s = &stack{base: base, explicit: true}
		r.stacks[id] = s
		r.next = max(r.next, id)
	}
	parent := s.top()
	s.spans = append(s.spans, span)
	return id, parent
}

// Top returns the active span of id: the top of its stack, or its base when
// the stack is empty.
func (r *Registry) Top(id ID) (spans.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stacks[id]
	if !ok {
		return "", false
	}
	return s.top(), true
}

// Parent returns the span a new span in id would be parented to.
func (r *Registry) Parent(id ID) spans.ID {
	top, _ := r.Top(id)
	return top
}

// Unwind pops span and everything above it off the stack of id, top first.
// It reports false, popping nothing, if span is not on the stack.
// The context is removed once its stack is empty.
func (r *Registry) Unwind(id ID, span spans.ID) ([]spans.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stacks[id]
	if !ok {
		return nil, false
	}
	i := slices.Index(s.spans, span)
	if i < 0 {
		return nil, false
	}
	popped := slices.Clone(s.spans[i:])
	slices.Reverse(popped)
	s.spans = s.spans[:i]
	if len(s.spans) == 0 {
		delete(r.stacks, id)
	}
	return popped, true
}

// Remove drops span from whichever stack holds it, wherever it sits.
// The reaper uses it for spans whose execution context was abandoned.
func (r *Registry) Remove(span spans.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.stacks {
		if i := slices.Index(s.spans, span); i >= 0 {
			s.spans = slices.Delete(s.spans, i, i+1)
			if len(s.spans) == 0 {
				delete(r.stacks, id)
			}
			return true
		}
	}
	return false
}

// Depth returns the number of open spans on the stack of id.
func (r *Registry) Depth(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stacks[id]; ok {
		return len(s.spans)
	}
	return 0
}

// Len returns the number of live execution contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stacks)
}

// Reset drops every execution context.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stacks = map[ID]*stack{}
}
