/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package wrapper

import (
	"context"
	"fmt"
	"sync"

	"chainguard.dev/agentscope/instrumentation/lifecycle"
	"chainguard.dev/agentscope/instrumentation/spans"
	"go.opentelemetry.io/otel/attribute"
)

// Wrapper opens and closes spans around decorated calls.
// A nil Wrapper, or one without a Lifecycle, decorates nothing.
type Wrapper struct {
	lc *lifecycle.Lifecycle

	mu    sync.Mutex
	hooks *entryPoints // non-nil while installed into the executor bindings
}

// New returns a Wrapper recording into lc.
func New(lc *lifecycle.Lifecycle) *Wrapper {
	return &Wrapper{lc: lc}
}

func (w *Wrapper) enabled() bool {
	return w != nil && w.lc != nil
}

// PanicError is the cause recorded on a span whose call panicked.
type PanicError struct {
	Value any
}

func (p PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Around runs fn inside a span of the given kind and name. The span is closed
// with status ok when fn returns a nil error and error otherwise.
func Around[T any](ctx context.Context, w *Wrapper, kind spans.Kind, name string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	return around(ctx, w, kind, name, attrs, fn, func(_ T, err error) error { return err })
}

// around is Around with a custom failure classifier: cause decides which
// outcome closes the span with status error.
func around[T any](ctx context.Context, w *Wrapper, kind spans.Kind, name string, attrs []attribute.KeyValue,
	fn func(context.Context) (T, error), cause func(T, error) error) (T, error) {
	if !w.enabled() {
		return fn(ctx)
	}

	spanCtx, id := w.lc.Start(ctx, kind, name, attrs...)
	if id == "" {
		// No span was opened; spanCtx still carries the caller's span.
		return fn(ctx)
	}
	finished := false
	defer func() {
		if finished {
			return
		}
		v := recover()
		w.lc.Finish(spanCtx, PanicError{Value: v})
		if v != nil {
			panic(v)
		}
		// runtime.Goexit: let it continue unwinding.
	}()

	res, err := fn(spanCtx)
	finished = true
	w.lc.Finish(spanCtx, cause(res, err))
	return res, err
}
