/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chainguard.dev/agentscope/instrumentation/collector"
	"chainguard.dev/agentscope/instrumentation/export"
	"chainguard.dev/agentscope/instrumentation/interceptor"
	"chainguard.dev/agentscope/instrumentation/lifecycle"
	"chainguard.dev/agentscope/instrumentation/spans"
	"chainguard.dev/agentscope/instrumentation/wrapper"
	"github.com/chainguard-dev/clog"
)

// Controller owns the process-wide instrumentation state.
type Controller struct {
	lc          *lifecycle.Lifecycle
	wrapper     *wrapper.Wrapper
	interceptor *interceptor.Interceptor
	collector   *collector.Collector

	mu         sync.Mutex
	installed  bool
	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// NewController creates a Controller with its own span lifecycle.
func NewController() *Controller {
	lc := lifecycle.New()
	return &Controller{
		lc:          lc,
		wrapper:     wrapper.New(lc),
		interceptor: interceptor.New(),
		collector:   collector.New(lc),
	}
}

var defaultController = NewController()

// Default returns the process-wide Controller used by Init and Shutdown.
func Default() *Controller { return defaultController }

// Init initializes the default Controller.
func Init(ctx context.Context, apiKey string, opts ...Option) error {
	return defaultController.Init(ctx, apiKey, opts...)
}

// Shutdown shuts the default Controller down.
func Shutdown(ctx context.Context) error {
	return defaultController.Shutdown(ctx)
}

// Lifecycle returns the span lifecycle spans are recorded in.
func (c *Controller) Lifecycle() *lifecycle.Lifecycle { return c.lc }

// Wrapper returns the decorator factory bound to this Controller.
func (c *Controller) Wrapper() *wrapper.Wrapper { return c.wrapper }

// Init installs the runtime hooks, attaches the processors and opens the
// session span. It is safe to call more than once: hooks and processors are
// installed by the first call after construction or Shutdown, and no second
// session is opened while one is open. apiKey is only used to authenticate
// remote export.
func (c *Controller) Init(ctx context.Context, apiKey string, opts ...Option) error {
	cfg := config{traceName: DefaultTraceName, autoStart: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid instrumentation options: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	log := clog.FromContext(ctx)

	if !c.installed {
		if !c.interceptor.Install(ctx) {
			log.Warn("Runtime tracing could not be intercepted, its native spans stay active")
		}
		c.collector.Install(ctx)
		if n := c.wrapper.Install(ctx); n < 3 {
			log.With("entry_points", n).Warn("Some executor entry points could not be decorated")
		}

		c.lc.AddProcessors(cfg.processors...)
		if cfg.endpoint != "" {
			c.lc.AddProcessors(export.Remote(cfg.endpoint, apiKey))
		}
		c.installed = true
	} else if len(cfg.processors) > 0 || cfg.endpoint != "" {
		log.Warn("Already initialized, ignoring processors and endpoint")
	}

	if cfg.autoStart {
		if id, opened := c.lc.OpenSession(ctx, cfg.traceName); !opened {
			clog.FromContext(ctx).With("session", id).Debug("Session already open")
		}
	}

	if cfg.reapInterval > 0 && c.stopReaper == nil {
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.lc.RunReaper(rctx, cfg.reapInterval, cfg.reapAfter)
		}()
		c.stopReaper, c.reaperDone = cancel, done
	}
	return nil
}

// Shutdown closes the session span, stops the reaper, restores the runtime
// hooks and shuts the processors down.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lc.Session() != "" {
		c.lc.CloseSession(ctx, spans.StatusOK)
	}
	c.haltReaper()
	c.uninstall(ctx)

	if err := c.lc.Shutdown(ctx); err != nil {
		return errors.Join(errors.New("shutting down span processors"), err)
	}
	return nil
}

// Reset returns the Controller to its state before Init, discarding open
// spans and processors without notifying them.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.haltReaper()
	c.uninstall(context.Background())
	c.lc.Reset()
}

func (c *Controller) haltReaper() {
	if c.stopReaper == nil {
		return
	}
	c.stopReaper()
	<-c.reaperDone
	c.stopReaper, c.reaperDone = nil, nil
}

func (c *Controller) uninstall(ctx context.Context) {
	if !c.installed {
		return
	}
	c.wrapper.Uninstall(ctx)
	c.collector.Uninstall(ctx)
	c.interceptor.Uninstall(ctx)
	c.installed = false
}
