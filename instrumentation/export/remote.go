/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/chainguard-dev/clog"
	"github.com/hashicorp/go-retryablehttp"
)

// RemoteOption configures a RemoteExporter.
type RemoteOption func(*RemoteExporter)

// WithBatchSize sets how many records are sent per request.
func WithBatchSize(n int) RemoteOption {
	return func(r *RemoteExporter) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithBufferSize sets how many records may wait for delivery before new
// ones are dropped.
func WithBufferSize(n int) RemoteOption {
	return func(r *RemoteExporter) {
		if n > 0 {
			r.bufferSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait.
func WithFlushInterval(d time.Duration) RemoteOption {
	return func(r *RemoteExporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithHTTPClient sets the client requests are sent with.
func WithHTTPClient(c *retryablehttp.Client) RemoteOption {
	return func(r *RemoteExporter) {
		r.client = c
	}
}

// RemoteExporter ships closed spans to an HTTP collector in batches.
// OnEnd never blocks: when the buffer is full the record is dropped.
type RemoteExporter struct {
	endpoint   string
	apiKey     string
	client     *retryablehttp.Client
	batchSize  int
	bufferSize int
	interval   time.Duration

	queue   chan spans.Record
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Int64
}

// Remote starts an exporter posting to endpoint with apiKey as bearer token.
func Remote(endpoint, apiKey string, opts ...RemoteOption) *RemoteExporter {
	r := &RemoteExporter{
		endpoint:   endpoint,
		apiKey:     apiKey,
		batchSize:  64,
		bufferSize: 1024,
		interval:   2 * time.Second,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = retryablehttp.NewClient()
		r.client.RetryMax = 3
		r.client.RetryWaitMin = 200 * time.Millisecond
		r.client.RetryWaitMax = 5 * time.Second
		r.client.Logger = nil
	}
	r.queue = make(chan spans.Record, r.bufferSize)
	go r.run()
	return r
}

// OnStart implements lifecycle.Processor.
func (*RemoteExporter) OnStart(context.Context, spans.Record) {}

// OnEnd implements lifecycle.Processor.
func (r *RemoteExporter) OnEnd(ctx context.Context, rec spans.Record) {
	if r.closed.Load() {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- rec:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			clog.FromContext(ctx).With("dropped", n).Warn("Span export buffer full, dropping records")
		}
	}
}

// Dropped returns how many records were discarded.
func (r *RemoteExporter) Dropped() int64 {
	return r.dropped.Load()
}

func (r *RemoteExporter) run() {
	defer close(r.done)
	ctx := context.Background()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]spans.Record, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.post(ctx, batch); err != nil {
			clog.FromContext(ctx).With("records", len(batch)).With("error", err).Warn("Failed to export spans")
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-r.queue:
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.stop:
			for {
				select {
				case rec := <-r.queue:
					batch = append(batch, rec)
					if len(batch) >= r.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

type payload struct {
	Spans []spans.Record `json:"spans"`
}

func (r *RemoteExporter) post(ctx context.Context, batch []spans.Record) error {
	body, err := json.Marshal(payload{Spans: batch})
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting batch: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("collector returned %s", resp.Status)
	}
	return nil
}

// Shutdown stops accepting records and flushes what is buffered.
func (r *RemoteExporter) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.stop)
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("span export did not drain"), ctx.Err())
	}
}
