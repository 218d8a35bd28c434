/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs a small traced agent: a "Workflow" agent that looks a
// value up with a tool and answers with a model. Closed spans are written to
// stdout as JSON lines and the trace is printed as a table on exit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/executor"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/model/claudemodel"
	"chainguard.dev/agentscope/agents/model/googlemodel"
	"chainguard.dev/agentscope/agents/model/openaimodel"
	"chainguard.dev/agentscope/agents/toolcall"
	"chainguard.dev/agentscope/instrumentation"
	"chainguard.dev/agentscope/instrumentation/export"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-envconfig"
	"google.golang.org/genai"
)

type config struct {
	Provider string `env:"PROVIDER,default=google"`
	Model    string `env:"MODEL"`
	Prompt   string `env:"PROMPT,default=What is the answer to everything? Use the Lookup tool."`

	APIKey    string `env:"PROVIDER_API_KEY"`
	ProjectID string `env:"GOOGLE_CLOUD_PROJECT"`
	Region    string `env:"GOOGLE_CLOUD_REGION,default=us-east5"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	apiKey, opts, err := instrumentation.OptionsFromEnv(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "processing instrumentation config: %v", err)
	}
	rec := export.NewRecorder()
	opts = append(opts, instrumentation.WithProcessors(
		rec,
		export.Logger{},
		export.JSONLines(os.Stdout),
		export.Metrics(prometheus.DefaultRegisterer),
	))
	if err := instrumentation.Init(ctx, apiKey, opts...); err != nil {
		clog.FatalContextf(ctx, "initializing instrumentation: %v", err)
	}

	runErr := run(ctx, cfg)

	if err := instrumentation.Shutdown(ctx); err != nil {
		clog.ErrorContextf(ctx, "shutting down instrumentation: %v", err)
	}
	for _, tr := range rec.Traces() {
		if err := export.Report(os.Stderr, tr); err != nil {
			clog.ErrorContextf(ctx, "rendering trace: %v", err)
		}
	}
	if runErr != nil {
		clog.FatalContextf(ctx, "workflow failed: %v", runErr)
	}
}

func run(ctx context.Context, cfg config) error {
	m, err := newModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating model: %w", err)
	}

	// Init decorated the executor's entry points; nothing here is wrapped by hand.
	agent, err := executor.New[string](m,
		executor.WithName[string]("Workflow"),
		executor.WithSystemInstructions[string]("Answer with a single short sentence."),
		executor.WithMaxTurns[string](5))
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}

	answer, err := agent.Execute(ctx, cfg.Prompt, tools())
	if err != nil {
		return err
	}
	clog.InfoContextf(ctx, "Answer: %s", answer)
	return nil
}

func tools() map[string]toolcall.Tool[string] {
	facts := map[string]string{
		"answer":         "42",
		"speed of light": "299792458 m/s",
	}
	return map[string]toolcall.Tool[string]{
		"Lookup": {
			Def: toolcall.Definition{
				Name:        "Lookup",
				Description: "Looks up a fact by key.",
				Parameters: []toolcall.Parameter{{
					Name:        "key",
					Type:        "string",
					Description: "The fact to look up, e.g. \"answer\".",
					Required:    true,
				}},
			},
			Handler: func(ctx context.Context, call toolcall.ToolCall, trace *agenttrace.Trace[string], _ *string) map[string]any {
				key, errResp := toolcall.Param[string](ctx, call, trace, "key")
				if errResp != nil {
					return errResp
				}
				tc := trace.StartToolCall(ctx, call.ID, call.Name, call.Args)
				v, ok := facts[key]
				if !ok {
					resp := toolcall.Error("no fact named %q", key)
					tc.Complete(resp, fmt.Errorf("no fact named %q", key))
					return resp
				}
				resp := map[string]any{"value": v}
				tc.Complete(resp, nil)
				return resp
			},
		},
	}
}

func newModel(ctx context.Context, cfg config) (model.Model, error) {
	switch cfg.Provider {
	case "google":
		client, err := genai.NewClient(ctx, googleConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("creating genai client: %w", err)
		}
		var opts []googlemodel.Option
		if cfg.Model != "" {
			opts = append(opts, googlemodel.WithModel(cfg.Model))
		}
		return googlemodel.New(client, opts...)

	case "claude":
		var opts []claudemodel.Option
		if cfg.Model != "" {
			opts = append(opts, claudemodel.WithModel(cfg.Model))
		}
		if cfg.APIKey == "" {
			return claudemodel.NewVertex(ctx, cfg.Region, cfg.ProjectID, opts...)
		}
		return claudemodel.New(anthropic.NewClient(anthropicoption.WithAPIKey(cfg.APIKey)), opts...)

	case "openai":
		var opts []openaimodel.Option
		if cfg.Model != "" {
			opts = append(opts, openaimodel.WithModel(cfg.Model))
		}
		return openaimodel.New(openai.NewClient(openaioption.WithAPIKey(cfg.APIKey)), opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func googleConfig(cfg config) *genai.ClientConfig {
	if cfg.APIKey != "" {
		return &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	}
	return &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Region,
		Backend:  genai.BackendVertexAI,
	}
}
