// Package chat runs the bounded tool-calling loop that turns one user query
// into a final answer with citation sources. The agent drives the model
// manually: tool requests come back to it instead of being auto-executed, so
// it controls round counting, sequential dispatch, and source accumulation.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/lectern/lectern/internal/tools"
)

const (
	// DefaultMaxRounds is the tool-round cap applied when Config leaves it
	// unset. Two rounds cover the intended chains (outline first, then a
	// content search) without letting the model wander.
	DefaultMaxRounds = 2

	// fallbackAnswer is returned when the model produces no text at all.
	fallbackAnswer = "I couldn't generate a response. Please try rephrasing your question."
)

// ErrModelCall indicates the underlying model call failed after retries.
// It wraps the provider error and aborts the whole query: there is no
// partial answer.
var ErrModelCall = errors.New("model call failed")

// Response is the complete outcome of one answered query.
type Response struct {
	Text    string         `json:"answer"`
	Sources []tools.Source `json:"sources"`
}

// Config carries the agent's dependencies and tuning. Genkit, Registry,
// Tools, and ModelName are required.
type Config struct {
	Genkit   *genkit.Genkit
	Registry *tools.Registry
	Tools    []ai.Tool // pre-registered via tools.Register
	Logger   *slog.Logger

	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"

	// MaxRounds caps how many tool-executing rounds one query may use.
	// Zero applies DefaultMaxRounds.
	MaxRounds int

	// QueryTimeout bounds the whole loop, model calls and tool calls
	// included. Zero disables the bound.
	QueryTimeout time.Duration

	Temperature float64
	MaxTokens   int

	RetryConfig RetryConfig
	RateLimiter *rate.Limiter // nil uses a default limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Registry == nil {
		return errors.New("tool registry is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Agent answers course questions. All configuration is captured immutably at
// construction, so one Agent serves concurrent queries; per-query state
// (conversation turns, accumulated sources, round count) lives entirely on
// the Answer stack.
type Agent struct {
	g        *genkit.Genkit
	registry *tools.Registry
	logger   *slog.Logger

	modelName    string
	maxRounds    int
	queryTimeout time.Duration
	temperature  float64
	maxTokens    int

	toolRefs  []ai.ToolRef
	toolNames string

	retryConfig RetryConfig
	rateLimiter *rate.Limiter
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		g:            cfg.Genkit,
		registry:     cfg.Registry,
		logger:       logger,
		modelName:    cfg.ModelName,
		maxRounds:    maxRounds,
		queryTimeout: cfg.QueryTimeout,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		toolRefs:     toolRefs,
		toolNames:    strings.Join(names, ", "),
		retryConfig:  retryConfig,
		rateLimiter:  rl,
	}

	a.logger.Info("chat agent initialized",
		"model", a.modelName,
		"tools", a.toolNames,
		"maxRounds", a.maxRounds)
	return a, nil
}

// Answer runs the full loop for one query. history is the rendered prior
// conversation ("" for a fresh session); it is folded into the system
// instructions and stays fixed for the duration of the loop.
//
// The loop holds these guarantees:
//   - tool requests within a round run sequentially, in request order
//   - the follow-up model call after a tool round still offers the tools
//   - after maxRounds completed tool rounds, one final call with tools
//     withheld forces a terminal text answer
//   - a failing tool never aborts the loop; only a failing model call does
func (a *Agent) Answer(ctx context.Context, query, history string) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	if a.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.queryTimeout)
		defer cancel()
	}

	system := buildSystemPrompt(history)
	messages := []*ai.Message{ai.NewUserMessage(ai.NewTextPart(query))}

	var sources []tools.Source
	rounds := 0

	for {
		resp, err := a.generateWithRetry(ctx, a.generateOpts(system, messages, true))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelCall, err)
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			return &Response{Text: finalText(resp), Sources: sources}, nil
		}

		rounds++
		a.logger.Debug("executing tool round",
			"round", rounds,
			"requests", len(requests))

		messages = append(messages, resp.Message)
		messages = append(messages, a.executeRound(ctx, requests, &sources))

		if rounds >= a.maxRounds {
			final, err := a.generateWithRetry(ctx, a.generateOpts(system, messages, false))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrModelCall, err)
			}
			return &Response{Text: finalText(final), Sources: sources}, nil
		}
	}
}

// executeRound dispatches every requested tool call in order and returns the
// tool-role message carrying one response part per request, with the Ref
// copied through so the model can correlate them.
func (a *Agent) executeRound(ctx context.Context, requests []*ai.ToolRequest, sources *[]tools.Source) *ai.Message {
	parts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		text, srcs := a.registry.Execute(ctx, req.Name, toParams(req.Input))
		*sources = append(*sources, srcs...)
		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: text,
		}))
	}
	return ai.NewMessage(ai.RoleTool, nil, parts...)
}

// generateOpts builds the model call options. withTools controls whether the
// tool schemas are offered; the final forced call at the round cap withholds
// them so the model must answer in text.
func (a *Agent) generateOpts(system string, messages []*ai.Message, withTools bool) []ai.GenerateOption {
	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
	}

	config := make(map[string]any)
	if a.temperature > 0 {
		config["temperature"] = a.temperature
	}
	if a.maxTokens > 0 {
		config["maxOutputTokens"] = a.maxTokens
	}
	if len(config) > 0 {
		opts = append(opts, ai.WithConfig(config))
	}

	if withTools {
		opts = append(opts,
			ai.WithTools(a.toolRefs...),
			ai.WithToolChoice(ai.ToolChoiceAuto),
			ai.WithReturnToolRequests(true),
		)
	}
	return opts
}

// toParams normalizes a tool request input to the map form the registry
// expects. Inputs arrive as decoded JSON, so anything that is not already a
// map goes through a JSON round trip.
func toParams(input any) map[string]any {
	if input == nil {
		return nil
	}
	if m, ok := input.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(input)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func finalText(resp *ai.ModelResponse) string {
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return fallbackAnswer
	}
	return text
}
