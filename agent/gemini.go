package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"google.golang.org/genai"

	"github.com/xraph/berth"
	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/container"
	"github.com/xraph/berth/query"
)

const plannerInstruction = `You are a container tracking assistant for PNCT (Port Newark Container Terminal).
Call exactly one of the provided tools to answer the user's question.
Container numbers are 4 letters followed by 7 digits (for example ABCD1234567); users may
write them in lowercase or with spaces or dashes. Always pass the number normalized to
uppercase without separators. If the user names several containers, use the first.`

const composerInstruction = `You convert container tracking results into a single JSON object.
Output only the JSON object, no markdown and no commentary. Use exactly these fields:
container_id (string or null), intent (one of get_info, check_availability, get_location,
check_holds, get_lfd), confidence (0..1), message (a short conversational answer),
container_data (the data object you were given, unchanged, or null), has_errors (bool),
error_message (string or null). Never invent data that is not in the result.
Highlight holds and an approaching last free day in the message.`

// Gemini is a Reasoner backed by the Gemini API. Planning uses function
// calling over the capability catalogue; composition asks for a JSON
// record.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	logger      *slog.Logger
}

var _ Reasoner = (*Gemini)(nil)

// NewGemini creates a Gemini reasoner from cfg. It returns
// berth.ErrReasonerUnavailable when no API key is configured.
func NewGemini(ctx context.Context, cfg berth.ReasonerConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("agent: gemini: %w: api key is required", berth.ErrReasonerUnavailable)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: gemini: create client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	logger.Info("gemini reasoner initialized", slog.String("model", model))

	return &Gemini{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		logger:      logger,
	}, nil
}

// Plan implements Reasoner.
func (g *Gemini) Plan(ctx context.Context, q string, catalogue []capability.CatalogueEntry) (Plan, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(q), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(plannerInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
		Tools:             []*genai.Tool{{FunctionDeclarations: declarations(catalogue)}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny},
		},
	})
	if err != nil {
		return Plan{}, fmt.Errorf("agent: gemini: plan: %w", err)
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		// No tool chosen; fall back to reading ids and intent from the
		// query itself.
		g.logger.Warn("gemini returned no function call", slog.String("text", resp.Text()))
		return Rules{}.Plan(ctx, q, catalogue)
	}

	call := calls[0]
	intent, ok := query.IntentFor(call.Name)
	if !ok {
		intent = query.Classify(q)
	}
	plan := Plan{Intent: intent, Capability: call.Name, Confidence: 0.95}

	if raw, ok := call.Args[capability.ParamContainerID].(string); ok {
		plan.ContainerID = container.Normalize(raw)
	}
	if plan.ContainerID == "" {
		if cid, ok := query.FindContainerID(q); ok {
			plan.ContainerID = cid
		}
	}

	g.logger.Debug("gemini planned query",
		slog.String("capability", plan.Capability),
		slog.String("container_id", plan.ContainerID),
	)
	return plan, nil
}

// Compose implements Reasoner.
func (g *Gemini) Compose(ctx context.Context, c Composition) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"query":        c.Query,
		"container_id": c.Plan.ContainerID,
		"intent":       c.Plan.Intent,
		"confidence":   c.Plan.Confidence,
		"result":       c.Result,
	})
	if err != nil {
		return "", fmt.Errorf("agent: gemini: encode result: %w", err)
	}

	var prompt strings.Builder
	prompt.WriteString("User question:\n")
	prompt.WriteString(c.Query)
	prompt.WriteString("\n\nTool result:\n")
	prompt.Write(payload)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.String()), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(composerInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("agent: gemini: compose: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("agent: gemini: compose: empty response")
	}
	return text, nil
}

// declarations exposes catalogue entries as function declarations. Every
// parameter is a required string.
func declarations(catalogue []capability.CatalogueEntry) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(catalogue))
	for _, e := range catalogue {
		props := make(map[string]*genai.Schema, len(e.Parameters))
		required := make([]string, 0, len(e.Parameters))
		for name, hint := range e.Parameters {
			props[name] = &genai.Schema{Type: genai.TypeString, Description: hint}
			required = append(required, name)
		}
		slices.Sort(required)
		out = append(out, &genai.FunctionDeclaration{
			Name:        e.Name,
			Description: e.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}
	return out
}
