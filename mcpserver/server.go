// Package mcpserver exposes the capability catalogue as Model Context
// Protocol tools. Every registered capability becomes one tool whose
// string parameters mirror the capability's declared parameters; an
// optional ask tool answers natural-language queries.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xraph/berth/agent"
	"github.com/xraph/berth/capability"
	"github.com/xraph/berth/dispatch"
)

// Name and Version are advertised to MCP clients.
const (
	Name    = "berth"
	Version = "1.0.0"
)

// AskTool is the name of the natural-language tool.
const AskTool = "ask_about_container"

// Executor runs a named capability.
type Executor interface {
	Execute(ctx context.Context, name string, params map[string]string) (*dispatch.ToolResult, error)
}

// Catalogue describes the registered capabilities. *capability.Registry
// satisfies it.
type Catalogue interface {
	List() []string
	Describe(name string) (capability.Metadata, error)
}

// Answerer answers natural-language queries.
type Answerer interface {
	Answer(ctx context.Context, q string) (*agent.Answer, error)
}

// Option configures a Server.
type Option func(*Server)

// WithAnswerer adds the ask tool backed by a.
func WithAnswerer(a Answerer) Option {
	return func(s *Server) { s.answerer = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is an MCP server over the capability catalogue.
type Server struct {
	mcp      *server.MCPServer
	exec     Executor
	answerer Answerer
	logger   *slog.Logger
}

// New builds a Server with one tool per capability in cat.
func New(exec Executor, cat Catalogue, opts ...Option) (*Server, error) {
	s := &Server{
		mcp:    server.NewMCPServer(Name, Version, server.WithToolCapabilities(true)),
		exec:   exec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, name := range cat.List() {
		md, err := cat.Describe(name)
		if err != nil {
			return nil, fmt.Errorf("mcpserver: describe %s: %w", name, err)
		}
		s.mcp.AddTool(toolFor(md), s.capabilityHandler(md))
	}

	if s.answerer != nil {
		s.mcp.AddTool(
			mcp.NewTool(AskTool,
				mcp.WithDescription("Answer a natural-language question about a PNCT container"),
				mcp.WithString("query", mcp.Required(), mcp.Description("The question, mentioning a container number")),
			),
			s.handleAsk,
		)
	}
	return s, nil
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Handler returns the SSE transport rooted at basePath. It serves
// basePath/sse and basePath/message.
func (s *Server) Handler(basePath string) http.Handler {
	return server.NewSSEServer(s.mcp, server.WithStaticBasePath(basePath))
}

func toolFor(md capability.Metadata) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(md.Description)}
	for _, p := range md.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		opts = append(opts, mcp.WithString(p.Name, props...))
	}
	return mcp.NewTool(md.Name, opts...)
}

func (s *Server) capabilityHandler(md capability.Metadata) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok && request.Params.Arguments != nil {
			return mcp.NewToolResultError("Invalid arguments type"), nil
		}

		params := make(map[string]string, len(md.Params))
		for _, p := range md.Params {
			if v, ok := args[p.Name].(string); ok {
				params[p.Name] = v
			}
		}

		res, err := s.exec.Execute(ctx, md.Name, params)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		body, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("mcpserver: encode result: %w", err)
		}
		if !res.OK() {
			s.logger.Warn("mcp tool failed",
				slog.String("tool", md.Name),
				slog.String("container_id", res.ContainerID),
				slog.String("error", res.Error),
			)
			return mcp.NewToolResultError(string(body)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	q, ok := args["query"].(string)
	if !ok || q == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}

	ans, err := s.answerer.Answer(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := json.Marshal(ans.Record)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode answer: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
