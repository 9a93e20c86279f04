// Package server exposes the tool registry over an MCP-style JSON-RPC HTTP
// endpoint, plus a liveness probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mpostma/toolgate/internal/logging"
	"github.com/mpostma/toolgate/internal/tool"
	"github.com/mpostma/toolgate/internal/version"
)

const protocolVersion = "2024-11-05"

// Capabilities flags which capability groups are usable. Reported by /health
// and never probed by executing a tool.
type Capabilities struct {
	Filesystem bool
	Runner     bool
	OpenAI     bool
}

// Server serves the tool registry over HTTP.
type Server struct {
	registry   *tool.Registry
	caps       Capabilities
	log        *logging.Logger
	httpServer *http.Server
}

// New creates a server for a fully-registered registry. Registration must be
// complete before Start; the registry is treated as read-only from here on.
func New(registry *tool.Registry, caps Capabilities, log *logging.Logger) *Server {
	return &Server{
		registry: registry,
		caps:     caps,
		log:      log.Sub("server"),
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", s.handleMCP)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	return mux
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Int("tools", s.registry.Len()).Msg("tool server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info().Msg("shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.Version,
		Tools:   s.registry.Len(),
		Capabilities: map[string]bool{
			"filesystem": s.caps.Filesystem,
			"runner":     s.caps.Runner,
			"openai":     s.caps.OpenAI,
		},
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, codeParseError, "parse error", err.Error())
		return
	}

	if req.Method == "" {
		s.writeError(w, req.ID, codeInvalidRequest, "invalid request", "method is required")
		return
	}

	// Notifications carry no id and expect no response body.
	if req.ID == nil {
		if req.Method == "notifications/initialized" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.writeError(w, nil, codeInvalidRequest, "invalid request", "id is required")
		return
	}

	s.log.Debug().Str("method", req.Method).Any("id", req.ID).Msg("rpc request")

	switch req.Method {
	case "initialize":
		s.writeResult(w, req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    capabilities{Tools: map[string]any{}},
			ServerInfo:      serverInfo{Name: "toolgate", Version: version.Version},
		})
	case "tools/list":
		s.writeResult(w, req.ID, listToolsResult{Tools: s.registry.Definitions()})
	case "tools/call":
		s.handleCallTool(r.Context(), w, req)
	default:
		s.writeError(w, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

func (s *Server) handleCallTool(ctx context.Context, w http.ResponseWriter, req rpcRequest) {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if params.Name == "" {
		s.writeError(w, req.ID, codeInvalidParams, "invalid params", "tool name is required")
		return
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	res := s.registry.Dispatch(ctx, tool.Request{
		ID:   fmt.Sprint(req.ID),
		Tool: params.Name,
		Args: params.Arguments,
	})

	// Caller configuration errors are protocol-level; handler failures are
	// tool results the model is meant to see.
	if res.Failure != nil {
		switch res.Failure.Kind {
		case tool.KindUnknownTool, tool.KindInvalidArguments:
			s.writeError(w, req.ID, codeInvalidParams, res.Failure.Message, string(res.Failure.Kind))
			return
		}
		s.writeResult(w, req.ID, toolCallResult{
			Content:     []contentItem{{Type: "text", Text: res.Failure.Message}},
			IsError:     true,
			FailureKind: res.Failure.Kind,
		})
		return
	}

	text, err := json.Marshal(res.Content)
	if err != nil {
		s.writeError(w, req.ID, codeInternalError, "internal error", err.Error())
		return
	}
	s.writeResult(w, req.ID, toolCallResult{
		Content: []contentItem{{Type: "text", Text: string(text)}},
	})
}

func (s *Server) writeResult(w http.ResponseWriter, id, result any) {
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: jsonrpcVersion, ID: id, Result: result})
}

func (s *Server) writeError(w http.ResponseWriter, id any, code int, message string, data any) {
	s.log.Debug().Int("code", code).Str("message", message).Msg("rpc error response")
	writeJSON(w, http.StatusOK, rpcResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &rpcError{Code: code, Message: message, Data: data},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
