package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/ironsheep/hue-variants-mcp/internal/config"
	"github.com/ironsheep/hue-variants-mcp/internal/imaging"
	"github.com/ironsheep/hue-variants-mcp/internal/jobs"
)

// ServerName and ServerVersion are reported in the initialize handshake.
const (
	ServerName    = "hue-variants-mcp"
	ServerVersion = "0.1.0"
)

// Server handles MCP protocol communication
type Server struct {
	cache    *imaging.ImageCache
	registry *jobs.Registry
	config   config.Config

	outMu   sync.Mutex
	encoder *json.Encoder

	calls sync.WaitGroup
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a server whose jobs start from the default configuration.
func New() *Server {
	return NewWithConfig(config.Defaults())
}

// NewWithConfig creates a server whose jobs start from cfg.
func NewWithConfig(cfg config.Config) *Server {
	return &Server{
		cache:    imaging.NewImageCache(),
		registry: jobs.NewRegistry(jobs.DefaultMaxEvents),
		config:   cfg.Clone(),
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads newline-delimited requests from r and writes responses to w
// until r is exhausted. Tool calls run concurrently, so a blocking
// variant_wait does not hold up later requests. Once r is exhausted, running
// jobs are cancelled, and Serve returns after in-flight calls and every job
// have finished.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	s.outMu.Lock()
	s.encoder = json.NewEncoder(w)
	s.outMu.Unlock()
	defer s.shutdown()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		if req.Method == "tools/call" {
			s.calls.Add(1)
			go func(req *MCPRequest) {
				defer s.calls.Done()
				s.send(s.handleRequest(req))
			}(&req)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			s.send(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// shutdown stops running jobs and waits for them and for in-flight calls.
// Jobs submitted by a call still in flight at the first cancel are caught by
// the second.
func (s *Server) shutdown() {
	s.registry.CancelAll()
	s.calls.Wait()
	s.registry.CancelAll()
	s.registry.WaitAll()
}

// send writes one message. Job goroutines emit notifications concurrently
// with responses, so writes are serialized.
func (s *Server) send(v interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	if s.encoder == nil {
		return
	}
	if err := s.encoder.Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// notify sends a JSON-RPC notification.
func (s *Server) notify(method string, params interface{}) {
	s.send(&MCPNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": ServerVersion,
			},
		},
	}
}
