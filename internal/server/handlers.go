package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ironsheep/hue-variants-mcp/internal/config"
	"github.com/ironsheep/hue-variants-mcp/internal/imaging"
	"github.com/ironsheep/hue-variants-mcp/internal/jobs"
	"github.com/ironsheep/hue-variants-mcp/internal/naming"
	"github.com/ironsheep/hue-variants-mcp/internal/variant"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "variant_generate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls into the imaging, variant, or jobs packages
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Source Images
	case "image_load":
		return s.handleImageLoad(args)

	// Planning
	case "variant_hue_samples":
		return s.handleHueSamples(args)
	case "variant_config":
		return s.handleVariantConfig()

	// Jobs
	case "variant_generate":
		return s.handleVariantGenerate(args)
	case "variant_status":
		return s.handleVariantStatus(args)
	case "variant_cancel":
		return s.handleVariantCancel(args)
	case "variant_wait":
		return s.handleVariantWait(args)
	case "variant_list":
		return s.handleVariantList()
	case "variant_remove":
		return s.handleVariantRemove(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating absent arguments as empty.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Source Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Planning Handlers ===

type hueSamplesArgs struct {
	HueStart  *int `json:"hue_start"`
	HueEnd    *int `json:"hue_end"`
	StepCount *int `json:"step_count"`
}

// HueSamplesResult is returned by variant_hue_samples.
type HueSamplesResult struct {
	HueStart  int   `json:"hue_start"`
	HueEnd    int   `json:"hue_end"`
	StepCount int   `json:"step_count"`
	Samples   []int `json:"samples"`
}

func (s *Server) handleHueSamples(args json.RawMessage) (interface{}, error) {
	var a hueSamplesArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	cfg := s.config.Clone()
	if a.HueStart != nil {
		cfg.HueStart = *a.HueStart
	}
	if a.HueEnd != nil {
		cfg.HueEnd = *a.HueEnd
	}
	if a.StepCount != nil {
		cfg.StepCount = *a.StepCount
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &HueSamplesResult{
		HueStart:  cfg.HueStart,
		HueEnd:    cfg.HueEnd,
		StepCount: cfg.StepCount,
		Samples:   variant.HueSamples(cfg.HueStart, cfg.HueEnd, cfg.StepCount),
	}, nil
}

func (s *Server) handleVariantConfig() (interface{}, error) {
	return map[string]interface{}{
		"config":       s.config.Clone(),
		"named_colors": imaging.NamedColors(),
	}, nil
}

// === Job Handlers ===

type variantGenerateArgs struct {
	ImagePath     string          `json:"image_path"`
	OutputDir     string          `json:"output_dir"`
	BaseName      string          `json:"base_name"`
	Prefix        string          `json:"prefix"`
	Version       string          `json:"version"`
	ConfigPath    string          `json:"config_path"`
	Overrides     json.RawMessage `json:"overrides"`
	ProgressToken interface{}     `json:"progress_token"`
}

// jobConfig resolves the configuration for a new job: the server's, or the
// file at ConfigPath, with Overrides decoded on top.
func (s *Server) jobConfig(a *variantGenerateArgs) (config.Config, error) {
	cfg := s.config.Clone()
	if a.ConfigPath != "" {
		loaded, err := config.Load(a.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if len(a.Overrides) > 0 && !bytes.Equal(bytes.TrimSpace(a.Overrides), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(a.Overrides))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return config.Config{}, fmt.Errorf("failed to parse overrides: %w", err)
		}
	}
	return cfg, nil
}

func (s *Server) handleVariantGenerate(args json.RawMessage) (interface{}, error) {
	var a variantGenerateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	cfg, err := s.jobConfig(&a)
	if err != nil {
		return nil, err
	}

	req := variant.Request{
		ImagePath: a.ImagePath,
		OutputDir: a.OutputDir,
		Template:  naming.Template{BaseName: a.BaseName, Prefix: a.Prefix, Version: a.Version},
		Config:    cfg,
		Cache:     s.cache,
	}
	if a.ProgressToken != nil {
		token, total := a.ProgressToken, cfg.StepCount
		req.OnProgress = func(index int) {
			s.notify("notifications/progress", map[string]interface{}{
				"progressToken": token,
				"progress":      index + 1,
				"total":         total,
			})
		}
	}

	job, err := s.registry.Submit(context.Background(), req)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"job_id": job.ID(),
		"state":  job.State(),
		"total":  cfg.StepCount,
	}, nil
}

type jobArgs struct {
	JobID    string  `json:"job_id"`
	SinceSeq int64   `json:"since_seq"`
	Timeout  float64 `json:"timeout_seconds"`
}

// JobStatusResult is returned by variant_status and variant_wait.
type JobStatusResult struct {
	variant.Status
	Progress     int          `json:"progress"`
	FullProgress int          `json:"full_progress"`
	Events       []jobs.Event `json:"events,omitempty"`
	LastSeq      int64        `json:"last_seq"`
	TimedOut     bool         `json:"timed_out,omitempty"`
}

// scaledProgress reports how far the job's progress bar has moved: the
// scaled index of the last persisted step, or full once the job completed.
func scaledProgress(st variant.Status, full int) int {
	if st.State == variant.StateCompleted {
		return full
	}
	if st.Completed == 0 {
		return 0
	}
	return variant.ScaleProgress(st.Completed-1, st.Total, full)
}

func (s *Server) jobStatus(job *variant.Job, since int64) (*JobStatusResult, error) {
	st := job.Status()
	full := job.Config().FullProgress

	events, err := s.registry.Events(st.ID, since)
	if err != nil {
		return nil, err
	}

	last := since
	if n := len(events); n > 0 {
		last = events[n-1].Seq
	}

	return &JobStatusResult{
		Status:       st,
		Progress:     scaledProgress(st, full),
		FullProgress: full,
		Events:       events,
		LastSeq:      last,
	}, nil
}

func (s *Server) lookupJob(args json.RawMessage) (*variant.Job, *jobArgs, error) {
	var a jobArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, nil, err
	}
	if a.JobID == "" {
		return nil, nil, fmt.Errorf("job_id is required")
	}

	job, err := s.registry.Get(a.JobID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, a.JobID)
	}
	return job, &a, nil
}

func (s *Server) handleVariantStatus(args json.RawMessage) (interface{}, error) {
	job, a, err := s.lookupJob(args)
	if err != nil {
		return nil, err
	}
	return s.jobStatus(job, a.SinceSeq)
}

func (s *Server) handleVariantCancel(args json.RawMessage) (interface{}, error) {
	job, _, err := s.lookupJob(args)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Cancel(job.ID()); err != nil {
		return nil, fmt.Errorf("%w: %s is %s", err, job.ID(), job.State())
	}

	return map[string]interface{}{
		"job_id":           job.ID(),
		"cancel_requested": true,
		"state":            job.State(),
	}, nil
}

func (s *Server) handleVariantWait(args json.RawMessage) (interface{}, error) {
	job, a, err := s.lookupJob(args)
	if err != nil {
		return nil, err
	}

	timedOut := false
	if a.Timeout > 0 {
		timer := time.NewTimer(time.Duration(a.Timeout * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-job.Done():
		case <-timer.C:
			timedOut = true
		}
	} else {
		<-job.Done()
	}

	res, err := s.jobStatus(job, a.SinceSeq)
	if err != nil {
		return nil, err
	}
	res.TimedOut = timedOut
	return res, nil
}

func (s *Server) handleVariantList() (interface{}, error) {
	return map[string]interface{}{
		"jobs": s.registry.List(),
	}, nil
}

func (s *Server) handleVariantRemove(args json.RawMessage) (interface{}, error) {
	job, _, err := s.lookupJob(args)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Remove(job.ID()); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"job_id":  job.ID(),
		"removed": true,
	}, nil
}
