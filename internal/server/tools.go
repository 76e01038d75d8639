package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// jobIDProperty is shared by every tool that addresses a running job.
var jobIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Job ID returned by variant_generate",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source Images
		{
			Name:        "image_load",
			Description: "Load a source image and return its dimensions and format. The decoded image is cached and reused by variant_generate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file (PNG, JPEG, or GIF)",
					},
				},
				"required": []string{"path"},
			},
		},

		// Planning
		{
			Name:        "variant_hue_samples",
			Description: "Return the integer hue shifts a job would apply, evenly spaced from hue_start to hue_end inclusive. Omitted values come from the server configuration.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"hue_start": map[string]interface{}{
						"type":        "integer",
						"description": "First hue shift in degrees (0-360)",
					},
					"hue_end": map[string]interface{}{
						"type":        "integer",
						"description": "Last hue shift in degrees (0-360)",
					},
					"step_count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of variants",
					},
				},
			},
		},
		{
			Name:        "variant_config",
			Description: "Return the server's base job configuration and the color names accepted for the text band.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Jobs
		{
			Name:        "variant_generate",
			Description: "Start a job that writes step_count hue-rotated JPEG variants of an image to a directory, named {base_name}_v{version}.{index}_{prefix}.jpg. Returns immediately with a job ID.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Existing directory the variants are written to",
					},
					"base_name": map[string]interface{}{
						"type":        "string",
						"description": "File name stem",
					},
					"prefix": map[string]interface{}{
						"type":        "string",
						"description": "Suffix placed after the step index",
					},
					"version": map[string]interface{}{
						"type":        "string",
						"description": "Version label placed after _v",
					},
					"config_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional YAML configuration file used instead of the server configuration",
					},
					"overrides": map[string]interface{}{
						"type":        "object",
						"description": "Optional configuration fields applied on top, e.g. {\"step_count\": 10, \"overlay_enabled\": true}",
					},
					"progress_token": map[string]interface{}{
						"description": "Optional token; when set, notifications/progress is sent after each step",
					},
				},
				"required": []string{"image_path", "output_dir", "base_name"},
			},
		},
		{
			Name:        "variant_status",
			Description: "Return a job's status, its progress scaled to full_progress, and the events published after since_seq.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": jobIDProperty,
					"since_seq": map[string]interface{}{
						"type":        "integer",
						"description": "Only return events with a larger sequence number. Default 0",
						"default":     0,
					},
				},
				"required": []string{"job_id"},
			},
		},
		{
			Name:        "variant_cancel",
			Description: "Request a graceful stop. The step in progress finishes; no further steps start.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": jobIDProperty,
				},
				"required": []string{"job_id"},
			},
		},
		{
			Name:        "variant_wait",
			Description: "Block until a job finishes or the timeout elapses, then return its status.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": jobIDProperty,
					"timeout_seconds": map[string]interface{}{
						"type":        "number",
						"description": "Maximum time to wait. Default 0 waits until the job finishes",
						"default":     0,
					},
				},
				"required": []string{"job_id"},
			},
		},
		{
			Name:        "variant_list",
			Description: "List the status of every job known to the server.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "variant_remove",
			Description: "Forget a finished job and its events. Written files are kept.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": jobIDProperty,
				},
				"required": []string{"job_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
