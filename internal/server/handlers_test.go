package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/hue-variants-mcp/internal/config"
	"github.com/ironsheep/hue-variants-mcp/internal/jobs"
	"github.com/ironsheep/hue-variants-mcp/internal/variant"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// callTool issues a tools/call request and returns the raw response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// callToolResult issues a tools/call request, requires success, and decodes
// the text content into v.
func callToolResult(t *testing.T, s *Server, name string, args interface{}, v interface{}) {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", name, resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("%s: failed to decode result %q: %v", name, text, err)
	}
}

// generateArgs returns variant_generate arguments for a fresh image and
// output directory.
func generateArgs(t *testing.T, steps int) map[string]interface{} {
	t.Helper()
	imgPath := createTestImageFile(t, 16, 16, color.RGBA{200, 40, 40, 255})
	t.Cleanup(func() { os.Remove(imgPath) })

	return map[string]interface{}{
		"image_path": imgPath,
		"output_dir": t.TempDir(),
		"base_name":  "trip",
		"prefix":     "p",
		"version":    "1",
		"overrides":  map[string]interface{}{"step_count": steps},
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})
	defer os.Remove(imgPath)

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}
	callToolResult(t, s, "image_load", map[string]interface{}{"path": imgPath}, &info)

	if info.Width != 100 || info.Height != 80 || info.Format != "png" {
		t.Errorf("unexpected info: %+v", info)
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache size: got %d, want 1", s.cache.Len())
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/path/image.png"})

	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid tool")
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := New()

	tests := []string{"image_load", "variant_status", "variant_cancel", "variant_wait", "variant_remove", "variant_generate"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if resp := callTool(t, s, name, nil); resp.Error == nil {
				t.Errorf("%s without arguments should fail", name)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{invalid json}`),
	})

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_HueSamples(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		args map[string]interface{}
		want []int
	}{
		{"explicit", map[string]interface{}{"hue_start": 0, "hue_end": 360, "step_count": 5}, []int{0, 90, 180, 270, 360}},
		{"partial", map[string]interface{}{"step_count": 3}, []int{0, 180, 360}},
		{"descending", map[string]interface{}{"hue_start": 300, "hue_end": 100, "step_count": 3}, []int{300, 200, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res HueSamplesResult
			callToolResult(t, s, "variant_hue_samples", tt.args, &res)
			if len(res.Samples) != len(tt.want) {
				t.Fatalf("samples: got %v, want %v", res.Samples, tt.want)
			}
			for i := range tt.want {
				if res.Samples[i] != tt.want[i] {
					t.Errorf("samples: got %v, want %v", res.Samples, tt.want)
					break
				}
			}
		})
	}

	if resp := callTool(t, s, "variant_hue_samples", map[string]interface{}{"hue_end": 400}); resp.Error == nil {
		t.Error("out-of-range hue should fail")
	}
	if resp := callTool(t, s, "variant_hue_samples", map[string]interface{}{"step_count": 0}); resp.Error == nil {
		t.Error("zero step count should fail")
	}
}

func TestHandleToolsCall_VariantConfig(t *testing.T) {
	s := New()

	var res struct {
		Config      config.Config `json:"config"`
		NamedColors []string      `json:"named_colors"`
	}
	callToolResult(t, s, "variant_config", nil, &res)

	if res.Config.StepCount != 50 || res.Config.FullProgress != 100 {
		t.Errorf("unexpected config: %+v", res.Config)
	}
	if len(res.NamedColors) != 5 {
		t.Errorf("named colors: got %v", res.NamedColors)
	}
}

func TestHandleToolsCall_GenerateAndWait(t *testing.T) {
	s := New()
	args := generateArgs(t, 4)

	var started struct {
		JobID string        `json:"job_id"`
		State variant.State `json:"state"`
		Total int           `json:"total"`
	}
	callToolResult(t, s, "variant_generate", args, &started)
	if started.JobID == "" || started.Total != 4 {
		t.Fatalf("unexpected generate result: %+v", started)
	}

	var done JobStatusResult
	callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID}, &done)
	if done.State != variant.StateCompleted {
		t.Fatalf("state: got %s, want completed (error %q)", done.State, done.Error)
	}
	if done.Progress != 100 || done.FullProgress != 100 {
		t.Errorf("progress: got %d/%d, want 100/100", done.Progress, done.FullProgress)
	}
	if len(done.Files) != 4 {
		t.Errorf("files: got %d, want 4", len(done.Files))
	}

	outDir := args["output_dir"].(string)
	for i := 0; i < 4; i++ {
		name := filepath.Join(outDir, fmt.Sprintf("trip_v1.%d_p.jpg", i))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	// The source was loaded through the shared cache.
	if s.cache.Len() != 1 {
		t.Errorf("cache size: got %d, want 1", s.cache.Len())
	}
}

func TestHandleToolsCall_StatusEvents(t *testing.T) {
	s := New()

	var started struct {
		JobID string `json:"job_id"`
	}
	callToolResult(t, s, "variant_generate", generateArgs(t, 5), &started)

	var done JobStatusResult
	callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID}, &done)

	// The terminal status event is already published when wait returns.
	if n := len(done.Events); n != 6 {
		t.Fatalf("wait events: got %d, want 6", n)
	}
	if last := done.Events[5]; last.Type != jobs.EventTypeStatus || last.State != variant.StateCompleted || last.Progress != 100 {
		t.Errorf("final wait event: %+v", last)
	}

	var st JobStatusResult
	callToolResult(t, s, "variant_status", map[string]interface{}{"job_id": started.JobID}, &st)
	if len(st.Events) != 6 {
		t.Fatalf("events: got %d, want 6", len(st.Events))
	}
	for i := 0; i < 5; i++ {
		ev := st.Events[i]
		if ev.Index != i || ev.Progress != i*20 {
			t.Errorf("event %d: index %d progress %d, want %d/%d", i, ev.Index, ev.Progress, i, i*20)
		}
	}

	var tail JobStatusResult
	callToolResult(t, s, "variant_status", map[string]interface{}{"job_id": started.JobID, "since_seq": st.Events[2].Seq}, &tail)
	progressEvents := 0
	for _, ev := range tail.Events {
		if ev.Seq <= st.Events[2].Seq {
			t.Errorf("event seq %d not after since_seq %d", ev.Seq, st.Events[2].Seq)
		}
		if ev.Type == jobs.EventTypeProgress {
			progressEvents++
		}
	}
	if progressEvents != 2 || len(tail.Events) != 3 {
		t.Errorf("since_seq: got %d events (%d progress), want 3 (2 progress)", len(tail.Events), progressEvents)
	}
	if tail.LastSeq < st.Events[4].Seq {
		t.Errorf("last_seq: got %d, want at least %d", tail.LastSeq, st.Events[4].Seq)
	}
}

func TestHandleToolsCall_GenerateErrors(t *testing.T) {
	s := New()

	tests := []struct {
		name   string
		modify func(args map[string]interface{})
		want   string
	}{
		{"missing image", func(a map[string]interface{}) { a["image_path"] = "/nonexistent/source.png" }, "failed to load source image"},
		{"blank base name", func(a map[string]interface{}) { a["base_name"] = "" }, "invalid configuration"},
		{"unknown override", func(a map[string]interface{}) { a["overrides"] = map[string]interface{}{"colour": "red"} }, "overrides"},
		{"invalid override", func(a map[string]interface{}) { a["overrides"] = map[string]interface{}{"step_count": 0} }, "step count"},
		{"unreadable config file", func(a map[string]interface{}) { a["config_path"] = t.TempDir() }, "config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := generateArgs(t, 2)
			tt.modify(args)

			resp := callTool(t, s, "variant_generate", args)
			if resp.Error == nil {
				t.Fatal("expected an error")
			}
			data, _ := resp.Error.Data.(string)
			if !strings.Contains(data, tt.want) {
				t.Errorf("error %q should contain %q", data, tt.want)
			}
		})
	}

	var list struct {
		Jobs []variant.Status `json:"jobs"`
	}
	callToolResult(t, s, "variant_list", nil, &list)
	if len(list.Jobs) != 0 {
		t.Errorf("failed submissions should not be registered: %+v", list.Jobs)
	}
}

func TestHandleToolsCall_GenerateWithConfigFile(t *testing.T) {
	s := New()

	cfg := config.Defaults()
	cfg.StepCount = 3
	cfg.HueStart = 30
	cfg.HueEnd = 90
	cfgPath := filepath.Join(t.TempDir(), "job.yaml")
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	args := generateArgs(t, 0)
	delete(args, "overrides")
	args["config_path"] = cfgPath

	var started struct {
		JobID string `json:"job_id"`
		Total int    `json:"total"`
	}
	callToolResult(t, s, "variant_generate", args, &started)
	if started.Total != 3 {
		t.Errorf("total: got %d, want 3", started.Total)
	}

	var done JobStatusResult
	callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID}, &done)
	if done.State != variant.StateCompleted || len(done.Files) != 3 {
		t.Errorf("unexpected status: %+v", done.Status)
	}
}

func TestHandleToolsCall_CancelAndRemove(t *testing.T) {
	s := New()

	var started struct {
		JobID string `json:"job_id"`
	}
	callToolResult(t, s, "variant_generate", generateArgs(t, 3), &started)

	var done JobStatusResult
	callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID}, &done)

	// Finished jobs cannot be cancelled.
	if resp := callTool(t, s, "variant_cancel", map[string]interface{}{"job_id": started.JobID}); resp.Error == nil {
		t.Error("cancelling a finished job should fail")
	}

	var removed struct {
		Removed bool `json:"removed"`
	}
	callToolResult(t, s, "variant_remove", map[string]interface{}{"job_id": started.JobID}, &removed)
	if !removed.Removed {
		t.Error("job should be removed")
	}

	resp := callTool(t, s, "variant_status", map[string]interface{}{"job_id": started.JobID})
	if resp.Error == nil {
		t.Fatal("status of a removed job should fail")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "job not found") {
		t.Errorf("error %q should mention job not found", data)
	}
}

func TestHandleToolsCall_CancelRunning(t *testing.T) {
	s := New()
	args := generateArgs(t, 50)

	var started struct {
		JobID string `json:"job_id"`
	}
	callToolResult(t, s, "variant_generate", args, &started)

	// The job may already have finished on a fast machine; either outcome is valid.
	resp := callTool(t, s, "variant_cancel", map[string]interface{}{"job_id": started.JobID})

	var done JobStatusResult
	callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID}, &done)

	if resp.Error == nil {
		if done.State != variant.StateCancelled && done.State != variant.StateCompleted {
			t.Errorf("state after cancel: %s", done.State)
		}
	} else if done.State != variant.StateCompleted {
		t.Errorf("cancel failed but job is %s", done.State)
	}
}

func TestHandleToolsCall_WaitTimeout(t *testing.T) {
	s := New()

	var started struct {
		JobID string `json:"job_id"`
	}
	callToolResult(t, s, "variant_generate", generateArgs(t, 2), &started)

	var res JobStatusResult
	callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID, "timeout_seconds": 30}, &res)
	if res.TimedOut {
		t.Error("a two-step job should finish well within the timeout")
	}
	if !res.State.Terminal() {
		t.Errorf("state %s should be terminal", res.State)
	}
}

func TestHandleToolsCall_ProgressNotifications(t *testing.T) {
	s := New()
	var out bytes.Buffer
	s.encoder = json.NewEncoder(&out)

	args := generateArgs(t, 3)
	args["progress_token"] = "tok-1"

	var started struct {
		JobID string `json:"job_id"`
	}
	callToolResult(t, s, "variant_generate", args, &started)

	var done JobStatusResult
	callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID}, &done)

	s.outMu.Lock()
	data := out.String()
	s.outMu.Unlock()

	dec := json.NewDecoder(strings.NewReader(data))
	count := 0
	for dec.More() {
		var n MCPNotification
		if err := dec.Decode(&n); err != nil {
			t.Fatalf("failed to decode notification: %v", err)
		}
		if n.Method != "notifications/progress" {
			t.Errorf("method: got %s", n.Method)
		}
		params, _ := n.Params.(map[string]interface{})
		if params["progressToken"] != "tok-1" {
			t.Errorf("progressToken: got %v", params["progressToken"])
		}
		count++
	}
	if count != 3 {
		t.Errorf("got %d notifications, want 3", count)
	}
}

func TestHandleToolsCall_UnknownJob(t *testing.T) {
	s := New()

	for _, name := range []string{"variant_status", "variant_cancel", "variant_wait", "variant_remove"} {
		t.Run(name, func(t *testing.T) {
			resp := callTool(t, s, name, map[string]interface{}{"job_id": "no-such-job"})
			if resp.Error == nil {
				t.Fatal("expected an error for an unknown job")
			}
		})
	}
}

func TestScaledProgress(t *testing.T) {
	tests := []struct {
		name string
		st   variant.Status
		want int
	}{
		{"nothing yet", variant.Status{State: variant.StateRunning, Total: 50}, 0},
		{"first step", variant.Status{State: variant.StateRunning, Completed: 1, Total: 50}, 0},
		{"eleven steps", variant.Status{State: variant.StateCancelled, Completed: 11, Total: 50}, 20},
		{"last step", variant.Status{State: variant.StateRunning, Completed: 50, Total: 50}, 98},
		{"completed", variant.Status{State: variant.StateCompleted, Completed: 50, Total: 50}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scaledProgress(tt.st, 100); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New()

	// Every advertised tool must be dispatched; argument errors are fine,
	// "unknown tool" is not.
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			_, err := s.executeTool(tool.Name, json.RawMessage(`{}`))
			if err != nil && strings.Contains(err.Error(), "unknown tool") {
				t.Errorf("tool %s is not dispatched", tool.Name)
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()
	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("Expected error for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()
	_, err := s.executeTool("image_load", json.RawMessage(`{invalid}`))
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestWaitReturnsPromptly(t *testing.T) {
	s := New()

	var started struct {
		JobID string `json:"job_id"`
	}
	callToolResult(t, s, "variant_generate", generateArgs(t, 1), &started)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var res JobStatusResult
		callToolResult(t, s, "variant_wait", map[string]interface{}{"job_id": started.JobID}, &res)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("variant_wait did not return")
	}
}
