// Package server implements the MCP (Model Context Protocol) server for hue
// variant generation.
//
// This package provides a JSON-RPC 2.0 server that lets MCP clients load a
// source image, preview the hue shifts a run would apply, and start, watch,
// cancel, and collect batch jobs that write hue-rotated JPEG variants.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Source Images:
//   - image_load: Load image into the cache and get metadata
//
// Planning:
//   - variant_hue_samples: Hue shifts for a range and step count
//   - variant_config: Base configuration and accepted color names
//
// Jobs:
//   - variant_generate: Start a job, returns its ID
//   - variant_status: Status, scaled progress, and events since a sequence number
//   - variant_cancel: Request a graceful stop
//   - variant_wait: Block until the job finishes (optional timeout)
//   - variant_list: Status of every known job
//   - variant_remove: Forget a finished job
//
// # Jobs
//
// variant_generate returns as soon as the source image is loaded; the steps
// run in the background. Progress is published as sequenced events that
// variant_status returns incrementally. When the call carries a
// progress_token, a notifications/progress message is also written after
// every persisted step. Tool calls run concurrently, so variant_cancel is
// served while a variant_wait blocks. Jobs still running when stdin closes
// are cancelled, and Serve returns once every job has stopped.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across tool calls and jobs. The cache persists for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.NewWithConfig(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
