// Package server implements the MCP (Model Context Protocol) server for the
// leak-zone registry.
//
// This package provides a JSON-RPC 2.0 server that exposes one editing
// session over a factory floor plan: listing, locating, creating, editing and
// deleting leak zones, and rendering them onto the plan.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Floor plan and catalog:
//   - floorplan_info: Native size, canonical space, store availability
//   - fluid_catalog: Fluids, colours, categories and derived costs
//
// Queries:
//   - zone_list: Zones in store order, filtered
//   - zone_summary: Counts per fluid and state, total annual cost
//   - zone_locate: Zone under a canonical, display or map point
//
// Mutations:
//   - zone_create: Register a zone from a canonical, display or map rectangle
//   - zone_update: Edit attributes by key or id
//   - zone_delete: Remove a zone by key or id
//   - zone_reload: Re-read the store
//
// Images and reports:
//   - zone_render: Interactive or export overlay as base64 PNG
//   - zone_preview: Tinted crop of a box being drawn
//   - zone_thumbnail: Crop of a stored zone
//   - zone_export: Publish CSV and overlay PNG through the export sink
//
// # Zone Identity
//
// Zone ids are positions in the current snapshot and shift when an earlier
// zone is deleted. Every zone written by this server also carries a durable
// key; tools that take a target accept either and prefer the key.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Once the zone store fails it stays unavailable for the life of the process;
// reads return an empty registry and every mutation fails.
//
// # Usage
//
//	srv := server.New(sess, server.WithExporter(exp))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
