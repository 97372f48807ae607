// Package mcp implements the Model Context Protocol server.
//
// # Overview
//
// MCP is JSON-RPC 2.0 with a small fixed method set. Server is the dispatcher:
// it validates the envelope, looks the method up in a fixed table, runs it
// against the capability registry, and wraps the outcome in a Response. It
// never lets a failure escape; every request produces exactly one Response.
//
// # Methods
//
//   - initialize: protocol version, capability flags, server info
//   - tools/list, tools/call: tools/call requires params.name and params.arguments
//   - resources/list, resources/read: resources/read requires params.uri
//   - prompts/list, prompts/get: prompts/get requires params.name; arguments are optional
//
// # Error Codes
//
//	-32700  payload could not be decoded (id is always null)
//	-32600  wrong jsonrpc tag, missing method, or malformed id
//	-32601  unknown method
//	-32602  missing or malformed params
//	-32002  tool, resource, or prompt not found
//	-32603  tool failure (e.g. division by zero) or internal error
//
// With Config.LegacyErrorCodes every code except -32700 becomes -32603 and the
// message gains an "Internal error: " prefix.
//
// # Transports
//
// HTTP (RegisterRoutes):
//
//   - POST /rpc, POST /mcp: one request object in, one response object out
//   - POST /rpc/batch, POST /mcp/batch: array in, array out, same length and order
//   - GET /health, GET /info
//
// Batch elements are dispatched concurrently, bounded by
// Config.BatchConcurrency, and written back by position.
//
// WebSocket (ServeWebSocket): each connection runs a read loop feeding an
// inbox and a dispatch loop that handles frames strictly in arrival order and
// writes one reply frame per request frame. A malformed frame gets a parse
// error reply and the connection stays open. Connections share nothing but
// the read-only registry. Close cancels every live session.
package mcp
