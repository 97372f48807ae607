// Package gateway wires mcp-gateway's components together and runs its listeners.
//
// # Overview
//
// New builds everything from a config.Config: the capability registry with the
// built-in pack, the tool executor, the MCP dispatcher, and (when chat is
// enabled) the SQLite memory store and conversation service. Run serves until
// its context is cancelled, then shuts down gracefully.
//
// # Listeners
//
// HTTP carries the JSON-RPC endpoints, the WebSocket endpoint, health and info,
// and the chat API. An optional gRPC listener serves only the standard
// grpc.health.v1 service, so orchestrators can probe the gateway without HTTP.
//
// With tailscale.enabled the gateway joins the tailnet through tsnet and
// listens there instead: HTTP on :80 (or HTTPS on :443 with tailnet
// certificates) and gRPC health on :50051.
//
// # HTTP Routes
//
//	POST /rpc, /mcp                 single JSON-RPC request
//	POST /rpc/batch, /mcp/batch     JSON-RPC batch
//	GET  /mcp/ws                    WebSocket (path from server.ws_path)
//	GET  /health, /info             liveness and server description
//	GET  /health/ready              503 once shutdown starts
//	GET  /api/chat/sync             one chat turn, plain-text reply
//	GET  /api/chat/stream           one chat turn over Server-Sent Events
//	POST /api/chat/memory/clear     forget a user's conversation
//	GET  /api/chat/tools            tool names and descriptions
//
// # Chat Stream Events
//
// /api/chat/stream sends "content" events whose data is the full visible reply
// so far (thinking spans removed), then a "done" event whose data is the
// request id. A cancelled turn ends with an "error" event instead.
//
// # Shutdown
//
// Shutdown marks the gateway as draining, flips gRPC health to NOT_SERVING,
// closes WebSocket sessions with a going-away status, stops the HTTP and gRPC
// servers, leaves the tailnet, and closes the store.
package gateway
