// Package config handles configuration loading for mcp-gateway.
//
// # Overview
//
// Configuration is loaded from YAML (or TOML, by .toml extension) files with
// environment variable expansion. Unset fields receive defaults before validation.
//
// # Configuration File
//
// Default location:
//
//  1. Path from MCP_GATEWAY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/mcp-gateway/gateway.yaml
//  3. ~/.config/mcp-gateway/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	tailscale:
//	  auth_key: "${TS_AUTHKEY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  read_header_timeout: "10s"
//	  shutdown_timeout: "30s"
//	mcp:
//	  tool_timeout: "30s"
//	  write_timeout: "10s"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # JSON-RPC, WebSocket and chat API
//	  grpc_addr: "0.0.0.0:50051"  # optional gRPC health service
//	  ws_path: "/mcp/ws"
//
//	database:
//	  path: "./mcp-gateway.db"    # required when chat is enabled
//
//	mcp:
//	  server_name: "mcp-gateway"
//	  protocol_version: "2024-11-05"
//	  legacy_error_codes: false   # fold errors into -32603
//	  batch_concurrency: 8
//	  max_request_bytes: 1048576
//	  origin_patterns: ["*"]
//
//	chat:
//	  enabled: true
//	  model: "echo"
//	  default_history: 10
//	  min_history: 1
//	  max_history: 50
//	  blocked_words: ["secret"]
//
//	tailscale:
//	  enabled: false
//	  hostname: "mcp-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: true
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
