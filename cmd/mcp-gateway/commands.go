// ABOUTME: Client subcommands for mcp-gateway: health, call, and init
// ABOUTME: Talks to a running gateway over HTTP/gRPC or writes a starter config

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/2389/mcp-gateway/internal/config"
)

// clientTimeout bounds each client command's network calls.
const clientTimeout = 10 * time.Second

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, clientTimeout)
	defer cancel()

	if err := checkHTTPHealth(ctx, cfg.Server.HTTPAddr); err != nil {
		return err
	}
	fmt.Println("http: healthy")

	if cfg.Server.GRPCAddr != "" {
		status, err := checkGRPCHealth(ctx, cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		if status != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("grpc: %s", status)
		}
		fmt.Println("grpc: serving")
	}

	return nil
}

func checkHTTPHealth(ctx context.Context, addr string) error {
	url := fmt.Sprintf("http://%s/health", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func checkGRPCHealth(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("connecting to gRPC: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("grpc health check failed: %w", err)
	}
	return resp.GetStatus(), nil
}

// callArgs are the parsed arguments of the call command.
type callArgs struct {
	addr   string
	method string
	params json.RawMessage
}

// parseCallArgs supports "--addr value", "--addr=value", METHOD, and optional PARAMS JSON.
func parseCallArgs(args []string) (*callArgs, error) {
	var out callArgs
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--addr" || arg == "-a":
			if i+1 >= len(args) {
				return nil, errors.New("--addr requires a value")
			}
			out.addr = args[i+1]
			i++
		case strings.HasPrefix(arg, "--addr="):
			out.addr = strings.TrimPrefix(arg, "--addr=")
		case strings.HasPrefix(arg, "-") && arg != "-":
			return nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			positional = append(positional, arg)
		}
	}

	switch len(positional) {
	case 0:
		return nil, errors.New("method is required")
	case 1, 2:
	default:
		return nil, fmt.Errorf("unexpected argument: %s", positional[2])
	}

	out.method = positional[0]
	if len(positional) == 2 {
		if !json.Valid([]byte(positional[1])) {
			return nil, errors.New("params must be valid JSON")
		}
		out.params = json.RawMessage(positional[1])
	}
	return &out, nil
}

// runCall posts one JSON-RPC request and prints the indented reply.
// A reply carrying an error is printed and also returned as an error.
func runCall(ctx context.Context, args []string, out io.Writer) error {
	ca, err := parseCallArgs(args)
	if err != nil {
		return err
	}

	if ca.addr == "" {
		cfg, err := config.Load(config.DefaultPath())
		if err != nil {
			return fmt.Errorf("loading config (or pass --addr): %w", err)
		}
		ca.addr = cfg.Server.HTTPAddr
	}

	ctx, cancel := context.WithTimeout(ctx, clientTimeout)
	defer cancel()

	reply, err := postRPC(ctx, ca)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, reply, "", "  "); err != nil {
		return fmt.Errorf("formatting reply: %w", err)
	}
	fmt.Fprintln(out, pretty.String())

	var envelope struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(reply, &envelope); err == nil && envelope.Error != nil {
		return fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	return nil
}

func postRPC(ctx context.Context, ca *callArgs) (json.RawMessage, error) {
	id, err := json.Marshal(uuid.New().String())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}{"2.0", id, ca.method, ca.params})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("http://%s/rpc", ca.addr)
	if strings.HasPrefix(ca.addr, "http://") || strings.HasPrefix(ca.addr, "https://") {
		url = strings.TrimSuffix(ca.addr, "/") + "/rpc"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if !json.Valid(reply) {
		return nil, fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, strings.TrimSpace(string(reply)))
	}
	return reply, nil
}

// initAnswers are the values collected by the init command.
type initAnswers struct {
	HTTPAddr         string
	GRPCAddr         string
	ChatEnabled      bool
	DBPath           string
	TailscaleEnabled bool
	TSHostname       string
	TSAuthKey        string
	TSEphemeral      bool
	LogLevel         string
	LogFormat        string
}

func runInit(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "mcp-gateway configuration setup")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var a initAnswers

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, out, "HTTP address", "localhost:8080")
	a.GRPCAddr = prompt(reader, out, "gRPC health address (empty to disable)", "")

	fmt.Fprintln(out, "\n--- Chat Configuration ---")
	a.ChatEnabled = yes(prompt(reader, out, "Enable chat API?", "yes"))
	if a.ChatEnabled {
		a.DBPath = prompt(reader, out, "SQLite database path", defaultDBPath())
	}

	fmt.Fprintln(out, "\n--- Tailscale Configuration ---")
	a.TailscaleEnabled = yes(prompt(reader, out, "Enable Tailscale?", "no"))
	if a.TailscaleEnabled {
		a.TSHostname = prompt(reader, out, "Tailscale hostname", "mcp-gateway")
		a.TSAuthKey = prompt(reader, out, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		a.TSEphemeral = yes(prompt(reader, out, "Ephemeral node?", "no"))
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, out, "Log format (text/json)", "text")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(renderConfig(a)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if a.ChatEnabled {
		if err := os.MkdirAll(filepath.Dir(a.DBPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintln(out, "  mcp-gateway serve")
	return nil
}

// renderConfig produces a YAML config file from init answers.
func renderConfig(a initAnswers) string {
	var b strings.Builder
	b.WriteString("# mcp-gateway configuration\n")
	b.WriteString("# Generated by mcp-gateway init\n\n")

	b.WriteString("server:\n")
	fmt.Fprintf(&b, "  http_addr: %q\n", a.HTTPAddr)
	if a.GRPCAddr != "" {
		fmt.Fprintf(&b, "  grpc_addr: %q\n", a.GRPCAddr)
	}
	b.WriteString("  ws_path: \"/mcp/ws\"\n\n")

	if a.ChatEnabled {
		b.WriteString("database:\n")
		fmt.Fprintf(&b, "  path: %q\n\n", a.DBPath)
	}

	b.WriteString("mcp:\n")
	b.WriteString("  legacy_error_codes: false\n")
	b.WriteString("  batch_concurrency: 8\n\n")

	b.WriteString("chat:\n")
	fmt.Fprintf(&b, "  enabled: %t\n", a.ChatEnabled)
	b.WriteString("  model: \"echo\"\n")
	b.WriteString("  default_history: 10\n\n")

	b.WriteString("tailscale:\n")
	fmt.Fprintf(&b, "  enabled: %t\n", a.TailscaleEnabled)
	if a.TailscaleEnabled {
		fmt.Fprintf(&b, "  hostname: %q\n", a.TSHostname)
		if a.TSAuthKey != "" {
			fmt.Fprintf(&b, "  auth_key: %q\n", a.TSAuthKey)
		}
		fmt.Fprintf(&b, "  ephemeral: %t\n", a.TSEphemeral)
	}
	b.WriteString("\n")

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", a.LogLevel)
	fmt.Fprintf(&b, "  format: %q\n", a.LogFormat)
	return b.String()
}

// defaultDBPath returns $XDG_DATA_HOME/mcp-gateway/gateway.db or its ~/.local/share fallback.
func defaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.db"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "mcp-gateway", "gateway.db")
}

func yes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
