// ABOUTME: Tests for the Gateway orchestrator lifecycle
// ABOUTME: Runs real listeners to check HTTP health, readiness, gRPC health, and shutdown

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/2389/mcp-gateway/internal/config"
)

// freeAddr returns a loopback address with an available port.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// testConfig creates a minimal config for testing with available ports and chat enabled.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			HTTPAddr: freeAddr(t),
			GRPCAddr: freeAddr(t),
		},
		Database: config.DatabaseConfig{
			Path: filepath.Join(t.TempDir(), "gateway.db"),
		},
		Chat: config.ChatConfig{
			Enabled:      true,
			BlockedWords: []string{"forbidden"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startGateway runs gw in the background and waits until HTTP answers.
func startGateway(t *testing.T, gw *Gateway, cfg *config.Config) (cancel context.CancelFunc, done <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + cfg.Server.HTTPAddr + "/health")
		if err == nil {
			resp.Body.Close()
			t.Cleanup(cancel)
			return cancel, errCh
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	t.Fatal("gateway did not start in time")
	return nil, nil
}

func TestGatewayNew(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer gw.Shutdown(context.Background())

	if gw.config != cfg {
		t.Error("gateway config mismatch")
	}
	if gw.registry == nil {
		t.Error("registry should not be nil")
	}
	if gw.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
	if gw.store == nil {
		t.Error("store should not be nil when chat is enabled")
	}
	if gw.conversation == nil {
		t.Error("conversation should not be nil when chat is enabled")
	}
	if gw.grpcServer == nil {
		t.Error("grpcServer should not be nil when grpc_addr is set")
	}
}

func TestGatewayNew_ChatDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chat.Enabled = false
	cfg.Server.GRPCAddr = ""

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer gw.Shutdown(context.Background())

	if gw.store != nil || gw.conversation != nil {
		t.Error("chat components should be nil when chat is disabled")
	}
	if gw.grpcServer != nil {
		t.Error("grpcServer should be nil without grpc_addr")
	}
}

func TestGatewayNew_UnknownModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chat.Model = "mystery"

	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("New() expected error for unknown model")
	}
}

func TestGatewayRunAndShutdown(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	cancel, errCh := startGateway(t, gw, cfg)

	// Shutdown via context cancel
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("gateway did not shutdown in time")
	}
}

func TestRun_ListenError(t *testing.T) {
	cfg := testConfig(t)

	// Occupy the HTTP port
	ln, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		t.Fatalf("failed to occupy port: %v", err)
	}
	defer ln.Close()

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer gw.Shutdown(context.Background())

	if err := gw.Run(t.Context()); err == nil {
		t.Fatal("Run() expected error for occupied port")
	}
}

func TestHealthEndpoint(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	startGateway(t, gw, cfg)

	resp, err := http.Get("http://" + cfg.Server.HTTPAddr + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q, want %q", body.Status, "healthy")
	}
	if body.Service != "mcp-gateway" {
		t.Errorf("service = %q, want %q", body.Service, "mcp-gateway")
	}
}

func TestReadyEndpoint(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	startGateway(t, gw, cfg)

	resp, err := http.Get("http://" + cfg.Server.HTTPAddr + "/health/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.HasPrefix(string(body), "ready") {
		t.Errorf("ready body = %q, want prefix %q", body, "ready")
	}
}

func TestReadyEndpoint_Draining(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer gw.Shutdown(context.Background())

	gw.draining.Store(true)

	req, _ := http.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want %d while draining", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestGRPCHealth(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	startGateway(t, gw, cfg)

	conn, err := grpc.NewClient(
		cfg.Server.GRPCAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v, want SERVING", resp.GetStatus())
	}
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	if _, err := resolveTailscaleAuthKey(""); err == nil {
		t.Error("expected error without auth key")
	}

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err := resolveTailscaleAuthKey("")
	if err != nil || key != "tskey-env" {
		t.Errorf("resolveTailscaleAuthKey(\"\") = %q, %v; want tskey-env", key, err)
	}

	key, err = resolveTailscaleAuthKey("tskey-config")
	if err != nil || key != "tskey-config" {
		t.Errorf("resolveTailscaleAuthKey(config) = %q, %v; want tskey-config", key, err)
	}
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/ts")
	if err != nil || dir != "/var/lib/ts" {
		t.Errorf("resolveTailscaleStateDir(configured) = %q, %v", dir, err)
	}

	dir, err = resolveTailscaleStateDir("")
	if err != nil {
		t.Fatalf("resolveTailscaleStateDir(\"\") error = %v", err)
	}
	if !strings.HasSuffix(dir, filepath.Join("mcp-gateway", "tailscale")) {
		t.Errorf("default state dir = %q, want suffix mcp-gateway/tailscale", dir)
	}
}
