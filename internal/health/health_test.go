package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/poolctl/internal/logger"
)

func newTestServer(checks map[string]CheckFunc) *httptest.Server {
	s := NewServer(0, "test", logger.New(io.Discard, logger.LevelError, "test", nil))
	for name, fn := range checks {
		s.RegisterCheck(name, fn)
	}
	return httptest.NewServer(s.Handler())
}

func TestHealth_AllHealthy(t *testing.T) {
	srv := newTestServer(map[string]CheckFunc{
		"rpc": func(context.Context) (bool, string) { return true, "block 10" },
	})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "ok" || !status.Checks["rpc"].Healthy {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv := newTestServer(map[string]CheckFunc{
		"rpc":     func(context.Context) (bool, string) { return true, "" },
		"journal": func(context.Context) (bool, string) { return false, "connection refused" },
	})
	defer srv.Close()

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("request %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, resp.StatusCode)
		}
	}
}

func TestLive(t *testing.T) {
	srv := newTestServer(nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/live")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "alive" {
		t.Errorf("expected alive, got %q", body)
	}
}
