package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mverran/scrivano/internal/health"
)

func doRequest(t *testing.T, h *health.Handler, target string) (*http.Response, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if err := json.NewDecoder(rec.Result().Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec.Result(), body
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{
		Name:  "always-broken",
		Check: func(ctx context.Context) error { return errors.New("down") },
	})
	resp, body := doRequest(t, h, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestReadyz_ReportsPerCheckResults(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "good", Check: func(ctx context.Context) error { return nil }},
		health.Checker{Name: "bad", Check: func(ctx context.Context) error { return errors.New("boom") }},
	)
	resp, body := doRequest(t, h, "/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	checks := body["checks"].(map[string]any)
	if checks["good"] != "ok" {
		t.Errorf("good = %v", checks["good"])
	}
	if checks["bad"] != "fail: boom" {
		t.Errorf("bad = %v", checks["bad"])
	}
}

func TestModelFileChecker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := health.ModelFile(path).Check(context.Background()); err != nil {
		t.Errorf("existing model file: %v", err)
	}
	if err := health.ModelFile(filepath.Join(dir, "absent.bin")).Check(context.Background()); err == nil {
		t.Error("missing model file passed")
	}
	if err := health.ModelFile(dir).Check(context.Background()); err == nil {
		t.Error("directory passed as model file")
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func TestArchiveChecker(t *testing.T) {
	t.Parallel()

	if err := health.Archive(fakePinger{}).Check(context.Background()); err != nil {
		t.Errorf("healthy database: %v", err)
	}
	if err := health.Archive(fakePinger{err: errors.New("refused")}).Check(context.Background()); err == nil {
		t.Error("unreachable database passed")
	}
}
