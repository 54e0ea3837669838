package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garnizeh/ats/api"
)

type pinger struct{ err error }

func (p pinger) PingContext(ctx context.Context) error { return p.err }

func TestSystemHandlers(t *testing.T) {
	h := api.NewSystemHandler(pinger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HealthHandler(w, req)
	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: expected 200 got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("health: expected json content-type, got %q", ct)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"status":"ok"`) || !strings.Contains(string(b), `"service":"ats"`) {
		t.Fatalf("health: unexpected body %s", string(b))
	}

	down := api.NewSystemHandler(pinger{err: errors.New("closed")})
	w = httptest.NewRecorder()
	down.HealthHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("health: expected 503 when the database is down, got %d", w.Result().StatusCode)
	}

	vh := h.VersionHandler("1.2.3", "2026-10-01T00:00:00Z")
	w2 := httptest.NewRecorder()
	vh(w2, httptest.NewRequest(http.MethodGet, "/version", nil))
	res2 := w2.Result()
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusOK {
		t.Fatalf("version: expected 200 got %d", res2.StatusCode)
	}
	b2, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b2), `"version":"1.2.3"`) || !strings.Contains(string(b2), `"buildTime":"2026-10-01T00:00:00Z"`) {
		t.Fatalf("version: unexpected body %s", string(b2))
	}
}
