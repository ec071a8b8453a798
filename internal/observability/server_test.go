package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyzWithoutChecks(t *testing.T) {
	s := NewServer(":0", nil)
	rr := httptest.NewRecorder()
	s.handleReadyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestReadyzReportsFailingDependency(t *testing.T) {
	s := NewServer(":0", map[string]ReadinessCheck{
		"assistant-backend": func(ctx context.Context) error {
			return errors.New("connection refused")
		},
	})
	rr := httptest.NewRecorder()
	s.handleReadyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "assistant-backend") {
		t.Errorf("body = %q, want the failing dependency named", rr.Body.String())
	}
}

func TestReadyzPassingChecks(t *testing.T) {
	s := NewServer(":0", map[string]ReadinessCheck{
		"assistant-backend": func(ctx context.Context) error { return nil },
	})
	rr := httptest.NewRecorder()
	s.handleReadyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
