package sessionstore

import (
	"context"
	"testing"
)

func TestNew_DisabledUsesMemory(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{RedisEnabled: false, RedisAddr: "localhost:6379"}},
		{"no addr", &Config{RedisEnabled: true, RedisAddr: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.cfg)
			if _, ok := s.(*memoryStore); !ok {
				t.Errorf("expected in-memory store, got %T", s)
			}
		})
	}
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	id, err := s.Active(ctx, "client-1")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected no active session initially, got %s", id)
	}

	if err := s.SetActive(ctx, "client-1", "sess-1"); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	id, _ = s.Active(ctx, "client-1")
	if id != "sess-1" {
		t.Errorf("expected 'sess-1', got %s", id)
	}

	// Other clients are unaffected.
	id, _ = s.Active(ctx, "client-2")
	if id != "" {
		t.Errorf("expected empty for other client, got %s", id)
	}

	if err := s.Clear(ctx, "client-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	id, _ = s.Active(ctx, "client-1")
	if id != "" {
		t.Errorf("expected cleared session, got %s", id)
	}
}
