package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		level   string
		wantErr bool
	}{
		{"local", "local", "", false},
		{"dev", "dev", "", false},
		{"prod", "prod", "", false},
		{"level override", "local", "warn", false},
		{"unknown env", "staging", "", true},
		{"bad level", "local", "loud", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.env, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if log == nil {
				t.Fatal("nil logger")
			}
		})
	}
}

func TestNew_LevelOverride(t *testing.T) {
	log, err := New("local", "error")
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Error("info must be disabled under the error override")
	}
}

func TestFromContext(t *testing.T) {
	base := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), base)
	if FromContext(ctx) != base {
		t.Error("stored logger not returned")
	}
	if FromContext(context.Background()) == nil {
		t.Error("missing logger must yield a usable no-op logger")
	}
}
