package analytics

import (
	"testing"
	"time"
)

func TestTruncateToBucket(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 27, 41, 0, time.UTC)

	tests := []struct {
		name   string
		window time.Duration
		want   string
	}{
		{"minute", time.Minute, "202603140927"},
		{"five minutes", 5 * time.Minute, "2026031409" + "25"},
		{"hour", time.Hour, "2026031409"},
		{"unsupported falls back to minute", 30 * time.Second, "202603140927"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateToBucket(at, tt.window)
			if got != tt.want {
				t.Errorf("truncateToBucket(%v) = %q, want %q", tt.window, got, tt.want)
			}
		})
	}
}

func TestBuildKey(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 27, 0, 0, time.UTC)
	got := buildKey("note-42", at, time.Hour)
	want := "n:note-42:fired:2026031409"
	if got != want {
		t.Errorf("buildKey = %q, want %q", got, want)
	}
}
