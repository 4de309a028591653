package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name   string
		status int
		write  bool
		want   []string
	}{
		{"implicit ok", 0, true, []string{"level=INFO", "status=200", "path=/v1/games"}},
		{"client error", http.StatusUnprocessableEntity, false, []string{"level=WARN", "status=422"}},
		{"server error", http.StatusInternalServerError, false, []string{"level=ERROR", "status=500"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				if tt.write {
					_, _ = w.Write([]byte("{}"))
				}
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/games", nil))

			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("expected %q in log line %q", w, buf.String())
				}
			}
		})
	}
}
