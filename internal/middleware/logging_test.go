package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("hello"))
	}))

	tests := []struct {
		path   string
		want   string
		logged bool
	}{
		{"/api/clients", "level=INFO", true},
		{"/missing", "level=WARN", true},
		{"/health", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))
			out := buf.String()
			if !tt.logged {
				if out != "" {
					t.Errorf("logged %q, want nothing at info", out)
				}
				return
			}
			if !strings.Contains(out, tt.want) || !strings.Contains(out, "path="+tt.path) {
				t.Errorf("log = %q, want %s for %s", out, tt.want, tt.path)
			}
		})
	}

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/clients", nil))
	if !strings.Contains(buf.String(), "bytes=5") {
		t.Errorf("log = %q, want bytes=5", buf.String())
	}
}
