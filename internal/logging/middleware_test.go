package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"implicit ok", 0, "INFO"},
		{"client error", http.StatusNotFound, "WARN"},
		{"server error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := &Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

			var fromCtx *Logger
			handler := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromCtx = GetLoggerFromContext(r.Context())
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				w.Write([]byte("hello"))
			})))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

			require.NotNil(t, fromCtx)
			assert.NotSame(t, defaultLogger, fromCtx)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "request completed", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "/api/v1/users", entry["path"])
			assert.Equal(t, float64(5), entry["bytes"])
			assert.NotEmpty(t, entry["request_id"])
		})
	}
}

func TestGetLoggerFromContext_Default(t *testing.T) {
	assert.Same(t, defaultLogger, GetLoggerFromContext(context.Background()))

	logger := Discard()
	assert.Same(t, logger, GetLoggerFromContext(WithLogger(context.Background(), logger)))
}
