package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	var seenID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	t.Run("generates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		Logger(logger)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/1", nil))

		require.NotEmpty(t, seenID)
		assert.Equal(t, seenID, w.Header().Get(RequestIDHeader))

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "/api/products/1", fields["path"])
		assert.Equal(t, int64(http.StatusTeapot), fields["status"])
		assert.Equal(t, int64(len("short and stout")), fields["size"])
		assert.Equal(t, seenID, fields["request_id"])
	})

	t.Run("keeps client request id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "client-id")
		w := httptest.NewRecorder()
		Logger(logger)(next).ServeHTTP(w, r)

		assert.Equal(t, "client-id", seenID)
		assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
		logs.TakeAll()
	})
}
