package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/requestid"
)

func serve(t *testing.T, header string) (seen string, echoed string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return seen, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("reuses valid header", func(t *testing.T) {
		t.Parallel()
		seen, echoed := serve(t, "req-123_abc")
		assert.Equal(t, "req-123_abc", seen)
		assert.Equal(t, seen, echoed)
	})

	for _, bad := range []string{"", "has space", "a/b", strings.Repeat("x", 129)} {
		t.Run("replaces "+bad[:min(len(bad), 10)], func(t *testing.T) {
			t.Parallel()
			seen, echoed := serve(t, bad)
			assert.NotEmpty(t, seen)
			assert.NotEqual(t, bad, seen)
			assert.Equal(t, seen, echoed)
		})
	}
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()
	ex := requestid.LoggerExtractor()

	_, ok := ex(context.Background())
	assert.False(t, ok)

	attr, ok := ex(requestid.WithContext(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())
}
