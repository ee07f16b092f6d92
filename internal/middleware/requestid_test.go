package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveWithID runs one request through the middleware and returns the ID the
// handler observed plus the response recorder.
func serveWithID(t *testing.T, inbound string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec
}

func TestRequestIDMintsWhenAbsent(t *testing.T) {
	seen, rec := serveWithID(t, "")
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDKeepsValidInbound(t *testing.T) {
	seen, rec := serveWithID(t, "trace-42_abc")
	assert.Equal(t, "trace-42_abc", seen)
	assert.Equal(t, "trace-42_abc", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDReplacesUnsafeInbound(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"alphanumeric with separators", "abc-123_DEF", true},
		{"newline log forging", "id\nlevel=ERROR forged", false},
		{"carriage return", "id\rforged", false},
		{"embedded space", "two words", false},
		{"angle brackets", "id<script>", false},
		{"at max length", strings.Repeat("x", 128), true},
		{"over max length", strings.Repeat("x", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, _ := serveWithID(t, tt.inbound)
			require.NotEmpty(t, seen)
			if tt.keep {
				assert.Equal(t, tt.inbound, seen)
			} else {
				assert.NotEqual(t, tt.inbound, seen)
			}
		})
	}
}

func TestRequestIDFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestIDFromContext(req.Context()))
}
