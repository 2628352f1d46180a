package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	return &Handler{logger: logger.Nop()}
}

func TestWithTraceID_TableTest(t *testing.T) {
	tests := []struct {
		name           string
		requestTraceID string
		wantSame       bool
	}{
		{name: "caller id is reused", requestTraceID: "my-custom-trace-id", wantSame: true},
		{name: "uuid id is reused", requestTraceID: "550e8400-e29b-41d4-a716-446655440000", wantSame: true},
		{name: "missing id is generated", requestTraceID: ""},
		{name: "overlong id is replaced", requestTraceID: strings.Repeat("x", maxTraceIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
			})

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.requestTraceID != "" {
				req.Header.Set(traceIDHeader, tt.requestTraceID)
			}
			rr := httptest.NewRecorder()
			newTestHandler().withTraceID(next).ServeHTTP(rr, req)

			got := rr.Header().Get(traceIDHeader)
			require.NotEmpty(t, got)
			assert.True(t, nextCalled)
			if tt.wantSame {
				assert.Equal(t, tt.requestTraceID, got)
				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestWithTraceID_LoggerCarriesTraceID(t *testing.T) {
	var buf bytes.Buffer
	h := &Handler{logger: logger.NewLoggerTo(&buf, "test")}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromRequest(r).Info().Msg("inside")
	})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set(traceIDHeader, "trace-42")
	h.withTraceID(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"trace_id":"trace-42"`)
}
