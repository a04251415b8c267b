package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitechdev/ChannelSpec/pkg/metrics"
)

// panicCountingProvider records RecordPanic calls, everything else is no-op
type panicCountingProvider struct {
	metrics.NoOpProvider
	calls     int
	locations []string
}

func (p *panicCountingProvider) RecordPanic(location string) {
	p.calls++
	p.locations = append(p.locations, location)
}

func TestPanicRecovery(t *testing.T) {
	provider := &panicCountingProvider{}
	previous := metrics.GetProvider()
	metrics.SetProvider(provider)
	defer metrics.SetProvider(previous)

	t.Run("panicking handler becomes a 500", func(t *testing.T) {
		handler := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("something went terribly wrong")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "panic in PanicMiddleware: something went terribly wrong")
		assert.Equal(t, 1, provider.calls)
		assert.Equal(t, []string{panicMiddlewareMethodName}, provider.locations)
	})

	t.Run("healthy handler passes through untouched", func(t *testing.T) {
		provider.calls = 0
		handler := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		assert.Zero(t, provider.calls)
	})
}
