package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandDeadlineMiddleware(t *testing.T) {
	t.Run("request context carries the deadline", func(t *testing.T) {
		var deadline time.Time
		var ok bool
		h := CommandDeadlineMiddleware(30 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline, ok = r.Context().Deadline()
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/links/request-code", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, time.Second)
	})

	t.Run("expiry cancels the in-flight call", func(t *testing.T) {
		ctxErr := make(chan error, 1)
		h := CommandDeadlineMiddleware(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			ctxErr <- r.Context().Err()
			w.WriteHeader(http.StatusGatewayTimeout)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/links/submit-code", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.ErrorIs(t, <-ctxErr, context.DeadlineExceeded)
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("non-positive timeout falls back to the default", func(t *testing.T) {
		var deadline time.Time
		var ok bool
		h := CommandDeadlineMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline, ok = r.Context().Deadline()
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bots/B1/links", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(DefaultCommandTimeout), deadline, time.Second)
	})
}
