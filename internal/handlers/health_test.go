// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	a := newTestAPI()

	t.Run("returns 200 OK for GET request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		a.Health(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("returns valid JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		a.Health(w, req)

		var response HealthResponse
		err := json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "sopforge-api", response.Service)
		assert.Equal(t, "2026-07-01T12:00:00Z", response.Timestamp)
		assert.NotEmpty(t, response.Uptime)
	})

	t.Run("includes runtime and graph details", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		a.Health(w, req)

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

		assert.Equal(t, runtime.Version(), response.Details["go_version"])
		assert.Equal(t, strconv.Itoa(runtime.NumCPU()), response.Details["num_cpu"])
		assert.Equal(t, "3", response.Details["graph_version"])
		assert.Equal(t, "3", response.Details["graph_nodes"])
		assert.Equal(t, "graph/sop-graph.json", response.Details["graph_path"])

		_, err := time.Parse(time.RFC3339, response.Details["graph_loaded_at"])
		assert.NoError(t, err)
	})

	t.Run("returns 405 for non-GET requests", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			req := httptest.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			a.Health(w, req)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
			assert.Contains(t, w.Body.String(), "Method not allowed")
		}
	})

	t.Run("handles multiple concurrent requests", func(t *testing.T) {
		numRequests := 10
		results := make(chan int, numRequests)

		for range numRequests {
			go func() {
				req := httptest.NewRequest(http.MethodGet, "/health", nil)
				w := httptest.NewRecorder()
				a.Health(w, req)
				results <- w.Code
			}()
		}

		for range numRequests {
			assert.Equal(t, http.StatusOK, <-results)
		}
	})
}
