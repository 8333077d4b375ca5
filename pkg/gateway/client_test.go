package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:   server.URL,
		Token:     "test-token",
		Timeout:   5 * time.Second,
		SessionID: "session_1",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client, err := NewClient(Config{})
		require.NoError(t, err)
		assert.Nil(t, client.limiter)
		assert.Equal(t, "", client.SessionID())
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := NewClient(Config{BaseURL: "not a url"})
		assert.Error(t, err)
	})

	t.Run("rate limit", func(t *testing.T) {
		client, err := NewClient(Config{RateLimit: 2})
		require.NoError(t, err)
		require.NotNil(t, client.limiter)
		assert.Equal(t, 1, client.limiter.Burst())
	})

	t.Run("for session shares transport", func(t *testing.T) {
		client, err := NewClient(Config{RateLimit: 5, Burst: 3})
		require.NoError(t, err)

		bound := client.ForSession("session_9")
		assert.Equal(t, "session_9", bound.SessionID())
		assert.Equal(t, "", client.SessionID())
		assert.Same(t, client.http, bound.http)
		assert.Same(t, client.limiter, bound.limiter)
	})
}

func TestClient_SearchTools(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search/tools", r.URL.Path)
		assert.Equal(t, "Multiple Sclerosis", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"tools": []map[string]interface{}{
				{"name": "exmplr_core.search", "description": "Search trials"},
			},
		})
	})

	result, err := client.SearchTools(context.Background(), "Multiple Sclerosis")
	require.NoError(t, err)
	require.True(t, result.HasTools())
	assert.Equal(t, "exmplr_core.search", result.Tools[0].Name)
}

func TestClient_RunTool(t *testing.T) {
	t.Run("posts to session execute endpoint", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/agents/session_1/execute", r.URL.Path)

			var body ExecuteRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "exmplr_core.search", body.Tool)
			assert.Equal(t, "Multiple Sclerosis", body.Parameters["q"])

			writeJSON(w, http.StatusOK, map[string]interface{}{"result": "success", "count": 3})
		})

		result, err := client.RunTool(context.Background(), "exmplr_core.search", map[string]interface{}{"q": "Multiple Sclerosis"})
		require.NoError(t, err)
		assert.Equal(t, "success", result["result"])
		assert.Equal(t, float64(3), result["count"])
	})

	t.Run("requires session", func(t *testing.T) {
		client, err := NewClient(Config{})
		require.NoError(t, err)

		_, err = client.RunTool(context.Background(), "echo", nil)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("server error becomes api error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream timeout"})
		})

		_, err := client.RunTool(context.Background(), "echo", nil)
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.True(t, apiErr.Temporary())
		assert.Contains(t, apiErr.Error(), "upstream timeout")
	})
}

func TestClient_SaveMemory(t *testing.T) {
	var received MemoryRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/memory", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.SaveMemory(context.Background(), "Processed research", map[string]interface{}{
		"timestamp": "2025-06-01T12:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "session_1", received.SessionID)
	assert.Equal(t, "Processed research", received.Summary)
	assert.Equal(t, "2025-06-01T12:00:00Z", received.Content["timestamp"])
}

func TestClient_CreateSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/agents", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []interface{}{}, body["subscribed_services"])

		writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: "sess-remote"})
	})

	id, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-remote", id)
}

func TestClient_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("token expired"))
	})

	_, err := client.SearchTools(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "token expired")
}

func TestClient_ContextCancelled(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusOK, SearchResult{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SearchTools(ctx, "x")
	assert.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClient_Health(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": "1.4.2"})
	})

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.4.2", status.Version)
}

func TestCheckVersion(t *testing.T) {
	status := &HealthStatus{Status: "ok", Version: "1.4.2"}

	assert.NoError(t, CheckVersion(status, ""))
	assert.NoError(t, CheckVersion(status, ">= 1.2"))
	assert.Error(t, CheckVersion(status, ">= 2.0"))
	assert.Error(t, CheckVersion(status, "not-a-constraint"))
	assert.Error(t, CheckVersion(&HealthStatus{Status: "ok"}, ">= 1.0"))
	assert.Error(t, CheckVersion(&HealthStatus{Version: "banana"}, ">= 1.0"))
}

func TestAPIError(t *testing.T) {
	t.Run("message precedence", func(t *testing.T) {
		assert.Contains(t, (&APIError{StatusCode: 400, Message: "bad", ErrorMsg: "worse"}).Error(), "bad")
		assert.Contains(t, (&APIError{StatusCode: 400, ErrorMsg: "worse"}).Error(), "worse")
		assert.Contains(t, (&APIError{StatusCode: 404}).Error(), "Not Found")
	})

	t.Run("unauthorized matching", func(t *testing.T) {
		assert.True(t, errors.Is(&APIError{StatusCode: 403}, ErrUnauthorized))
		assert.False(t, errors.Is(&APIError{StatusCode: 500}, ErrUnauthorized))
	})

	t.Run("temporary", func(t *testing.T) {
		assert.True(t, (&APIError{StatusCode: 429}).Temporary())
		assert.False(t, (&APIError{StatusCode: 400}).Temporary())
	})
}
