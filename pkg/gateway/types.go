package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthorized matches API errors caused by a missing, expired or rejected token
var ErrUnauthorized = errors.New("gateway rejected credentials")

// ErrNoSession is returned by session-scoped calls on a client without a session id
var ErrNoSession = errors.New("gateway client has no session id")

// ToolDescriptor describes a tool returned by search. Only Name is relied upon.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Service     string                 `json:"service,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// SearchResult is the response of a tool search
type SearchResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// HasTools reports whether the search returned at least one tool
func (r *SearchResult) HasTools() bool {
	return r != nil && len(r.Tools) > 0
}

// ExecuteRequest is the body of a session-scoped tool execution
type ExecuteRequest struct {
	Tool       string                 `json:"tool"`
	Parameters map[string]interface{} `json:"parameters"`
}

// MemoryRequest is the body of a memory save
type MemoryRequest struct {
	SessionID string                 `json:"session_id"`
	Summary   string                 `json:"summary"`
	Content   map[string]interface{} `json:"content"`
}

// CreateSessionRequest is the body of an agent session registration
type CreateSessionRequest struct {
	SubscribedServices []string `json:"subscribed_services"`
}

// CreateSessionResponse is returned by the gateway when a session is registered
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// HealthStatus is returned by the health endpoint
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// APIError is returned when the gateway answers with an error status
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	ErrorMsg   string `json:"error"`
	Method     string `json:"-"`
	Path       string `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.ErrorMsg
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Method != "" {
		return fmt.Sprintf("gateway %s %s: %d: %s", e.Method, e.Path, e.StatusCode, msg)
	}
	return fmt.Sprintf("gateway error %d: %s", e.StatusCode, msg)
}

// Is lets errors.Is match ErrUnauthorized on 401 and 403 responses
func (e *APIError) Is(target error) bool {
	if target == ErrUnauthorized {
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Temporary reports whether retrying the request later may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
