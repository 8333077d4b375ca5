// Package gateway is the HTTP client for the Aphelion gateway: tool search, tool execution,
// memory persistence and session registration.
//
// Invariants:
// - Every request is bounded by the caller's context and the client timeout.
// - Requests pass through a client-side rate limiter when one is configured.
// - HTTP status >= 400 surfaces as *APIError; 401/403 also match ErrUnauthorized.
//
// Usage:
//
//	client, _ := gateway.NewClient(gateway.Config{BaseURL: "https://api.aphelion.exmplr.ai", Token: token})
//	client = client.ForSession(sessionID)
//	result, _ := client.SearchTools(ctx, "Multiple Sclerosis")
//	_ = result
package gateway
