package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Aphelion gateway
	DefaultBaseURL = "https://api.aphelion.exmplr.ai"
	// DefaultTimeout bounds a single gateway request
	DefaultTimeout = 30 * time.Second
)

// Client talks to the gateway over HTTP
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	logger    zerolog.Logger
	sessionID string
	services  []string
}

// Config holds gateway client configuration
type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
	UserAgent string
	SessionID string
	Logger    zerolog.Logger

	// SubscribedServices is sent when registering a new session
	SubscribedServices []string

	// Transport overrides the HTTP transport, mainly for tests
	Transport http.RoundTripper
}

// NewClient creates a new gateway client
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway url: %q", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}
	if cfg.Transport != nil {
		httpClient.SetTransport(cfg.Transport)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		http:      httpClient,
		limiter:   limiter,
		logger:    cfg.Logger,
		sessionID: cfg.SessionID,
		services:  cfg.SubscribedServices,
	}, nil
}

// ForSession returns a client bound to sessionID that shares the transport and limiter
func (c *Client) ForSession(sessionID string) *Client {
	clone := *c
	clone.sessionID = sessionID
	return &clone
}

// SessionID returns the session this client is bound to
func (c *Client) SessionID() string {
	return c.sessionID
}

// SearchTools searches the gateway for tools relevant to query
func (c *Client) SearchTools(ctx context.Context, query string) (*SearchResult, error) {
	var result SearchResult
	req := c.request(ctx).
		SetQueryParam("q", query).
		SetResult(&result)
	if err := c.send(req, http.MethodGet, "/search/tools"); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunTool executes a tool within the bound session and returns the gateway's result verbatim
func (c *Client) RunTool(ctx context.Context, name string, params map[string]interface{}) (map[string]interface{}, error) {
	if c.sessionID == "" {
		return nil, ErrNoSession
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	result := map[string]interface{}{}
	req := c.request(ctx).
		SetBody(ExecuteRequest{Tool: name, Parameters: params}).
		SetResult(&result)
	path := "/v1/agents/" + url.PathEscape(c.sessionID) + "/execute"
	if err := c.send(req, http.MethodPost, path); err != nil {
		return nil, err
	}
	return result, nil
}

// SaveMemory stores a memory entry for the bound session
func (c *Client) SaveMemory(ctx context.Context, summary string, content map[string]interface{}) error {
	if c.sessionID == "" {
		return ErrNoSession
	}
	req := c.request(ctx).SetBody(MemoryRequest{
		SessionID: c.sessionID,
		Summary:   summary,
		Content:   content,
	})
	return c.send(req, http.MethodPost, "/memory")
}

// CreateSession registers a new agent session and returns its id
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	services := c.services
	if services == nil {
		services = []string{}
	}
	var resp CreateSessionResponse
	req := c.request(ctx).
		SetBody(CreateSessionRequest{SubscribedServices: services}).
		SetResult(&resp)
	if err := c.send(req, http.MethodPost, "/v1/agents"); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Health checks gateway availability
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	req := c.request(ctx).SetResult(&status)
	if err := c.send(req, http.MethodGet, "/health"); err != nil {
		return nil, err
	}
	return &status, nil
}

// CheckVersion verifies that the gateway version satisfies constraint (e.g. ">= 1.2")
func CheckVersion(status *HealthStatus, constraint string) error {
	if constraint == "" {
		return nil
	}
	if status == nil || status.Version == "" {
		return fmt.Errorf("gateway did not report a version")
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(status.Version)
	if err != nil {
		return fmt.Errorf("invalid gateway version %q: %w", status.Version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("gateway version %s does not satisfy %s", v, constraint)
	}
	return nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// send waits for the rate limiter, executes req and converts error statuses to *APIError
func (c *Client) send(req *resty.Request, method, path string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("gateway rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Gateway request completed")

	if resp.IsError() {
		return newAPIError(method, path, resp)
	}
	return nil
}

func newAPIError(method, path string, resp *resty.Response) *APIError {
	apiErr := &APIError{}
	body := resp.Body()
	if len(body) > 0 {
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	apiErr.StatusCode = resp.StatusCode()
	apiErr.Method = method
	apiErr.Path = path
	return apiErr
}
