package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ratewatch/internal/domain"
	"github.com/kailas-cloud/ratewatch/internal/metrics"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 10 * time.Second

// Endpoint labels used in logs and metrics.
const (
	EndpointRateLimit = "rate_limit"
	EndpointGraphQL   = "graphql"
	EndpointToken     = "access_tokens"
)

const acceptHeader = "application/vnd.github+json"

// rateLimitQuery is the fixed GraphQL query for the rateLimit object.
const rateLimitQuery = `query {
  rateLimit {
    limit
    cost
    remaining
    resetAt
    used
    nodeCount
  }
}`

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Client talks to the GitHub REST and GraphQL APIs on behalf of one account.
// Each Client owns its HTTP client and connection pool.
type Client struct {
	http       *http.Client
	apiURL     string
	graphqlURL string
	userAgent  string
	logger     *zap.Logger
}

// Config holds the API client settings.
type Config struct {
	APIURL     string
	GraphQLURL string
	Timeout    time.Duration
	UserAgent  string
	Logger     *zap.Logger
	// HTTPClient overrides the per-client HTTP client (tests).
	HTTPClient *http.Client
}

// NewClient creates an API client with its own transport.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := cfg.HTTPClient
	if hc == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		hc = &http.Client{Timeout: timeout, Transport: transport}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:       hc,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		graphqlURL: cfg.GraphQLURL,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// RateLimit fetches the REST counters from GET /rate_limit.
func (c *Client) RateLimit(ctx context.Context, bearer string) (limits domain.RateLimits, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAPI(EndpointRateLimit, start, err) }()

	body, err := c.do(ctx, http.MethodGet, c.apiURL+"/rate_limit", bearer, nil)
	if err != nil {
		return domain.RateLimits{}, err
	}

	if err := json.Unmarshal(body, &limits); err != nil {
		return domain.RateLimits{}, fmt.Errorf("decode rate_limit response: %v: %w", err, domain.ErrResponse)
	}
	if limits.Resources == nil {
		limits.Resources = map[string]domain.RateLimit{}
	}
	return limits, nil
}

type graphqlError struct {
	Message string `json:"message"`
}

// GraphQLRateLimit fetches the GraphQL rateLimit object. An "errors" key in the
// payload is a failure even on HTTP 200, whatever its value; a missing
// rateLimit yields a zero record.
func (c *Client) GraphQLRateLimit(ctx context.Context, bearer string) (limit domain.GraphQLLimit, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAPI(EndpointGraphQL, start, err) }()

	payload, err := json.Marshal(map[string]string{"query": rateLimitQuery})
	if err != nil {
		return domain.GraphQLLimit{}, fmt.Errorf("encode graphql query: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.graphqlURL, bearer, payload)
	if err != nil {
		return domain.GraphQLLimit{}, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.GraphQLLimit{}, fmt.Errorf("decode graphql response: %v: %w", err, domain.ErrResponse)
	}
	if raw, ok := envelope["errors"]; ok {
		return domain.GraphQLLimit{}, graphqlErrors(raw)
	}

	var data struct {
		RateLimit *domain.GraphQLLimit `json:"rateLimit"`
	}
	if raw, ok := envelope["data"]; ok {
		if err := json.Unmarshal(raw, &data); err != nil {
			return domain.GraphQLLimit{}, fmt.Errorf("decode graphql data: %v: %w", err, domain.ErrResponse)
		}
	}
	if data.RateLimit == nil {
		return domain.GraphQLLimit{}, nil
	}
	return *data.RateLimit, nil
}

// graphqlErrors turns the raw "errors" value into a ResponseError. Values
// without messages ([], null, or anything unexpected) are reported verbatim.
func graphqlErrors(raw json.RawMessage) error {
	var list []graphqlError
	if json.Unmarshal(raw, &list) == nil {
		msgs := make([]string, 0, len(list))
		for _, e := range list {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) > 0 {
			return domain.NewResponseError(msgs...)
		}
	}
	return domain.NewResponseError("errors: " + strings.TrimSpace(string(raw)))
}

// InstallationToken exchanges an app JWT for an installation access token.
func (c *Client) InstallationToken(ctx context.Context, jwt, installationID string) (token string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAPI(EndpointToken, start, err) }()

	url := fmt.Sprintf("%s/app/installations/%s/access_tokens", c.apiURL, installationID)
	body, err := c.do(ctx, http.MethodPost, url, jwt, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode access token response: %v: %w", err, domain.ErrResponse)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("access token response without token: %w", domain.ErrResponse)
	}
	return resp.Token, nil
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, url, bearer string, payload []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, url, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", acceptHeader)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", method, url, err, domain.ErrTransport)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %v: %w", url, err, domain.ErrTransport)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("GitHub API returned non-2xx",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// parseAPIError extracts the "message" field GitHub puts in error bodies.
func parseAPIError(status int, body []byte) error {
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		return domain.NewAPIError(status, parsed.Message)
	}
	return domain.NewAPIError(status, strings.TrimSpace(string(body)))
}
