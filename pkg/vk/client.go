package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vkdump/pkg/errors"
	"vkdump/pkg/logger"
	"vkdump/pkg/ratelimit"
	"vkdump/pkg/retry"
)

// Caller executes a single VK API method and returns the raw response payload
type Caller interface {
	Call(ctx context.Context, method string, params url.Values) (json.RawMessage, error)
}

// Client is an HTTP client for the VK API with rate limiting and retry support
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	version     string
	rateLimiter ratelimit.Limiter
	maxRetries  int
	retryDelay  time.Duration
	logger      logger.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL overrides the API endpoint, mainly for tests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimiter sets the rate limiter used between API calls
func WithRateLimiter(limiter ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = limiter
	}
}

// WithMaxRetries sets the number of retry attempts for retryable failures
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the base delay of the retry backoff
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// NewClient creates a new VK API client
func NewClient(token, version string, log logger.Logger, opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    APIBaseURL,
		token:      token,
		version:    version,
		maxRetries: 3,
		retryDelay: 1 * time.Second,
		logger:     log,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// apiError is the error envelope VK wraps failed calls in
type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// apiResponse is the top-level envelope of every VK API response
type apiResponse struct {
	Response json.RawMessage `json:"response"`
	Error    *apiError       `json:"error"`
}

// VK API error codes that map onto the client error taxonomy
const (
	vkErrAuthFailed       = 5
	vkErrTooManyRequests  = 6
	vkErrFloodControl     = 9
	vkErrInternalServer   = 10
	vkErrPermissionDenied = 15
	vkErrAccessDenied     = 18
	vkErrRateLimitReached = 29
	vkErrParamMissing     = 100
	vkErrWallAccessDenied = 119
)

// Call executes a VK API method, retrying retryable failures.
// The returned payload is the contents of the "response" field.
func (c *Client) Call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	cfg := &retry.Config{
		MaxAttempts: c.maxRetries,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    c.retryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		RetryIf: retry.DefaultRetryIf,
		Context: ctx,
		Logger:  c.logger,
	}

	return retry.DoWithResult(func() (json.RawMessage, error) {
		return c.doCall(ctx, method, params)
	}, cfg)
}

// doCall performs one HTTP round trip to the API
func (c *Client) doCall(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if c.rateLimiter != nil {
		c.rateLimiter.Wait()
	}

	form := url.Values{}
	for key, values := range params {
		for _, value := range values {
			form.Add(key, value)
		}
	}
	form.Set("access_token", c.token)
	form.Set("v", c.version)

	endpoint := c.baseURL + "/" + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.DebugWithFields("Calling VK API", map[string]interface{}{
		"method": method,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response: %v", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(method, resp.StatusCode)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse API response: %v", err),
		}
	}

	if envelope.Error != nil {
		return nil, c.apiErrorToError(method, envelope.Error)
	}

	if envelope.Response == nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("API response for %s has no payload", method),
		}
	}

	return envelope.Response, nil
}

// statusError maps an HTTP status code to a typed error
func (c *Client) statusError(method string, status int) error {
	errType := errors.ErrorTypeServerError
	switch {
	case status == http.StatusTooManyRequests:
		errType = errors.ErrorTypeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = errors.ErrorTypeAuth
	case status == http.StatusNotFound:
		errType = errors.ErrorTypeNotFound
	case status >= 500:
		errType = errors.ErrorTypeServerError
	default:
		errType = errors.ErrorTypeNetwork
	}

	return &errors.Error{
		Type:    errType,
		Message: fmt.Sprintf("%s returned HTTP %d", method, status),
		Code:    status,
	}
}

// apiErrorToError maps a VK error envelope to a typed error
func (c *Client) apiErrorToError(method string, apiErr *apiError) error {
	var errType errors.ErrorType
	switch apiErr.Code {
	case vkErrTooManyRequests, vkErrFloodControl, vkErrRateLimitReached:
		errType = errors.ErrorTypeRateLimit
	case vkErrAuthFailed, vkErrPermissionDenied, vkErrAccessDenied, vkErrWallAccessDenied:
		errType = errors.ErrorTypeAuth
	case vkErrInternalServer:
		errType = errors.ErrorTypeServerError
	case vkErrParamMissing:
		errType = errors.ErrorTypeParsing
	default:
		errType = errors.ErrorTypeUnknown
	}

	return &errors.Error{
		Type:    errType,
		Message: fmt.Sprintf("%s failed: %s", method, apiErr.Message),
		Code:    apiErr.Code,
	}
}

// Probe verifies the token by requesting the current user's profile
func (c *Client) Probe(ctx context.Context) (*RawUser, error) {
	payload, err := c.Call(ctx, "users.get", url.Values{})
	if err != nil {
		return nil, err
	}

	var users []RawUser
	if err := json.Unmarshal(payload, &users); err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse users.get response: %v", err),
		}
	}
	if len(users) == 0 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: "token does not resolve to a user",
		}
	}

	return &users[0], nil
}
