package internal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
)

// RateLimitConfig controls how requests are throttled before reaching Ruqqus.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	secondsPerMinute         = 60.0
)

// TokenFunc returns the current access token, or "" when no token has been
// issued yet. The token lifecycle manager owns the credential state; the
// gateway only ever reads through this reference.
type TokenFunc func() string

// Gateway is the single chokepoint for outbound API calls. It resolves
// relative paths against the API root, attaches the bearer token and the
// fixed identification headers, throttles requests, and classifies responses
// into the pkg/errors taxonomy.
type Gateway struct {
	client    *http.Client
	apiURL    *url.URL
	userAgent string
	library   string
	token     TokenFunc
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// RequestOptions carries the optional parts of an API request.
type RequestOptions struct {
	// Query is appended to the request URL.
	Query url.Values
	// Form is sent URL-encoded as the request body.
	Form url.Values
	// NoAuth skips the Authorization header. Token-exchange calls must not
	// send a not-yet-issued token.
	NoAuth bool
	// Operation names the API operation for error reporting.
	Operation string
}

// NewGateway returns a gateway rooted at apiURL. A nil httpClient falls back
// to http.DefaultClient; a nil token func means no call attaches auth.
func NewGateway(httpClient *http.Client, apiURL, userAgent, library string, token TokenFunc, rateCfg *RateLimitConfig, logger *slog.Logger) (*Gateway, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "APIURL", Message: err.Error()}
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	if token == nil {
		token = func() string { return "" }
	}
	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	return &Gateway{
		client:    httpClient,
		apiURL:    parsed,
		userAgent: userAgent,
		library:   library,
		token:     token,
		limiter:   buildLimiter(*rateCfg),
		logger:    logger,
	}, nil
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / secondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

// resolve turns path into an absolute URL. Absolute http(s) paths pass
// through untouched; everything else is taken relative to the API root.
func (g *Gateway) resolve(path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return url.Parse(path)
	}
	return g.apiURL.Parse(strings.TrimPrefix(path, "/"))
}

// Do issues an API request and returns the raw response body. Structured
// error bodies and non-2xx statuses come back as *APIError; transport
// failures as *RequestError.
func (g *Gateway) Do(ctx context.Context, method, path string, opts *RequestOptions) ([]byte, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	u, err := g.resolve(path)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: opts.Operation, Err: err}
	}
	if len(opts.Query) > 0 {
		q := u.Query()
		for k, vs := range opts.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if len(opts.Form) > 0 {
		body = strings.NewReader(opts.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: opts.Operation, URL: u.String(), Err: err}
	}

	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("X-User-Type", "Bot")
	req.Header.Set("X-Library", g.library)
	req.Header.Set("X-Supports", "auth")
	if len(opts.Form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if !opts.NoAuth {
		if tok := g.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &pkgerrs.RequestError{Operation: opts.Operation, URL: u.String(), Err: err}
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: opts.Operation, URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: opts.Operation, URL: u.String(), Err: err}
	}

	if g.logger != nil {
		g.logger.Debug("api request",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
	}

	if apiErr := classify(resp.StatusCode, respBody); apiErr != nil {
		return respBody, apiErr
	}

	return respBody, nil
}

// DoJSON issues an API request and decodes the response body into v.
func (g *Gateway) DoJSON(ctx context.Context, method, path string, opts *RequestOptions, v any) error {
	body, err := g.Do(ctx, method, path, opts)
	if err != nil {
		return err
	}

	op := ""
	if opts != nil {
		op = opts.Operation
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &pkgerrs.ParseError{Operation: op, Err: err}
	}
	return nil
}

// errorBody is the structured error envelope the API uses. Some endpoints
// report errors with a 200 status, so the body is inspected either way.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func classify(status int, body []byte) error {
	var eb errorBody
	if len(body) > 0 && body[0] == '{' {
		// A malformed body on an error status still needs classifying,
		// so the decode error is deliberately ignored.
		_ = json.Unmarshal(body, &eb)
	}

	msg := eb.Error
	if eb.Message != "" {
		msg = eb.Message
	}

	if status < 200 || status >= 300 {
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &pkgerrs.APIError{StatusCode: status, Message: msg}
	}

	if eb.Error != "" {
		return &pkgerrs.APIError{StatusCode: status, Message: msg}
	}

	return nil
}
