// Package http is the transport under the JSON client. It builds requests,
// applies authentication and interceptors, executes them through
// go-retryablehttp and classifies failures into *gdsapi.Error.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

const (
	contentTypeJSON  = "application/json"
	defaultUserAgent = "gdsapi-go/" + Version
)

// Version is reported in the default User-Agent.
const Version = "1.0.0"

// Static errors for err113 compliance.
var (
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrMissingHost       = errors.New("URL has no host")
)

// Request describes one call. Body is JSON encoded unless RawBody is set,
// in which case RawBody is sent as is with ContentType.
type Request struct {
	Method      string
	URL         string
	Query       url.Values
	Body        interface{}
	RawBody     []byte
	ContentType string
	Headers     map[string]string
}

// Response is a completed exchange, whatever its status.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Raw converts the response for the gdsapi wrappers.
func (r *Response) Raw() *gdsapi.RawResponse {
	return &gdsapi.RawResponse{
		StatusCode: r.StatusCode,
		Header:     r.Headers,
		Body:       r.Body,
	}
}

// Client executes requests against any absolute URL.
type Client struct {
	httpClient   *retryablehttp.Client
	bearerToken  string
	basicAuth    *gdsapi.BasicAuth
	userAgent    string
	headers      map[string]string
	logger       gdsapi.Logger
	debug        bool
	interceptors *gdsapi.InterceptorChain
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger gdsapi.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging of request and response bodies.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig turns on retries of connection errors, 429 and 5xx.
// Without it every request is attempted once.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		if waitMin > 0 {
			c.httpClient.RetryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.httpClient.RetryWaitMax = waitMax
		}
	}
}

// WithTimeout bounds every attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithBearerToken sends "Authorization: Bearer <token>".
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.bearerToken = token
	}
}

// WithBasicAuth writes credentials into each request URL.
func WithBasicAuth(auth *gdsapi.BasicAuth) Option {
	return func(c *Client) {
		c.basicAuth = auth
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for key, value := range headers {
			c.headers[key] = value
		}
	}
}

// WithInterceptors installs an interceptor chain.
func WithInterceptors(chain *gdsapi.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithHTTPClient replaces the underlying *http.Client, keeping its
// transport and timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// NewClient creates a transport. With no options it fails fast: one
// attempt per request and the default timeout.
func NewClient(opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		httpClient: retryClient,
		userAgent:  defaultUserAgent,
		headers:    make(map[string]string),
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient.CheckRetry = client.checkRetry

	if client.logger != nil {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	}

	return client
}

// NewClientFromConfig maps a gdsapi.Config onto transport options.
func NewClientFromConfig(config *gdsapi.Config, extra ...Option) *Client {
	opts := []Option{
		WithLogger(config.Logger),
		WithDebug(config.Debug),
		WithTimeout(config.EffectiveTimeout()),
		WithUserAgent(config.UserAgent),
		WithBearerToken(config.BearerToken),
		WithBasicAuth(config.BasicAuth),
		WithHeaders(config.Headers),
	}

	if config.RetryMax > 0 {
		opts = append(opts, WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	if len(config.RequestInterceptors) > 0 || len(config.ResponseInterceptors) > 0 {
		opts = append(opts, WithInterceptors(gdsapi.NewInterceptorChain(config.RequestInterceptors, config.ResponseInterceptors)))
	}

	return NewClient(append(opts, extra...)...)
}

// Do performs req. A non-2xx response returns both the response and a
// *gdsapi.Error; a transport failure returns only the error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	target, err := c.buildURL(req)
	if err != nil {
		return nil, gdsapi.ClassifyTransport(req.Method, req.URL, err)
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	intercepted := &gdsapi.InterceptedRequest{
		Method:  req.Method,
		URL:     target,
		Headers: c.headersFor(req, contentType),
		Body:    body,
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	c.logRequest(intercepted)

	start := time.Now()
	resp, err := c.execute(ctx, intercepted)
	duration := time.Since(start)

	result := &gdsapi.InterceptedResponse{Error: err}
	if resp != nil {
		result.StatusCode = resp.StatusCode
		result.Headers = resp.Headers
		result.Body = resp.Body
		resp.Duration = duration
	}

	interceptErr := c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, result)

	c.logResponse(intercepted, resp, duration, err)

	if err != nil {
		return nil, gdsapi.TransportError(intercepted.Method, intercepted.URL, err)
	}

	if interceptErr != nil {
		return resp, interceptErr
	}

	if classified := gdsapi.Classify(resp.StatusCode, intercepted.Method, intercepted.URL, resp.Body, nil); classified != nil {
		return resp, classified
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: rawURL, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, rawURL string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, URL: rawURL, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, rawURL string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, URL: rawURL, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, rawURL string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, URL: rawURL, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, rawURL string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, URL: rawURL})
}

func (c *Client) execute(ctx context.Context, req *gdsapi.InterceptedRequest) (*Response, error) {
	var body interface{}
	if req.Body != nil {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header = req.Headers

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) buildURL(req *Request) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", &url.Error{Op: "parse", URL: req.URL, Err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)}
	}

	if u.Host == "" {
		return "", &url.Error{Op: "parse", URL: req.URL, Err: ErrMissingHost}
	}

	if len(req.Query) > 0 {
		query := u.Query()
		for key, values := range req.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}

		u.RawQuery = query.Encode()
	}

	if c.basicAuth != nil && c.basicAuth.User != "" {
		u.User = url.UserPassword(c.basicAuth.User, c.basicAuth.Password)
	}

	return u.String(), nil
}

func (c *Client) headersFor(req *Request, contentType string) http.Header {
	headers := make(http.Header)
	headers.Set("Accept", contentTypeJSON)
	headers.Set("User-Agent", c.userAgent)

	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	if c.bearerToken != "" {
		headers.Set("Authorization", "Bearer "+c.bearerToken)
	}

	for key, value := range c.headers {
		headers.Set(key, value)
	}

	for key, value := range req.Headers {
		headers.Set(key, value)
	}

	return headers
}

func encodeBody(req *Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}

	if req.Body == nil {
		return nil, "", nil
	}

	var buf bytes.Buffer

	err := json.NewEncoder(&buf).Encode(req.Body)
	if err != nil {
		return nil, "", err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), contentTypeJSON, nil
}

// checkRetry never retries unless retries were configured, then defers to
// the library's policy: connection errors, 429 and 5xx except 501.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if c.httpClient.RetryMax == 0 {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		return false, nil
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (c *Client) logRequest(req *gdsapi.InterceptedRequest) {
	if c.logger == nil || !c.debug {
		return
	}

	fields := map[string]interface{}{
		"method": req.Method,
		"url":    redact(req.URL),
	}

	if len(req.Body) > 0 && strings.HasPrefix(req.Headers.Get("Content-Type"), contentTypeJSON) {
		fields["body"] = truncate(req.Body)
	}

	c.logger.Debug("HTTP Request", fields)
}

func (c *Client) logResponse(req *gdsapi.InterceptedRequest, resp *Response, duration time.Duration, err error) {
	if c.logger == nil {
		return
	}

	fields := map[string]interface{}{
		"method":      req.Method,
		"url":         redact(req.URL),
		"duration_ms": duration.Milliseconds(),
	}

	if err != nil {
		fields["error"] = err.Error()
		c.logger.Error("HTTP Response", fields)

		return
	}

	fields["status"] = resp.StatusCode

	if c.debug {
		fields["body"] = truncate(resp.Body)
	}

	c.logger.Info("HTTP Response", fields)
}

func truncate(body []byte) string {
	if len(body) > constants.MaxErrorBodyLog {
		return string(body[:constants.MaxErrorBodyLog]) + "..."
	}

	return string(body)
}

func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	return u.Redacted()
}

// leveledLogger lets retryablehttp report retries through gdsapi.Logger.
type leveledLogger struct {
	logger gdsapi.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fieldsOf(keysAndValues))
}

// Debug drops per-attempt entries; Do logs every request itself.
func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])

		if req, ok := keysAndValues[i+1].(*http.Request); ok {
			fields[key] = req.Method + " " + req.URL.Redacted()

			continue
		}

		fields[key] = keysAndValues[i+1]
	}

	return fields
}
