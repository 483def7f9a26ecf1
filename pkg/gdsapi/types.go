package gdsapi

import (
	"errors"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired   = errors.New("config is required")
	ErrEndpointRequired = errors.New("endpoint URL is required")
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// BasicAuth credentials are embedded in the request URL as userinfo.
type BasicAuth struct {
	User     string `json:"user"     yaml:"user"`
	Password string `json:"password" yaml:"password"` //nolint:gosec // credential field
}

// Config holds the options a JSON client is built from. A client copies
// the config on construction; later changes do not reach it.
type Config struct {
	// BearerToken is sent as "Authorization: Bearer <token>".
	BearerToken string
	// BasicAuth, when set, is written into the request URL.
	BasicAuth *BasicAuth

	// Logger receives one entry per request. Nil disables logging.
	Logger Logger
	// Debug adds request and response bodies to log entries.
	Debug bool

	// Cache stores GET responses within their freshness window. Nil
	// disables caching; tests should pass NewNoOpCache().
	Cache Cache
	// CachingPolicy decides which responses are stored. Nil uses
	// DefaultCachingPolicy().
	CachingPolicy *CachingPolicy

	// WebURLsRelativeTo rewrites web_url values under this origin.
	WebURLsRelativeTo string

	// Timeout bounds each request. Zero uses constants.DefaultHTTPTimeout.
	Timeout time.Duration
	// UserAgent overrides the default User-Agent.
	UserAgent string

	// RetryMax enables retries of transient failures. Zero, the default,
	// fails fast and leaves retrying to the caller.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Headers are added to every request.
	Headers map[string]string

	// Interceptors run around every request.
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
}

// Clone returns a copy that shares the cache and logger but not the
// mutable collections.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	clone := *c

	if c.BasicAuth != nil {
		auth := *c.BasicAuth
		clone.BasicAuth = &auth
	}

	if c.CachingPolicy != nil {
		policy := *c.CachingPolicy
		clone.CachingPolicy = &policy
	}

	clone.Headers = maps.Clone(c.Headers)
	clone.RequestInterceptors = append([]RequestInterceptor(nil), c.RequestInterceptors...)
	clone.ResponseInterceptors = append([]ResponseInterceptor(nil), c.ResponseInterceptors...)

	return &clone
}

// EffectiveTimeout returns Timeout or the package default.
func (c *Config) EffectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}

	return constants.DefaultHTTPTimeout
}

// RequestOption adjusts a single request.
type RequestOption func(*RequestOptions)

// RequestOptions are the per-call settings.
type RequestOptions struct {
	Headers http.Header
	// NoCache skips the response cache for this call.
	NoCache bool
}

// WithHeader adds a header to one request.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(http.Header)
		}

		o.Headers.Set(key, value)
	}
}

// WithoutCache bypasses the response cache for one request.
func WithoutCache() RequestOption {
	return func(o *RequestOptions) {
		o.NoCache = true
	}
}

// ApplyRequestOptions folds opts into a RequestOptions value.
func ApplyRequestOptions(opts []RequestOption) RequestOptions {
	var options RequestOptions
	for _, opt := range opts {
		opt(&options)
	}

	return options
}

var (
	defaultConfigMu sync.RWMutex
	defaultConfig   *Config
)

// DefaultConfig returns a copy of the process-wide default config. The
// first call creates it with a shared in-memory cache.
func DefaultConfig() *Config {
	defaultConfigMu.RLock()
	cfg := defaultConfig
	defaultConfigMu.RUnlock()

	if cfg != nil {
		return cfg.Clone()
	}

	defaultConfigMu.Lock()
	defer defaultConfigMu.Unlock()

	if defaultConfig == nil {
		defaultConfig = &Config{
			Cache:         NewMemoryCache(constants.DefaultCacheSize),
			CachingPolicy: DefaultCachingPolicy(),
		}
	}

	return defaultConfig.Clone()
}

// SetDefaultConfig replaces the process-wide default. Clients already
// built keep the config they were created with.
func SetDefaultConfig(cfg *Config) {
	defaultConfigMu.Lock()
	defer defaultConfigMu.Unlock()

	defaultConfig = cfg.Clone()
}
