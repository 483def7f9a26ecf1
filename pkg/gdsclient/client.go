package gdsclient

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/gdsapi/internal/client"
	"github.com/fivetwenty-io/gdsapi/internal/discovery"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// Service names accepted by WithEndpoint and WithBearerToken.
const (
	ContentStore  = client.ServiceContentStore
	PublishingAPI = client.ServicePublishingAPI
	Search        = client.ServiceSearch
	Router        = client.ServiceRouter
	AssetManager  = client.ServiceAssetManager
	Organisations = client.ServiceOrganisations
)

// Option customises New.
type Option func(*options)

type options struct {
	env        *viper.Viper
	endpoints  map[string]string
	tokens     map[string]string
	registerer prometheus.Registerer
	collector  *gdsapi.MetricsCollector
	rps        float64
	burst      int
}

// WithEndpoint pins the base URL of one service, skipping discovery.
func WithEndpoint(service, endpoint string) Option {
	return func(o *options) {
		o.endpoints[service] = endpoint
	}
}

// WithBearerToken sets the token sent to one service.
func WithBearerToken(service, token string) Option {
	return func(o *options) {
		o.tokens[service] = token
	}
}

// WithEnvironment replaces the process environment as the discovery source.
func WithEnvironment(v *viper.Viper) Option {
	return func(o *options) {
		o.env = v
	}
}

// WithPrometheus registers request metrics with reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithMetricsCollector records per-endpoint metrics into collector.
func WithMetricsCollector(collector *gdsapi.MetricsCollector) Option {
	return func(o *options) {
		o.collector = collector
	}
}

// WithRateLimit caps outgoing requests across every service.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(o *options) {
		o.rps = requestsPerSecond
		o.burst = burst
	}
}

// New builds a client for every supported service. A nil config uses
// gdsapi.DefaultConfig(). Endpoints not given with WithEndpoint are
// discovered from GOVUK_APP_DOMAIN and PLEK_SERVICE_<NAME>_URI, and tokens
// default to <SERVICE>_BEARER_TOKEN.
func New(config *gdsapi.Config, opts ...Option) (gdsapi.Client, error) {
	o := &options{
		endpoints: make(map[string]string),
		tokens:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}

	base, err := baseConfig(config, o)
	if err != nil {
		return nil, err
	}

	finder := discovery.New()
	if o.env != nil {
		finder = discovery.NewFromViper(o.env)
	}

	if base.WebURLsRelativeTo == "" {
		base.WebURLsRelativeTo = finder.WebsiteRoot()
	}

	service := func(name string) (client.ServiceConfig, error) {
		endpoint := o.endpoints[name]
		if endpoint == "" {
			found, err := finder.Find(name)
			if err != nil {
				return client.ServiceConfig{}, fmt.Errorf("discovering %s: %w", name, err)
			}

			endpoint = found
		}

		cfg := base.Clone()
		if token, ok := o.tokens[name]; ok {
			cfg.BearerToken = token
		} else if token := finder.BearerToken(name); token != "" {
			cfg.BearerToken = token
		}

		return client.ServiceConfig{Endpoint: endpoint, Config: cfg}, nil
	}

	services := client.Services{Default: base}

	for name, target := range map[string]*client.ServiceConfig{
		ContentStore:  &services.ContentStore,
		PublishingAPI: &services.PublishingAPI,
		Search:        &services.Search,
		Router:        &services.Router,
		AssetManager:  &services.AssetManager,
		Organisations: &services.Organisations,
	} {
		*target, err = service(name)
		if err != nil {
			return nil, err
		}
	}

	c, err := client.New(services)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithAppDomain discovers every service under domain.
func NewWithAppDomain(domain string) (gdsapi.Client, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.Set("GOVUK_APP_DOMAIN", domain)

	return New(nil, WithEnvironment(v))
}

// NewJSONClient returns a bare JSON client for arbitrary URLs.
func NewJSONClient(config *gdsapi.Config) gdsapi.JSONClient {
	return client.NewJSONClient(config)
}

func baseConfig(config *gdsapi.Config, o *options) (*gdsapi.Config, error) {
	if config == nil {
		config = gdsapi.DefaultConfig()
	} else {
		config = config.Clone()
	}

	config.RequestInterceptors = append(config.RequestInterceptors, gdsapi.GovukRequestIDInterceptor())

	if o.rps > 0 {
		config.RequestInterceptors = append(config.RequestInterceptors, gdsapi.RateLimitInterceptor(o.rps, o.burst))
	}

	if o.collector != nil {
		config.RequestInterceptors = append(config.RequestInterceptors, gdsapi.MetricsRequestInterceptor(o.collector))
		config.ResponseInterceptors = append(config.ResponseInterceptors, gdsapi.MetricsResponseInterceptor(o.collector))
	}

	if o.registerer != nil {
		metrics, err := gdsapi.NewPrometheusMetrics(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("enabling prometheus metrics: %w", err)
		}

		config.RequestInterceptors = append(config.RequestInterceptors, metrics.RequestInterceptor())
		config.ResponseInterceptors = append(config.ResponseInterceptors, metrics.ResponseInterceptor())
	}

	return config, nil
}
