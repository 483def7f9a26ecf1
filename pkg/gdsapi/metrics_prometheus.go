package gdsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "gdsapi"
	labelHost        = "host"
	labelMethod      = "method"
	labelStatus      = "status"
)

// PrometheusMetrics exports request counts and latencies. Register it
// once and add both interceptors to a client config.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests made to GOV.UK APIs by host, method and status.",
		}, []string{labelHost, labelMethod, labelStatus}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of requests made to GOV.UK APIs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{labelHost, labelMethod}),
	}

	for _, collector := range []prometheus.Collector{m.requests, m.duration} {
		err := reg.Register(collector)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	return m, nil
}

// RequestInterceptor stamps the start time.
func (m *PrometheusMetrics) RequestInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *InterceptedRequest) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[startTimeKey] = time.Now()

		return nil
	}
}

// ResponseInterceptor observes the finished request. Transport failures
// are counted with status "error".
func (m *PrometheusMetrics) ResponseInterceptor() ResponseInterceptor {
	return func(ctx context.Context, req *InterceptedRequest, resp *InterceptedResponse) error {
		host := req.URL
		if u, err := url.Parse(req.URL); err == nil {
			host = u.Host
		}

		status := "error"
		if resp.Error == nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		m.requests.WithLabelValues(host, req.Method, status).Inc()

		if startTime, ok := req.Metadata[startTimeKey].(time.Time); ok {
			m.duration.WithLabelValues(host, req.Method).Observe(time.Since(startTime).Seconds())
		}

		return nil
	}
}
