package gdsapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
)

// CacheBackend names where responses are kept.
type CacheBackend string

const (
	// CacheBackendMemory keeps responses in the process.
	CacheBackendMemory CacheBackend = "memory"

	// CacheBackendNATS shares responses through a JetStream KV bucket.
	CacheBackendNATS CacheBackend = "nats"

	// CacheBackendLayered puts a memory cache in front of NATS.
	CacheBackendLayered CacheBackend = "layered"

	// CacheBackendNone turns caching off.
	CacheBackendNone CacheBackend = "none"
)

var (
	ErrNATSConfigRequired      = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheBackend = errors.New("unsupported cache backend")
)

// CacheConfig selects the response cache. It decodes from the "cache"
// section of a config file:
//
//	cache:
//	  backend: layered
//	  max_size: 500
//	  cleanup_interval: 1m
//	  nats:
//	    url: nats://127.0.0.1:4222
//	    bucket: gdsapi-responses
type CacheConfig struct {
	Backend CacheBackend `mapstructure:"backend" yaml:"backend"`

	// MaxSize bounds the memory tier. Zero means DefaultCacheSize.
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`

	// CleanupInterval sweeps expired entries out of the memory tier.
	// Zero leaves them until they are read or evicted.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`

	NATS *NATSKVConfig `mapstructure:"nats" yaml:"nats"`
}

// DefaultCacheConfig is a memory cache swept once a minute.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Backend:         CacheBackendMemory,
		MaxSize:         constants.DefaultCacheSize,
		CleanupInterval: constants.DefaultCacheCleanupInterval,
	}
}

// NewCacheFromConfig opens the configured cache. The memory sweeper and
// any NATS connection the cache opened live until ctx is done.
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Backend {
	case CacheBackendMemory, "":
		return config.openMemory(ctx), nil

	case CacheBackendNATS:
		return config.openNATS(ctx)

	case CacheBackendLayered:
		shared, err := config.openNATS(ctx)
		if err != nil {
			return nil, err
		}

		return NewCacheChain(config.openMemory(ctx), shared), nil

	case CacheBackendNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheBackend, config.Backend)
	}
}

func (c *CacheConfig) openMemory(ctx context.Context) *MemoryCache {
	size := c.MaxSize
	if size <= 0 {
		size = constants.DefaultCacheSize
	}

	cache := NewMemoryCache(size)

	if c.CleanupInterval > 0 {
		go cache.RunCleanup(ctx, c.CleanupInterval)
	}

	return cache
}

func (c *CacheConfig) openNATS(ctx context.Context) (*NATSKVCache, error) {
	if c.NATS == nil {
		return nil, ErrNATSConfigRequired
	}

	cache, err := NewNATSKVCache(c.NATS)
	if err != nil {
		return nil, err
	}

	context.AfterFunc(ctx, cache.Close)

	return cache, nil
}
