package gdsapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNATSBucketRequired = errors.New("NATS KV bucket name is required")
	ErrNATSURLRequired    = errors.New("NATS URL or connection is required")
)

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server, e.g. nats://127.0.0.1:4222. Ignored when
	// Conn is set.
	URL string `mapstructure:"url" yaml:"url"`
	// Bucket is created if it does not exist.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	// TTL caps how long the bucket keeps any value.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// ConnectTimeout bounds connecting and bucket setup.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	// Conn reuses an existing connection; the cache will not close it.
	Conn *nats.Conn `mapstructure:"-" yaml:"-"`
}

// NATSKVCache stores cache entries in a JetStream KV bucket so several
// processes can share responses.
type NATSKVCache struct {
	conn     *nats.Conn
	ownsConn bool
	kv       jetstream.KeyValue
	now      func() time.Time
}

// NewNATSKVCache connects and binds (or creates) the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	if config.Bucket == "" {
		return nil, ErrNATSBucketRequired
	}

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = constants.ShortHTTPTimeout
	}

	conn := config.Conn
	ownsConn := false

	if conn == nil {
		if config.URL == "" {
			return nil, ErrNATSURLRequired
		}

		var err error

		conn, err = nats.Connect(config.URL, nats.Name("gdsapi-cache"), nats.Timeout(timeout))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		ownsConn = true
	}

	js, err := jetstream.New(conn)
	if err != nil {
		closeIfOwned(conn, ownsConn)

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: "gdsapi response cache",
		TTL:         config.TTL,
	})
	if err != nil {
		closeIfOwned(conn, ownsConn)

		return nil, fmt.Errorf("binding KV bucket %s: %w", config.Bucket, err)
	}

	return &NATSKVCache{
		conn:     conn,
		ownsConn: ownsConn,
		kv:       kv,
		now:      time.Now,
	}, nil
}

// Get returns a live entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kvEntry, err := c.kv.Get(ctx, NATSKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
		}

		return nil, fmt.Errorf("reading %s from NATS KV: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kvEntry.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding NATS KV entry %s: %w", key, err)
	}

	if entry.Expired(c.now()) {
		_ = c.kv.Delete(ctx, NATSKey(key))

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	_, err = c.kv.Put(ctx, NATSKey(key), data)
	if err != nil {
		return fmt.Errorf("writing %s to NATS KV: %w", key, err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, NATSKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s from NATS KV: %w", key, err)
	}

	return nil
}

// Clear removes every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("listing NATS KV keys: %w", err)
	}

	var errs []error

	for _, key := range keys {
		err := c.kv.Purge(ctx, key)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Has reports whether a live entry exists.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close releases the connection if the cache opened it.
func (c *NATSKVCache) Close() {
	closeIfOwned(c.conn, c.ownsConn)
}

// NATSKey maps an arbitrary cache key (a URL) onto the restricted NATS
// key alphabet.
func NATSKey(key string) string {
	sum := sha256.Sum256([]byte(key))

	return "gdsapi." + hex.EncodeToString(sum[:])
}

func closeIfOwned(conn *nats.Conn, owned bool) {
	if owned && conn != nil {
		conn.Close()
	}
}
