package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	internalhttp "github.com/fivetwenty-io/gdsapi/internal/http"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// JSONClient implements gdsapi.JSONClient on top of the transport. It is
// the only place HTTP failures are turned into *gdsapi.Error; adapters
// return those errors unchanged.
type JSONClient struct {
	transport *internalhttp.Client
	config    *gdsapi.Config
	cache     *gdsapi.CacheManager
	policy    *gdsapi.CachingPolicy
	logger    gdsapi.Logger
	now       func() time.Time
}

// NewJSONClient snapshots config. A nil config uses gdsapi.DefaultConfig().
func NewJSONClient(config *gdsapi.Config, opts ...internalhttp.Option) *JSONClient {
	if config == nil {
		config = gdsapi.DefaultConfig()
	} else {
		config = config.Clone()
	}

	policy := config.CachingPolicy
	if policy == nil {
		policy = gdsapi.DefaultCachingPolicy()
	}

	cache := gdsapi.NewCacheManager(config.Cache, nil)

	if config.Cache != nil {
		config.ResponseInterceptors = append(config.ResponseInterceptors, gdsapi.CacheInvalidationInterceptor(cache, config.Logger))
	}

	return &JSONClient{
		transport: internalhttp.NewClientFromConfig(config, opts...),
		config:    config,
		cache:     cache,
		policy:    policy,
		logger:    config.Logger,
		now:       time.Now,
	}
}

// SetClock replaces time.Now for cache freshness decisions.
func (c *JSONClient) SetClock(now func() time.Time) {
	c.now = now
}

// CacheStats reports cache traffic.
func (c *JSONClient) CacheStats() *gdsapi.CacheStats {
	return c.cache.GetStats()
}

// GetJSON fetches rawURL, serving it from the cache while fresh.
func (c *JSONClient) GetJSON(ctx context.Context, rawURL string, opts ...gdsapi.RequestOption) (*gdsapi.Response, error) {
	raw, err := c.get(ctx, rawURL, gdsapi.ApplyRequestOptions(opts))
	if err != nil {
		return nil, err
	}

	return c.wrap(http.MethodGet, rawURL, raw)
}

// GetJSONOptional is GetJSON with 404 mapped to nil, nil.
func (c *JSONClient) GetJSONOptional(ctx context.Context, rawURL string, opts ...gdsapi.RequestOption) (*gdsapi.Response, error) {
	resp, err := c.GetJSON(ctx, rawURL, opts...)
	if gdsapi.IsNotFound(err) {
		return nil, nil
	}

	return resp, err
}

// PostJSON sends body as JSON.
func (c *JSONClient) PostJSON(ctx context.Context, rawURL string, body any, opts ...gdsapi.RequestOption) (*gdsapi.Response, error) {
	return c.send(ctx, http.MethodPost, rawURL, body, opts)
}

// PutJSON sends body as JSON.
func (c *JSONClient) PutJSON(ctx context.Context, rawURL string, body any, opts ...gdsapi.RequestOption) (*gdsapi.Response, error) {
	return c.send(ctx, http.MethodPut, rawURL, body, opts)
}

// PatchJSON sends body as JSON.
func (c *JSONClient) PatchJSON(ctx context.Context, rawURL string, body any, opts ...gdsapi.RequestOption) (*gdsapi.Response, error) {
	return c.send(ctx, http.MethodPatch, rawURL, body, opts)
}

// DeleteJSON sends a DELETE, with body when non-nil.
func (c *JSONClient) DeleteJSON(ctx context.Context, rawURL string, body any, opts ...gdsapi.RequestOption) (*gdsapi.Response, error) {
	return c.send(ctx, http.MethodDelete, rawURL, body, opts)
}

// GetList is GetJSON with pagination over the Link header.
func (c *JSONClient) GetList(ctx context.Context, rawURL string, opts ...gdsapi.RequestOption) (*gdsapi.ListResponse, error) {
	raw, err := c.get(ctx, rawURL, gdsapi.ApplyRequestOptions(opts))
	if err != nil {
		return nil, err
	}

	list := gdsapi.NewListResponse(raw, c, c.responseOptions(http.MethodGet, rawURL)...)

	_, err = list.Document()
	if err != nil {
		return nil, err
	}

	return list, nil
}

// FetchList implements gdsapi.PageFetcher.
func (c *JSONClient) FetchList(ctx context.Context, rawURL string) (*gdsapi.ListResponse, error) {
	return c.GetList(ctx, rawURL)
}

// GetRaw fetches a non-JSON body. It bypasses the cache.
func (c *JSONClient) GetRaw(ctx context.Context, rawURL string, opts ...gdsapi.RequestOption) (*gdsapi.RawResponse, error) {
	options := gdsapi.ApplyRequestOptions(opts)

	headers := map[string]string{"Accept": "*/*"}
	for key := range options.Headers {
		headers[key] = options.Headers.Get(key)
	}

	resp, err := c.transport.Do(ctx, &internalhttp.Request{
		Method:  http.MethodGet,
		URL:     rawURL,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	return resp.Raw(), nil
}

// PostMultipart uploads files and form fields as multipart/form-data.
func (c *JSONClient) PostMultipart(ctx context.Context, rawURL string, fields map[string]string, files []gdsapi.MultipartFile, opts ...gdsapi.RequestOption) (*gdsapi.Response, error) {
	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return nil, err
	}

	options := gdsapi.ApplyRequestOptions(opts)

	resp, err := c.transport.Do(ctx, &internalhttp.Request{
		Method:      http.MethodPost,
		URL:         rawURL,
		RawBody:     body,
		ContentType: contentType,
		Headers:     flattenHeaders(options.Headers),
	})
	if err != nil {
		return nil, err
	}

	return c.wrap(http.MethodPost, rawURL, resp.Raw())
}

func (c *JSONClient) send(ctx context.Context, method, rawURL string, body any, opts []gdsapi.RequestOption) (*gdsapi.Response, error) {
	options := gdsapi.ApplyRequestOptions(opts)

	resp, err := c.transport.Do(ctx, &internalhttp.Request{
		Method:  method,
		URL:     rawURL,
		Body:    body,
		Headers: flattenHeaders(options.Headers),
	})
	if err != nil {
		return nil, err
	}

	return c.wrap(method, rawURL, resp.Raw())
}

func (c *JSONClient) get(ctx context.Context, rawURL string, options gdsapi.RequestOptions) (*gdsapi.RawResponse, error) {
	key := c.cache.GetCacheKey(http.MethodGet, rawURL, nil)

	if !options.NoCache {
		if raw, ok := c.cached(ctx, key, rawURL); ok {
			return raw, nil
		}
	}

	resp, err := c.transport.Do(ctx, &internalhttp.Request{
		Method:  http.MethodGet,
		URL:     rawURL,
		Headers: flattenHeaders(options.Headers),
	})
	if err != nil {
		return nil, err
	}

	raw := resp.Raw()
	c.store(ctx, key, rawURL, raw)

	return raw, nil
}

func (c *JSONClient) cached(ctx context.Context, key, rawURL string) (*gdsapi.RawResponse, bool) {
	entry, err := c.cache.GetEntry(ctx, key)
	if err != nil || entry.Expired(c.now()) {
		return nil, false
	}

	if c.logger != nil {
		c.logger.Info("cache hit", map[string]interface{}{
			"method":     http.MethodGet,
			"url":        rawURL,
			"expires_at": entry.ExpiresAt,
		})
	}

	return &gdsapi.RawResponse{
		StatusCode: entry.StatusCode,
		Header:     entry.Header.Clone(),
		Body:       entry.Data,
	}, true
}

func (c *JSONClient) store(ctx context.Context, key, rawURL string, raw *gdsapi.RawResponse) {
	if c.config.Cache == nil {
		return
	}

	resp := gdsapi.NewResponse(raw, gdsapi.WithClock(c.now))

	if !c.policy.ShouldStore(http.MethodGet, pathOf(rawURL), resp) {
		return
	}

	expiresAt, ok := resp.ExpiresAt()
	now := c.now()

	if !ok || !expiresAt.After(now) {
		return
	}

	err := c.cache.SetEntry(ctx, key, &gdsapi.CacheEntry{
		Data:       raw.Body,
		Header:     raw.Header.Clone(),
		StatusCode: raw.StatusCode,
		ExpiresAt:  expiresAt,
		ETag:       raw.Header.Get("ETag"),
		StoredAt:   now,
	})
	if err != nil && c.logger != nil {
		c.logger.Warn("cache store failed", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
	}
}

// wrap builds the Response and surfaces a malformed body immediately.
func (c *JSONClient) wrap(method, rawURL string, raw *gdsapi.RawResponse) (*gdsapi.Response, error) {
	resp := gdsapi.NewResponse(raw, c.responseOptions(method, rawURL)...)

	_, err := resp.Document()
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *JSONClient) responseOptions(method, rawURL string) []gdsapi.ResponseOption {
	return []gdsapi.ResponseOption{
		gdsapi.WithWebURLsRelativeTo(c.config.WebURLsRelativeTo),
		gdsapi.WithClock(c.now),
		gdsapi.WithResponseLogger(c.logger),
		gdsapi.WithRequest(method, rawURL),
	}
}

func encodeMultipart(fields map[string]string, files []gdsapi.MultipartFile) ([]byte, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		err := writer.WriteField(name, value)
		if err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", name, err)
		}
	}

	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.FieldName, file.FileName))

		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", file.FieldName, err)
		}

		_, err = io.Copy(part, file.Content)
		if err != nil {
			return nil, "", fmt.Errorf("copying form file %s: %w", file.FieldName, err)
		}
	}

	err := writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	flat := make(map[string]string, len(headers))
	for key := range headers {
		flat[key] = headers.Get(key)
	}

	return flat
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	return u.Path
}
