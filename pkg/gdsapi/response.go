package gdsapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const webURLKey = "web_url"

// ErrTrailingData is wrapped by malformed body errors when a body holds
// more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// RawResponse is what the transport hands over: status, headers and the
// unparsed body. Response never mutates it.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ResponseOption configures a Response.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	webURLsRelativeTo string
	now               func() time.Time
	logger            Logger
	method            string
	requestURL        string
}

// WithWebURLsRelativeTo rewrites web_url values under origin to paths.
func WithWebURLsRelativeTo(origin string) ResponseOption {
	return func(o *responseOptions) {
		o.webURLsRelativeTo = origin
	}
}

// WithClock replaces time.Now for expiry calculations.
func WithClock(now func() time.Time) ResponseOption {
	return func(o *responseOptions) {
		o.now = now
	}
}

// WithResponseLogger sets the logger used for deprecation notices.
func WithResponseLogger(logger Logger) ResponseOption {
	return func(o *responseOptions) {
		o.logger = logger
	}
}

// WithRequest records the request that produced the response; used in
// error messages.
func WithRequest(method, rawURL string) ResponseOption {
	return func(o *responseOptions) {
		o.method = method
		o.requestURL = rawURL
	}
}

// Response wraps a successful HTTP response. The JSON body is parsed at
// most once, on first access.
type Response struct {
	raw        *RawResponse
	header     http.Header
	relativeTo *url.URL
	opts       responseOptions

	once     sync.Once
	document any
	rewrite  []byte
	parseErr error
}

// NewResponse wraps raw.
func NewResponse(raw *RawResponse, opts ...ResponseOption) *Response {
	options := responseOptions{now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}

	if raw == nil {
		raw = &RawResponse{}
	}

	r := &Response{raw: raw, header: raw.Header, opts: options}
	if r.header == nil {
		r.header = make(http.Header)
	}

	if options.webURLsRelativeTo != "" {
		if u, err := url.Parse(options.webURLsRelativeTo); err == nil && u.Host != "" {
			r.relativeTo = u
		}
	}

	return r
}

// RawBody returns the body exactly as received.
func (r *Response) RawBody() []byte {
	return r.raw.Body
}

// Code returns the HTTP status.
func (r *Response) Code() int {
	return r.raw.StatusCode
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.header
}

// Raw returns the wrapped transport response.
func (r *Response) Raw() *RawResponse {
	return r.raw
}

// Document returns the parsed body with web_url rewriting applied. An
// empty body yields nil.
func (r *Response) Document() (any, error) {
	r.parse()

	return r.document, r.parseErr
}

// Map returns the body as a JSON object. Non-object bodies yield nil.
func (r *Response) Map() (map[string]any, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}

	m, _ := doc.(map[string]any)

	return m, nil
}

// Value returns a top-level key, or nil when missing or unparseable.
func (r *Response) Value(key string) any {
	m, err := r.Map()
	if err != nil || m == nil {
		return nil
	}

	return m[key]
}

// Fetch is the legacy indexer.
//
// Deprecated: use Value or Get.
func (r *Response) Fetch(key string) any {
	return Deprecated(r.opts.logger, "Response.Fetch", "Response.Value", r.Value)(key)
}

// Get walks path segments (object keys or array indexes) through the
// rewritten document. A missing segment gives a result whose Exists is
// false.
func (r *Response) Get(path ...string) gjson.Result {
	r.parse()

	if r.parseErr != nil || len(r.rewrite) == 0 {
		return gjson.Result{}
	}

	if len(path) == 0 {
		return gjson.ParseBytes(r.rewrite)
	}

	escaped := make([]string, len(path))
	for i, segment := range path {
		escaped[i] = escapeGJSONSegment(segment)
	}

	return gjson.GetBytes(r.rewrite, strings.Join(escaped, "."))
}

// JSON returns the rewritten document re-encoded as JSON.
func (r *Response) JSON() ([]byte, error) {
	r.parse()

	return r.rewrite, r.parseErr
}

// Decode unmarshals the rewritten document into v.
func (r *Response) Decode(v any) error {
	r.parse()

	if r.parseErr != nil {
		return r.parseErr
	}

	if len(r.rewrite) == 0 {
		return nil
	}

	err := json.Unmarshal(r.rewrite, v)
	if err != nil {
		return NewMalformedBodyError(r.raw.StatusCode, r.opts.method, r.opts.requestURL, r.raw.Body, err)
	}

	return nil
}

// CacheControl parses the Cache-Control header.
func (r *Response) CacheControl() CacheControl {
	return ParseCacheControl(strings.Join(r.header.Values("Cache-Control"), ","))
}

// ExpiresAt is Date + max-age when both are present, otherwise the Expires
// header.
func (r *Response) ExpiresAt() (time.Time, bool) {
	date, hasDate := r.headerTime("Date")

	if maxAge, ok := r.CacheControl().MaxAge(); ok && hasDate {
		return date.Add(time.Duration(maxAge) * time.Second), true
	}

	return r.headerTime("Expires")
}

// ExpiresIn is the remaining freshness lifetime. It requires a Date header.
func (r *Response) ExpiresIn() (time.Duration, bool) {
	date, ok := r.headerTime("Date")
	if !ok {
		return 0, false
	}

	var maxAge time.Duration

	if seconds, ok := r.CacheControl().MaxAge(); ok {
		maxAge = time.Duration(seconds) * time.Second
	} else if expires, ok := r.headerTime("Expires"); ok {
		maxAge = expires.Sub(date)
	} else {
		return 0, false
	}

	age := r.opts.now().Sub(date)

	return (maxAge - age).Round(time.Second), true
}

func (r *Response) headerTime(name string) (time.Time, bool) {
	value := r.header.Get(name)
	if value == "" {
		return time.Time{}, false
	}

	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func (r *Response) parse() {
	r.once.Do(func() {
		body := bytes.TrimSpace(r.raw.Body)
		if len(body) == 0 {
			return
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()

		var doc any

		err := decoder.Decode(&doc)
		if err == nil {
			err = expectEOF(decoder)
		}

		if err != nil {
			r.parseErr = NewMalformedBodyError(r.raw.StatusCode, r.opts.method, r.opts.requestURL, r.raw.Body, err)

			return
		}

		if r.relativeTo == nil {
			r.document = doc
			r.rewrite = body

			return
		}

		r.document = rewriteWebURLs(doc, r.relativeTo)

		rewritten, err := json.Marshal(r.document)
		if err != nil {
			r.parseErr = NewMalformedBodyError(r.raw.StatusCode, r.opts.method, r.opts.requestURL, r.raw.Body, err)

			return
		}

		r.rewrite = rewritten
	})
}

// rewriteWebURLs returns a copy of value with same-origin web_url strings
// reduced to path, query and fragment.
func rewriteWebURLs(value any, origin *url.URL) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, item := range v {
			if s, ok := item.(string); ok && key == webURLKey {
				out[key] = relativeWebURL(s, origin)

				continue
			}

			out[key] = rewriteWebURLs(item, origin)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = rewriteWebURLs(item, origin)
		}

		return out
	default:
		return value
	}
}

func relativeWebURL(raw string, origin *url.URL) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if !strings.EqualFold(u.Scheme, origin.Scheme) || !strings.EqualFold(u.Host, origin.Host) {
		return raw
	}

	rel := u.EscapedPath()
	if u.RawQuery != "" {
		rel += "?" + u.RawQuery
	}

	if u.Fragment != "" {
		rel += "#" + u.EscapedFragment()
	}

	return rel
}

func escapeGJSONSegment(segment string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		".", `\.`,
		"*", `\*`,
		"?", `\?`,
		"|", `\|`,
		"#", `\#`,
		"@", `\@`,
	)

	return replacer.Replace(segment)
}

// expectEOF rejects anything after the first JSON value.
func expectEOF(decoder *json.Decoder) error {
	var trailing any

	err := decoder.Decode(&trailing)
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrTrailingData, err)
	}

	return ErrTrailingData
}
