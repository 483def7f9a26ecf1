package gdsapi_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

func rawJSON(body string, header http.Header) *gdsapi.RawResponse {
	if header == nil {
		header = make(http.Header)
	}

	return &gdsapi.RawResponse{StatusCode: http.StatusOK, Header: header, Body: []byte(body)}
}

func TestResponse_Accessors(t *testing.T) {
	t.Parallel()

	header := http.Header{"X-Test": {"yes"}}
	body := `{"title":"VAT","details":{"parts":[{"slug":"rates"}]}}`
	resp := gdsapi.NewResponse(rawJSON(body, header))

	assert.Equal(t, http.StatusOK, resp.Code())
	assert.Equal(t, "yes", resp.Header().Get("X-Test"))
	assert.Equal(t, body, string(resp.RawBody()))
	assert.Equal(t, "VAT", resp.Value("title"))
	assert.Nil(t, resp.Value("missing"))
	assert.Equal(t, "rates", resp.Get("details", "parts", "0", "slug").String())
	assert.False(t, resp.Get("details", "missing", "deeper").Exists())

	var decoded struct {
		Title string `json:"title"`
	}

	require.NoError(t, resp.Decode(&decoded))
	assert.Equal(t, "VAT", decoded.Title)
}

func TestResponse_WebURLRewriting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		webURL string
		want   string
	}{
		{name: "same origin", webURL: "https://www.gov.uk/test", want: "/test"},
		{name: "other origin", webURL: "http://www.example.com/example", want: "http://www.example.com/example"},
		{name: "query", webURL: "https://www.gov.uk/thing?does=stuff", want: "/thing?does=stuff"},
		{name: "fragment", webURL: "https://www.gov.uk/thing#part-2", want: "/thing#part-2"},
		{name: "other scheme", webURL: "http://www.gov.uk/test", want: "http://www.gov.uk/test"},
		{name: "relative already", webURL: "/test", want: "/test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := `{"web_url":"` + tt.webURL + `","results":[{"web_url":"` + tt.webURL + `"}]}`
			resp := gdsapi.NewResponse(rawJSON(body, nil), gdsapi.WithWebURLsRelativeTo("https://www.gov.uk"))

			assert.Equal(t, tt.want, resp.Value("web_url"))
			assert.Equal(t, tt.want, resp.Get("results", "0", "web_url").String())
		})
	}

	t.Run("raw body untouched", func(t *testing.T) {
		t.Parallel()

		body := `{"web_url":"https://www.gov.uk/test"}`
		resp := gdsapi.NewResponse(rawJSON(body, nil), gdsapi.WithWebURLsRelativeTo("https://www.gov.uk"))

		assert.Equal(t, "/test", resp.Value("web_url"))
		assert.Equal(t, body, string(resp.RawBody()))
	})

	t.Run("no origin", func(t *testing.T) {
		t.Parallel()

		resp := gdsapi.NewResponse(rawJSON(`{"web_url":"https://www.gov.uk/test"}`, nil))
		assert.Equal(t, "https://www.gov.uk/test", resp.Value("web_url"))
	})
}

func TestResponse_MalformedBody(t *testing.T) {
	t.Parallel()

	resp := gdsapi.NewResponse(rawJSON(`{not json`, nil), gdsapi.WithRequest(http.MethodGet, "https://example.com/x"))

	_, err := resp.Document()
	require.Error(t, err)
	assert.True(t, errors.Is(err, gdsapi.ErrMalformedBody))
	assert.Nil(t, resp.Value("anything"))

	for _, body := range []string{`{"title":"x"} <html>oops</html>`, `{"a":1}{"b":2}`, `[1] 2`} {
		trailing := gdsapi.NewResponse(rawJSON(body, nil))

		_, err = trailing.Document()
		require.Error(t, err, body)
		assert.True(t, errors.Is(err, gdsapi.ErrMalformedBody), body)
		assert.True(t, errors.Is(err, gdsapi.ErrTrailingData), body)
		assert.Nil(t, trailing.Value("title"))
	}

	padded := gdsapi.NewResponse(rawJSON("  {\"title\":\"x\"}\n\n", nil))
	assert.Equal(t, "x", padded.Value("title"))

	empty := gdsapi.NewResponse(rawJSON("", nil))
	doc, err := empty.Document()
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestResponse_NilHeaderLeavesRawUntouched(t *testing.T) {
	t.Parallel()

	raw := &gdsapi.RawResponse{StatusCode: http.StatusOK, Body: []byte(`{}`)}
	resp := gdsapi.NewResponse(raw)

	assert.Nil(t, raw.Header)
	assert.NotNil(t, resp.Header())
	assert.Empty(t, resp.Header().Get("Date"))

	_, ok := resp.ExpiresAt()
	assert.False(t, ok)
	assert.Nil(t, raw.Header)
}

func TestResponse_Expiry(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return date.Add(100 * time.Second) }

	t.Run("max-age and date", func(t *testing.T) {
		t.Parallel()

		header := http.Header{
			"Date":          {date.Format(http.TimeFormat)},
			"Cache-Control": {"public, max-age=900"},
			"Expires":       {date.Add(time.Hour).Format(http.TimeFormat)},
		}
		resp := gdsapi.NewResponse(rawJSON(`{}`, header), gdsapi.WithClock(clock))

		expiresAt, ok := resp.ExpiresAt()
		require.True(t, ok)
		assert.Equal(t, date.Add(900*time.Second), expiresAt)

		expiresIn, ok := resp.ExpiresIn()
		require.True(t, ok)
		assert.Equal(t, 800*time.Second, expiresIn)
	})

	t.Run("expires only", func(t *testing.T) {
		t.Parallel()

		header := http.Header{
			"Date":    {date.Format(http.TimeFormat)},
			"Expires": {date.Add(time.Hour).Format(http.TimeFormat)},
		}
		resp := gdsapi.NewResponse(rawJSON(`{}`, header), gdsapi.WithClock(clock))

		expiresAt, ok := resp.ExpiresAt()
		require.True(t, ok)
		assert.Equal(t, date.Add(time.Hour), expiresAt)

		expiresIn, ok := resp.ExpiresIn()
		require.True(t, ok)
		assert.Equal(t, time.Hour-100*time.Second, expiresIn)
	})

	t.Run("max-age without date", func(t *testing.T) {
		t.Parallel()

		header := http.Header{"Cache-Control": {"max-age=900"}}
		resp := gdsapi.NewResponse(rawJSON(`{}`, header))

		_, ok := resp.ExpiresAt()
		assert.False(t, ok)

		_, ok = resp.ExpiresIn()
		assert.False(t, ok)
	})

	t.Run("expires without date", func(t *testing.T) {
		t.Parallel()

		expires := date.Add(time.Hour)
		header := http.Header{"Expires": {expires.Format(http.TimeFormat)}}
		resp := gdsapi.NewResponse(rawJSON(`{}`, header))

		expiresAt, ok := resp.ExpiresAt()
		require.True(t, ok)
		assert.Equal(t, expires, expiresAt)

		_, ok = resp.ExpiresIn()
		assert.False(t, ok)
	})

	t.Run("nothing", func(t *testing.T) {
		t.Parallel()

		resp := gdsapi.NewResponse(rawJSON(`{}`, nil))

		_, ok := resp.ExpiresAt()
		assert.False(t, ok)

		_, ok = resp.ExpiresIn()
		assert.False(t, ok)
	})
}

func TestResponse_FetchIsDeprecated(t *testing.T) {
	logger := &testLogger{}

	gdsapi.ResetDeprecationNotices()
	t.Cleanup(gdsapi.ResetDeprecationNotices)

	resp := gdsapi.NewResponse(rawJSON(`{"title":"VAT"}`, nil), gdsapi.WithResponseLogger(logger))

	assert.Equal(t, "VAT", resp.Fetch("title"))
	assert.Equal(t, "VAT", resp.Fetch("title"))
	assert.Equal(t, 1, logger.count("WARN"))
}
