package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

func TestContentStoreClient(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/content/vat-rates":
			cacheable(w, 300)
			writeJSON(t, w, http.StatusOK, map[string]any{"base_path": "/vat-rates"})
		case "/content/guidance/a%20b":
			writeJSON(t, w, http.StatusOK, map[string]any{"base_path": "/guidance/a b"})
		default:
			writeJSON(t, w, http.StatusNotFound, map[string]any{"error": "not found"})
		}
	})

	store := NewContentStoreClient(newTestJSONClient(t, gdsapi.NewMemoryCache(10)), server.URL+"/")
	ctx := context.Background()

	t.Run("item", func(t *testing.T) {
		t.Parallel()

		resp, err := store.ContentItem(ctx, "/vat-rates")
		require.NoError(t, err)
		assert.Equal(t, "/vat-rates", resp.Value("base_path"))
	})

	t.Run("path without leading slash is escaped", func(t *testing.T) {
		t.Parallel()

		resp, err := store.ContentItem(ctx, "guidance/a b")
		require.NoError(t, err)
		assert.Equal(t, "/guidance/a b", resp.Value("base_path"))
	})

	t.Run("missing item raises", func(t *testing.T) {
		t.Parallel()

		_, err := store.ContentItem(ctx, "/nope")
		require.Error(t, err)
		assert.True(t, gdsapi.IsNotFound(err))
	})

	t.Run("missing optional item is nil", func(t *testing.T) {
		t.Parallel()

		resp, err := store.ContentItemOptional(ctx, "/nope")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})
}

func TestContentStoreClient_Cached(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		cacheable(w, 300)
		writeJSON(t, w, http.StatusOK, map[string]any{"base_path": "/vat-rates"})
	})

	store := NewContentStoreClient(newTestJSONClient(t, gdsapi.NewMemoryCache(10)), server.URL)

	for range 2 {
		_, err := store.ContentItem(context.Background(), "/vat-rates")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, server.count(http.MethodGet, "/content/vat-rates"))
}

func TestPublishingAPIClient(t *testing.T) {
	t.Parallel()

	type captured struct {
		Method string
		URI    string
		Body   map[string]any
	}

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}

		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &body))
		}

		if r.URL.Path == "/v2/editions" && r.URL.Query().Get("page") == "" {
			w.Header().Set("Link", `</v2/editions?page=2>; rel="next"`)
		}

		writeJSON(t, w, http.StatusOK, map[string]any{
			"method":  r.Method,
			"uri":     r.URL.RequestURI(),
			"body":    body,
			"results": []any{r.URL.Query().Get("page")},
		})
	})

	logger := &recordingLogger{}
	api := NewPublishingAPIClient(newTestJSONClient(t, nil), server.URL, logger)
	ctx := context.Background()

	decode := func(t *testing.T, resp *gdsapi.Response) captured {
		t.Helper()

		var c captured
		require.NoError(t, resp.Decode(&c))

		return c
	}

	t.Run("get content with params", func(t *testing.T) {
		t.Parallel()

		resp, err := api.GetContent(ctx, "abc-123", url.Values{"locale": {"cy"}})
		require.NoError(t, err)

		c := decode(t, resp)
		assert.Equal(t, http.MethodGet, c.Method)
		assert.Equal(t, "/v2/content/abc-123?locale=cy", c.URI)
	})

	t.Run("put content", func(t *testing.T) {
		t.Parallel()

		resp, err := api.PutContent(ctx, "abc-123", map[string]any{"title": "VAT"})
		require.NoError(t, err)

		c := decode(t, resp)
		assert.Equal(t, http.MethodPut, c.Method)
		assert.Equal(t, "/v2/content/abc-123", c.URI)
		assert.Equal(t, "VAT", c.Body["title"])
	})

	t.Run("publish", func(t *testing.T) {
		t.Parallel()

		resp, err := api.Publish(ctx, "abc-123", gdsapi.PublishOptions{UpdateType: "major", PreviousVersion: 3})
		require.NoError(t, err)

		c := decode(t, resp)
		assert.Equal(t, http.MethodPost, c.Method)
		assert.Equal(t, "/v2/content/abc-123/publish", c.URI)
		assert.Equal(t, map[string]any{"update_type": "major", "previous_version": float64(3)}, c.Body)
	})

	t.Run("patch links", func(t *testing.T) {
		t.Parallel()

		resp, err := api.PatchLinks(ctx, "abc-123", map[string]any{"links": map[string]any{"organisations": []string{"o1"}}})
		require.NoError(t, err)

		c := decode(t, resp)
		assert.Equal(t, http.MethodPatch, c.Method)
		assert.Equal(t, "/v2/links/abc-123", c.URI)
	})

	t.Run("paged editions", func(t *testing.T) {
		t.Parallel()

		list, err := api.GetPagedEditions(ctx, url.Values{"fields[]": {"content_id"}})
		require.NoError(t, err)

		all, err := list.AllResults(ctx)
		require.NoError(t, err)
		assert.Equal(t, []any{"", "2"}, all)
	})

	t.Run("deprecated discard draft still discards", func(t *testing.T) {
		t.Parallel()

		resp, err := api.DiscardDraft(ctx, "abc-123", gdsapi.DiscardOptions{Locale: "en"})
		require.NoError(t, err)

		c := decode(t, resp)
		assert.Equal(t, "/v2/content/abc-123/discard-draft", c.URI)
		assert.Equal(t, map[string]any{"locale": "en"}, c.Body)
		assert.True(t, logger.has("WARN", "deprecated"))
	})
}

func TestSearchClient_SearchEnum(t *testing.T) {
	t.Parallel()

	const total = 5

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "vat", r.URL.Query().Get("q"))

		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))

		results := []any{}
		for i := start; i < start+count && i < total; i++ {
			results = append(results, map[string]any{"n": i})
		}

		writeJSON(t, w, http.StatusOK, map[string]any{"results": results, "total": total})
	})

	search := NewSearchClient(newTestJSONClient(t, nil), server.URL)
	params := url.Values{"q": {"vat"}}

	var got []string

	for item, err := range search.SearchEnum(context.Background(), params, 2) {
		require.NoError(t, err)
		got = append(got, item.(map[string]any)["n"].(json.Number).String())
	}

	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, got)
	assert.Equal(t, 3, server.total())
	assert.Empty(t, params.Get("start"))
}

func TestSearchClient_SearchEnumError(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "0" {
			writeJSON(t, w, http.StatusOK, map[string]any{"results": []any{1, 2}})

			return
		}

		w.WriteHeader(http.StatusBadGateway)
	})

	search := NewSearchClient(newTestJSONClient(t, nil), server.URL)

	var (
		items   int
		lastErr error
	)

	for _, err := range search.SearchEnum(context.Background(), nil, 2) {
		if err != nil {
			lastErr = err

			continue
		}

		items++
	}

	assert.Equal(t, 2, items)
	require.Error(t, lastErr)
	assert.True(t, errors.Is(lastErr, gdsapi.ErrBadGateway))
}

func TestRouterClient(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Query().Get("incoming_path") == "/missing":
			writeJSON(t, w, http.StatusNotFound, map[string]any{})
		case r.Method == http.MethodPut:
			var payload map[string]gdsapi.Route

			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			writeJSON(t, w, http.StatusCreated, payload["route"])
		default:
			writeJSON(t, w, http.StatusOK, map[string]any{"uri": r.URL.RequestURI()})
		}
	})

	router := NewRouterClient(newTestJSONClient(t, nil), server.URL)
	ctx := context.Background()

	t.Run("unknown route is nil", func(t *testing.T) {
		t.Parallel()

		resp, err := router.GetRoute(ctx, "/missing")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("add route", func(t *testing.T) {
		t.Parallel()

		resp, err := router.AddRoute(ctx, gdsapi.Route{
			IncomingPath: "/vat-rates",
			RouteType:    "exact",
			Handler:      "backend",
			BackendID:    "frontend",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.Code())
		assert.Equal(t, "frontend", resp.Value("backend_id"))
	})

	t.Run("invalid route never sent", func(t *testing.T) {
		t.Parallel()

		unused := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
		router := NewRouterClient(newTestJSONClient(t, nil), unused.URL)

		tests := []struct {
			name  string
			route gdsapi.Route
			field string
		}{
			{"relative path", gdsapi.Route{IncomingPath: "vat", RouteType: "exact", Handler: "gone"}, "incoming_path"},
			{"bad type", gdsapi.Route{IncomingPath: "/vat", RouteType: "fuzzy", Handler: "gone"}, "route_type"},
			{"backend without id", gdsapi.Route{IncomingPath: "/vat", RouteType: "exact", Handler: "backend"}, "backend_id"},
			{"redirect without target", gdsapi.Route{IncomingPath: "/vat", RouteType: "prefix", Handler: "redirect"}, "redirect_to"},
		}

		for _, tt := range tests {
			_, err := router.AddRoute(ctx, tt.route)
			require.Error(t, err, tt.name)
			assert.True(t, errors.Is(err, ErrValidation), tt.name)
			assert.Contains(t, err.Error(), tt.field, tt.name)
		}

		assert.Equal(t, 0, unused.total())
	})

	t.Run("hard delete", func(t *testing.T) {
		t.Parallel()

		resp, err := router.DeleteRoute(ctx, "/vat-rates", true)
		require.NoError(t, err)
		assert.Equal(t, "/routes?hard_delete=true&incoming_path=%2Fvat-rates", resp.Value("uri"))
	})
}

func TestAssetManagerClient(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/assets":
			assert.NoError(t, r.ParseMultipartForm(1<<20))

			file, header, err := r.FormFile("asset[file]")
			if !assert.NoError(t, err) {
				return
			}

			defer file.Close()

			content, _ := io.ReadAll(file)
			writeJSON(t, w, http.StatusCreated, map[string]any{
				"name":     header.Filename,
				"content":  string(content),
				"draft":    r.FormValue("asset[draft]"),
				"asset_id": "a1",
			})
		case r.URL.Path == "/assets/unknown":
			writeJSON(t, w, http.StatusNotFound, map[string]any{})
		default:
			writeJSON(t, w, http.StatusOK, map[string]any{"method": r.Method, "path": r.URL.Path})
		}
	})

	assets := NewAssetManagerClient(newTestJSONClient(t, nil), server.URL)
	ctx := context.Background()

	resp, err := assets.CreateAsset(ctx,
		gdsapi.MultipartFile{FileName: "chart.png", ContentType: "image/png", Content: strings.NewReader("PNG")},
		map[string]string{"draft": "true"},
	)
	require.NoError(t, err)
	assert.Equal(t, "chart.png", resp.Value("name"))
	assert.Equal(t, "PNG", resp.Value("content"))
	assert.Equal(t, "true", resp.Value("draft"))

	resp, err = assets.Asset(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, resp)

	resp, err = assets.DeleteAsset(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, resp.Value("method"))
	assert.Equal(t, "/assets/a1", resp.Value("path"))
}

func TestOrganisationsClient(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.RequestURI() {
		case "/api/organisations":
			w.Header().Set("Link", `<`+"/api/organisations?page=2"+`>; rel="next"`)
			writeJSON(t, w, http.StatusOK, map[string]any{"results": []any{"hmrc", "dfe"}})
		case "/api/organisations?page=2":
			w.Header().Set("Link", `</api/organisations>; rel="previous"`)
			writeJSON(t, w, http.StatusOK, map[string]any{"results": []any{"moj"}})
		case "/api/organisations/hm-revenue-customs":
			writeJSON(t, w, http.StatusOK, map[string]any{"title": "HMRC"})
		}
	})

	orgs := NewOrganisationsClient(newTestJSONClient(t, nil), server.URL)
	ctx := context.Background()

	list, err := orgs.Organisations(ctx)
	require.NoError(t, err)

	var slugs []any

	for item, err := range list.WithSubsequentPages(ctx) {
		require.NoError(t, err)

		slugs = append(slugs, item)
	}

	assert.Equal(t, []any{"hmrc", "dfe", "moj"}, slugs)

	second, err := list.NextPage(ctx)
	require.NoError(t, err)
	assert.True(t, second.HasPreviousPage())

	org, err := orgs.Organisation(ctx, "hm-revenue-customs")
	require.NoError(t, err)
	assert.Equal(t, "HMRC", org.Value("title"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"authorization": r.Header.Get("Authorization")})
	})

	service := func(token string) ServiceConfig {
		return ServiceConfig{Endpoint: server.URL, Config: &gdsapi.Config{BearerToken: token}}
	}

	t.Run("per-service credentials", func(t *testing.T) {
		t.Parallel()

		c, err := New(Services{
			ContentStore:  service(""),
			PublishingAPI: service("publishing-token"),
			Search:        service(""),
			Router:        service("router-token"),
			AssetManager:  service(""),
			Organisations: service(""),
		})
		require.NoError(t, err)

		resp, err := c.PublishingAPI().GetContent(context.Background(), "x", nil)
		require.NoError(t, err)
		assert.Equal(t, "Bearer publishing-token", resp.Value("authorization"))

		resp, err = c.ContentStore().ContentItem(context.Background(), "/x")
		require.NoError(t, err)
		assert.Empty(t, resp.Value("authorization"))

		resp, err = c.JSON().GetJSON(context.Background(), server.URL+"/anything")
		require.NoError(t, err)
		assert.Empty(t, resp.Value("authorization"))

		assert.NotNil(t, c.Search())
		assert.NotNil(t, c.Router())
		assert.NotNil(t, c.AssetManager())
		assert.NotNil(t, c.Organisations())
	})

	t.Run("endpoint required", func(t *testing.T) {
		t.Parallel()

		_, err := New(Services{ContentStore: service("")})
		require.Error(t, err)
		assert.True(t, errors.Is(err, gdsapi.ErrEndpointRequired))
	})
}

var _ gdsapi.Client = (*Client)(nil)
