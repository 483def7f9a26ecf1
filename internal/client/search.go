package client

import (
	"context"
	"iter"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

const defaultSearchPageSize = 100

// SearchClient implements gdsapi.SearchClient.
type SearchClient struct {
	json     gdsapi.JSONClient
	endpoint string
}

// NewSearchClient creates a search client rooted at endpoint.
func NewSearchClient(jsonClient gdsapi.JSONClient, endpoint string) *SearchClient {
	return &SearchClient{
		json:     jsonClient,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// Search implements gdsapi.SearchClient.Search.
func (c *SearchClient) Search(ctx context.Context, params url.Values) (*gdsapi.Response, error) {
	return c.json.GetJSON(ctx, withQuery(c.endpoint+"/search.json", params))
}

// SearchEnum yields every result of a query, requesting pageSize results
// at a time until a short page comes back. A failed request is yielded as
// the final element.
func (c *SearchClient) SearchEnum(ctx context.Context, params url.Values, pageSize int) iter.Seq2[any, error] {
	if pageSize <= 0 {
		pageSize = defaultSearchPageSize
	}

	return func(yield func(any, error) bool) {
		for start := 0; ; start += pageSize {
			batch := maps.Clone(params)
			if batch == nil {
				batch = url.Values{}
			}

			batch.Set("start", strconv.Itoa(start))
			batch.Set("count", strconv.Itoa(pageSize))

			resp, err := c.Search(ctx, batch)
			if err != nil {
				yield(nil, err)

				return
			}

			results, _ := resp.Value("results").([]any)
			for _, result := range results {
				if !yield(result, nil) {
					return
				}
			}

			if len(results) < pageSize {
				return
			}
		}
	}
}
