package client

import (
	"context"
	"strings"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// ContentStoreClient implements gdsapi.ContentStoreClient.
type ContentStoreClient struct {
	json     gdsapi.JSONClient
	endpoint string
}

// NewContentStoreClient creates a content store client rooted at endpoint.
func NewContentStoreClient(jsonClient gdsapi.JSONClient, endpoint string) *ContentStoreClient {
	return &ContentStoreClient{
		json:     jsonClient,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// ContentItem implements gdsapi.ContentStoreClient.ContentItem. A missing
// item is an HTTPNotFound error.
func (c *ContentStoreClient) ContentItem(ctx context.Context, basePath string) (*gdsapi.Response, error) {
	return c.json.GetJSON(ctx, c.contentURL(basePath))
}

// ContentItemOptional implements gdsapi.ContentStoreClient.ContentItemOptional.
func (c *ContentStoreClient) ContentItemOptional(ctx context.Context, basePath string) (*gdsapi.Response, error) {
	return c.json.GetJSONOptional(ctx, c.contentURL(basePath))
}

func (c *ContentStoreClient) contentURL(basePath string) string {
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	return c.endpoint + "/content" + escapePath(basePath)
}
