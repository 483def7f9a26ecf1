package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// RouterClient implements gdsapi.RouterClient.
type RouterClient struct {
	json     gdsapi.JSONClient
	endpoint string
}

// NewRouterClient creates a router client rooted at endpoint.
func NewRouterClient(jsonClient gdsapi.JSONClient, endpoint string) *RouterClient {
	return &RouterClient{
		json:     jsonClient,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// GetRoute implements gdsapi.RouterClient.GetRoute. An unknown path
// returns nil, nil.
func (c *RouterClient) GetRoute(ctx context.Context, path string) (*gdsapi.Response, error) {
	return c.json.GetJSONOptional(ctx, c.routesURL(url.Values{"incoming_path": {path}}))
}

// AddRoute implements gdsapi.RouterClient.AddRoute.
func (c *RouterClient) AddRoute(ctx context.Context, route gdsapi.Route) (*gdsapi.Response, error) {
	err := Validate(route)
	if err != nil {
		return nil, err
	}

	return c.json.PutJSON(ctx, c.routesURL(nil), map[string]any{"route": route})
}

// DeleteRoute implements gdsapi.RouterClient.DeleteRoute.
func (c *RouterClient) DeleteRoute(ctx context.Context, path string, hardDelete bool) (*gdsapi.Response, error) {
	params := url.Values{"incoming_path": {path}}
	if hardDelete {
		params.Set("hard_delete", "true")
	}

	return c.json.DeleteJSON(ctx, c.routesURL(params), nil)
}

func (c *RouterClient) routesURL(params url.Values) string {
	return withQuery(c.endpoint+"/routes", params)
}
