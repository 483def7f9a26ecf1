package client

import (
	"fmt"

	internalhttp "github.com/fivetwenty-io/gdsapi/internal/http"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// Service names as used by discovery and token lookup.
const (
	ServiceContentStore  = "content-store"
	ServicePublishingAPI = "publishing-api"
	ServiceSearch        = "search-api"
	ServiceRouter        = "router-api"
	ServiceAssetManager  = "asset-manager"
	ServiceOrganisations = "whitehall-frontend"
)

// ServiceConfig is the resolved endpoint and client config of one service.
// Configs for different services usually differ only in BearerToken and
// share the same Cache.
type ServiceConfig struct {
	Endpoint string
	Config   *gdsapi.Config
}

// Services lists the configuration of every adapter. Default backs the
// bare JSON client.
type Services struct {
	Default       *gdsapi.Config
	ContentStore  ServiceConfig
	PublishingAPI ServiceConfig
	Search        ServiceConfig
	Router        ServiceConfig
	AssetManager  ServiceConfig
	Organisations ServiceConfig
}

// Client implements gdsapi.Client.
type Client struct {
	json          *JSONClient
	contentStore  *ContentStoreClient
	publishingAPI *PublishingAPIClient
	search        *SearchClient
	router        *RouterClient
	assetManager  *AssetManagerClient
	organisations *OrganisationsClient
}

// New builds every adapter. Each service gets its own JSON client so that
// credentials stay per service.
func New(services Services, opts ...internalhttp.Option) (*Client, error) {
	required := map[string]string{
		ServiceContentStore:  services.ContentStore.Endpoint,
		ServicePublishingAPI: services.PublishingAPI.Endpoint,
		ServiceSearch:        services.Search.Endpoint,
		ServiceRouter:        services.Router.Endpoint,
		ServiceAssetManager:  services.AssetManager.Endpoint,
		ServiceOrganisations: services.Organisations.Endpoint,
	}

	for name, endpoint := range required {
		if endpoint == "" {
			return nil, fmt.Errorf("%w: %s", gdsapi.ErrEndpointRequired, name)
		}
	}

	publishingJSON := NewJSONClient(services.PublishingAPI.Config, opts...)

	return &Client{
		json:          NewJSONClient(services.Default, opts...),
		contentStore:  NewContentStoreClient(NewJSONClient(services.ContentStore.Config, opts...), services.ContentStore.Endpoint),
		publishingAPI: NewPublishingAPIClient(publishingJSON, services.PublishingAPI.Endpoint, publishingJSON.logger),
		search:        NewSearchClient(NewJSONClient(services.Search.Config, opts...), services.Search.Endpoint),
		router:        NewRouterClient(NewJSONClient(services.Router.Config, opts...), services.Router.Endpoint),
		assetManager:  NewAssetManagerClient(NewJSONClient(services.AssetManager.Config, opts...), services.AssetManager.Endpoint),
		organisations: NewOrganisationsClient(NewJSONClient(services.Organisations.Config, opts...), services.Organisations.Endpoint),
	}, nil
}

// JSON implements gdsapi.Client.JSON.
func (c *Client) JSON() gdsapi.JSONClient {
	return c.json
}

// ContentStore implements gdsapi.Client.ContentStore.
func (c *Client) ContentStore() gdsapi.ContentStoreClient {
	return c.contentStore
}

// PublishingAPI implements gdsapi.Client.PublishingAPI.
func (c *Client) PublishingAPI() gdsapi.PublishingAPIClient {
	return c.publishingAPI
}

// Search implements gdsapi.Client.Search.
func (c *Client) Search() gdsapi.SearchClient {
	return c.search
}

// Router implements gdsapi.Client.Router.
func (c *Client) Router() gdsapi.RouterClient {
	return c.router
}

// AssetManager implements gdsapi.Client.AssetManager.
func (c *Client) AssetManager() gdsapi.AssetManagerClient {
	return c.assetManager
}

// Organisations implements gdsapi.Client.Organisations.
func (c *Client) Organisations() gdsapi.OrganisationsClient {
	return c.organisations
}
