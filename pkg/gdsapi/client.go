package gdsapi

import (
	"context"
	"io"
	"iter"
	"net/url"
)

// MultipartFile is one file part of a multipart upload.
type MultipartFile struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     io.Reader
}

// JSONClient talks JSON over HTTP to any GOV.UK API. Every method takes an
// absolute URL.
type JSONClient interface {
	PageFetcher

	GetJSON(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error)
	// GetJSONOptional returns nil, nil when the server answers 404.
	GetJSONOptional(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error)
	PostJSON(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Response, error)
	PutJSON(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Response, error)
	PatchJSON(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Response, error)
	DeleteJSON(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Response, error)
	GetList(ctx context.Context, rawURL string, opts ...RequestOption) (*ListResponse, error)
	GetRaw(ctx context.Context, rawURL string, opts ...RequestOption) (*RawResponse, error)
	PostMultipart(ctx context.Context, rawURL string, fields map[string]string, files []MultipartFile, opts ...RequestOption) (*Response, error)
}

// ContentStoreClient reads published content.
type ContentStoreClient interface {
	ContentItem(ctx context.Context, basePath string) (*Response, error)
	ContentItemOptional(ctx context.Context, basePath string) (*Response, error)
}

// PublishOptions are the optional fields of a publish request.
type PublishOptions struct {
	UpdateType      string `json:"update_type,omitempty"`
	Locale          string `json:"locale,omitempty"`
	PreviousVersion int    `json:"previous_version,omitempty"`
}

// DiscardOptions are the optional fields of a discard-draft request.
type DiscardOptions struct {
	Locale          string `json:"locale,omitempty"`
	PreviousVersion int    `json:"previous_version,omitempty"`
}

// PublishingAPIClient manages drafts, editions and links.
type PublishingAPIClient interface {
	GetContent(ctx context.Context, contentID string, params url.Values) (*Response, error)
	PutContent(ctx context.Context, contentID string, payload any) (*Response, error)
	Publish(ctx context.Context, contentID string, options PublishOptions) (*Response, error)
	PatchLinks(ctx context.Context, contentID string, payload any) (*Response, error)
	GetPagedEditions(ctx context.Context, params url.Values) (*ListResponse, error)
	Discard(ctx context.Context, contentID string, options DiscardOptions) (*Response, error)
}

// SearchClient queries site search.
type SearchClient interface {
	Search(ctx context.Context, params url.Values) (*Response, error)
	SearchEnum(ctx context.Context, params url.Values, pageSize int) iter.Seq2[any, error]
}

// Route is a router entry.
type Route struct {
	IncomingPath string `json:"incoming_path"        validate:"required,startswith=/"`
	RouteType    string `json:"route_type"           validate:"required,oneof=exact prefix"`
	Handler      string `json:"handler"              validate:"required,oneof=backend redirect gone"`
	BackendID    string `json:"backend_id,omitempty" validate:"required_if=Handler backend"`
	RedirectTo   string `json:"redirect_to,omitempty" validate:"required_if=Handler redirect"`
}

// RouterClient manages routes.
type RouterClient interface {
	GetRoute(ctx context.Context, path string) (*Response, error)
	AddRoute(ctx context.Context, route Route) (*Response, error)
	DeleteRoute(ctx context.Context, path string, hardDelete bool) (*Response, error)
}

// AssetManagerClient uploads and reads assets.
type AssetManagerClient interface {
	CreateAsset(ctx context.Context, file MultipartFile, fields map[string]string) (*Response, error)
	Asset(ctx context.Context, id string) (*Response, error)
	DeleteAsset(ctx context.Context, id string) (*Response, error)
}

// OrganisationsClient lists government organisations.
type OrganisationsClient interface {
	Organisations(ctx context.Context) (*ListResponse, error)
	Organisation(ctx context.Context, slug string) (*Response, error)
}

// Client gives access to every service adapter.
type Client interface {
	JSON() JSONClient
	ContentStore() ContentStoreClient
	PublishingAPI() PublishingAPIClient
	Search() SearchClient
	Router() RouterClient
	AssetManager() AssetManagerClient
	Organisations() OrganisationsClient
}
