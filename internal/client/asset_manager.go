package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

const assetFileField = "asset[file]"

// AssetManagerClient implements gdsapi.AssetManagerClient.
type AssetManagerClient struct {
	json     gdsapi.JSONClient
	endpoint string
}

// NewAssetManagerClient creates an asset manager client rooted at endpoint.
func NewAssetManagerClient(jsonClient gdsapi.JSONClient, endpoint string) *AssetManagerClient {
	return &AssetManagerClient{
		json:     jsonClient,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// CreateAsset uploads file. Extra fields are sent as asset[name].
func (c *AssetManagerClient) CreateAsset(ctx context.Context, file gdsapi.MultipartFile, fields map[string]string) (*gdsapi.Response, error) {
	file.FieldName = assetFileField

	form := make(map[string]string, len(fields))
	for name, value := range fields {
		form["asset["+name+"]"] = value
	}

	return c.json.PostMultipart(ctx, c.endpoint+"/assets", form, []gdsapi.MultipartFile{file})
}

// Asset implements gdsapi.AssetManagerClient.Asset. An unknown id returns
// nil, nil.
func (c *AssetManagerClient) Asset(ctx context.Context, id string) (*gdsapi.Response, error) {
	return c.json.GetJSONOptional(ctx, c.assetURL(id))
}

// DeleteAsset implements gdsapi.AssetManagerClient.DeleteAsset.
func (c *AssetManagerClient) DeleteAsset(ctx context.Context, id string) (*gdsapi.Response, error) {
	return c.json.DeleteJSON(ctx, c.assetURL(id), nil)
}

func (c *AssetManagerClient) assetURL(id string) string {
	return c.endpoint + "/assets/" + url.PathEscape(id)
}
