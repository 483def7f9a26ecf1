package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// PublishingAPIClient implements gdsapi.PublishingAPIClient.
type PublishingAPIClient struct {
	json     gdsapi.JSONClient
	endpoint string
	logger   gdsapi.Logger
}

// NewPublishingAPIClient creates a publishing API client rooted at endpoint.
func NewPublishingAPIClient(jsonClient gdsapi.JSONClient, endpoint string, logger gdsapi.Logger) *PublishingAPIClient {
	return &PublishingAPIClient{
		json:     jsonClient,
		endpoint: strings.TrimRight(endpoint, "/"),
		logger:   logger,
	}
}

// GetContent implements gdsapi.PublishingAPIClient.GetContent.
func (c *PublishingAPIClient) GetContent(ctx context.Context, contentID string, params url.Values) (*gdsapi.Response, error) {
	return c.json.GetJSON(ctx, withQuery(c.contentURL(contentID), params))
}

// PutContent implements gdsapi.PublishingAPIClient.PutContent.
func (c *PublishingAPIClient) PutContent(ctx context.Context, contentID string, payload any) (*gdsapi.Response, error) {
	return c.json.PutJSON(ctx, c.contentURL(contentID), payload)
}

// Publish implements gdsapi.PublishingAPIClient.Publish.
func (c *PublishingAPIClient) Publish(ctx context.Context, contentID string, options gdsapi.PublishOptions) (*gdsapi.Response, error) {
	return c.json.PostJSON(ctx, c.contentURL(contentID)+"/publish", options)
}

// PatchLinks implements gdsapi.PublishingAPIClient.PatchLinks.
func (c *PublishingAPIClient) PatchLinks(ctx context.Context, contentID string, payload any) (*gdsapi.Response, error) {
	return c.json.PatchJSON(ctx, c.endpoint+"/v2/links/"+url.PathEscape(contentID), payload)
}

// GetPagedEditions implements gdsapi.PublishingAPIClient.GetPagedEditions.
// Further pages are reached through the returned list's Link header.
func (c *PublishingAPIClient) GetPagedEditions(ctx context.Context, params url.Values) (*gdsapi.ListResponse, error) {
	return c.json.GetList(ctx, withQuery(c.endpoint+"/v2/editions", params))
}

// Discard implements gdsapi.PublishingAPIClient.Discard.
func (c *PublishingAPIClient) Discard(ctx context.Context, contentID string, options gdsapi.DiscardOptions) (*gdsapi.Response, error) {
	return c.json.PostJSON(ctx, c.contentURL(contentID)+"/discard-draft", options)
}

// DiscardDraft is the old name of Discard.
//
// Deprecated: use Discard.
func (c *PublishingAPIClient) DiscardDraft(ctx context.Context, contentID string, options gdsapi.DiscardOptions) (*gdsapi.Response, error) {
	gdsapi.WarnDeprecated(c.logger, "PublishingAPIClient.DiscardDraft", "PublishingAPIClient.Discard")

	return c.Discard(ctx, contentID, options)
}

func (c *PublishingAPIClient) contentURL(contentID string) string {
	return c.endpoint + "/v2/content/" + url.PathEscape(contentID)
}
