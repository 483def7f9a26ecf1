package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// OrganisationsClient implements gdsapi.OrganisationsClient.
type OrganisationsClient struct {
	json     gdsapi.JSONClient
	endpoint string
}

// NewOrganisationsClient creates an organisations client rooted at endpoint.
func NewOrganisationsClient(jsonClient gdsapi.JSONClient, endpoint string) *OrganisationsClient {
	return &OrganisationsClient{
		json:     jsonClient,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// Organisations returns the first page; walk the rest with
// WithSubsequentPages.
func (c *OrganisationsClient) Organisations(ctx context.Context) (*gdsapi.ListResponse, error) {
	return c.json.GetList(ctx, c.endpoint+"/api/organisations")
}

// Organisation implements gdsapi.OrganisationsClient.Organisation.
func (c *OrganisationsClient) Organisation(ctx context.Context, slug string) (*gdsapi.Response, error) {
	return c.json.GetJSON(ctx, c.endpoint+"/api/organisations/"+url.PathEscape(slug))
}
