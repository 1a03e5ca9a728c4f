package profile

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
)

// RemoteAPI adapts the HTTP client to the API interface.
type RemoteAPI struct {
	client *client.Client
}

// NewRemoteAPI wraps c.
func NewRemoteAPI(c *client.Client) *RemoteAPI {
	return &RemoteAPI{client: c}
}

// Overview looks up the overview by username.
func (a *RemoteAPI) Overview(ctx context.Context, identifier string) (*client.Response, error) {
	return a.client.Get(ctx, client.PathOverview, url.Values{"username": {identifier}})
}

// Category looks up one category. key is the urn, or the username for Contact.
func (a *RemoteAPI) Category(ctx context.Context, c Category, key string) (*client.Response, error) {
	path := c.Path()
	if path == "" {
		return nil, fmt.Errorf("no endpoint for %s", c)
	}
	param := "urn"
	if c.KeyedByIdentifier() {
		param = "username"
	}
	return a.client.Get(ctx, path, url.Values{param: {key}})
}
