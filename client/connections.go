package client

import (
	"context"
	"net/url"
)

// ConnectionService manages tenant credentials.
type ConnectionService struct {
	c *Client
}

// Create registers a new connection. The response carries the plaintext API
// key exactly once.
func (s *ConnectionService) Create(ctx context.Context, req *CreateConnectionRequest) (*CreatedConnection, error) {
	var created CreatedConnection
	if err := s.c.post(ctx, "/api/v1/connections", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// connectionListResponse wraps the connection list response.
type connectionListResponse struct {
	Connections []Connection `json:"connections"`
	Count       int          `json:"count"`
}

// List returns the connections belonging to an owner.
func (s *ConnectionService) List(ctx context.Context, owner string) ([]Connection, error) {
	params := url.Values{}
	params.Set("owner", owner)

	var resp connectionListResponse
	if err := s.c.get(ctx, "/api/v1/connections", params, &resp); err != nil {
		return nil, err
	}
	return resp.Connections, nil
}

// Revoke permanently disables a connection. The client's API key must belong
// to the tenant being revoked.
func (s *ConnectionService) Revoke(ctx context.Context, tenantID string) error {
	return s.c.del(ctx, "/api/v1/connections/"+url.PathEscape(tenantID), nil)
}
