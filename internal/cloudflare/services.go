package cloudflare

import (
	"context"
	"fmt"
	"net/http"
)

// Service is a private-network service: a routable internal endpoint a
// tunnel exposes without a public address.
type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TunnelID string `json:"tunnel_id"`
}

// ServiceParams describes a private-network service to create.
type ServiceParams struct {
	Name     string `json:"name"`
	TunnelID string `json:"tunnel_id"`
}

// ListServices returns the account's private-network services,
// optionally filtered by exact name.
func (c *Client) ListServices(ctx context.Context, accountID, name string) ([]Service, error) {
	path := fmt.Sprintf("/accounts/%s/mcp/services", accountID)
	if name != "" {
		path += "?name=" + queryEscape(name)
	}

	var services []Service
	if err := c.do(ctx, http.MethodGet, path, nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// CreateService publishes a private-network service over a tunnel.
func (c *Client) CreateService(ctx context.Context, accountID string, params ServiceParams) (*Service, error) {
	var service Service
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/accounts/%s/mcp/services", accountID), params, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// DeleteService removes a private-network service.
func (c *Client) DeleteService(ctx context.Context, accountID, serviceID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/accounts/%s/mcp/services/%s", accountID, serviceID), nil, nil)
}
