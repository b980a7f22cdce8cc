package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Tunnel is an outbound-only secure connection resource from a private
// network to the cloud edge.
type Tunnel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListTunnels returns the account's non-deleted tunnels, optionally
// filtered by exact name.
func (c *Client) ListTunnels(ctx context.Context, accountID, name string) ([]Tunnel, error) {
	path := fmt.Sprintf("/accounts/%s/cfd_tunnel?is_deleted=false", accountID)
	if name != "" {
		path += "&name=" + queryEscape(name)
	}

	var tunnels []Tunnel
	if err := c.do(ctx, http.MethodGet, path, nil, &tunnels); err != nil {
		return nil, err
	}
	return tunnels, nil
}

// CreateTunnel creates a remotely-managed tunnel with the given name.
func (c *Client) CreateTunnel(ctx context.Context, accountID, name string) (*Tunnel, error) {
	body := map[string]string{
		"name":       name,
		"config_src": "cloudflare",
	}

	var tunnel Tunnel
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/accounts/%s/cfd_tunnel", accountID), body, &tunnel); err != nil {
		return nil, err
	}
	return &tunnel, nil
}

// DeleteTunnel deletes a tunnel and cascades to its connections.
func (c *Client) DeleteTunnel(ctx context.Context, accountID, tunnelID string) error {
	path := fmt.Sprintf("/accounts/%s/cfd_tunnel/%s?cascade=true", accountID, tunnelID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
