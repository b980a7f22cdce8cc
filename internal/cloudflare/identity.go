package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Identity describes the account the API token is bound to.
type Identity struct {
	AccountID   string
	AccountName string
}

type tokenStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Verify checks the API token and resolves the account it grants access
// to. A disabled or unknown token yields an unauthorized APIError.
func (c *Client) Verify(ctx context.Context) (*Identity, error) {
	var status tokenStatus
	if err := c.do(ctx, http.MethodGet, "/user/tokens/verify", nil, &status); err != nil {
		return nil, err
	}
	if status.Status != "active" {
		return nil, &APIError{
			StatusCode: http.StatusUnauthorized,
			Errors:     []apiMessage{{Message: fmt.Sprintf("token status is %q", status.Status)}},
		}
	}

	var accounts []account
	if err := c.do(ctx, http.MethodGet, "/accounts?per_page=1", nil, &accounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, &APIError{
			StatusCode: http.StatusForbidden,
			Errors:     []apiMessage{{Message: "token grants access to no account"}},
		}
	}

	return &Identity{AccountID: accounts[0].ID, AccountName: accounts[0].Name}, nil
}

func queryEscape(s string) string {
	return url.QueryEscape(s)
}
