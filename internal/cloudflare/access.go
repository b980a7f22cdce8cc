package cloudflare

import (
	"context"
	"fmt"
	"net/http"

	"mcpbox/internal/api"
)

// AccessApp is a Zero Trust Access application fronting the worker with
// OIDC authentication.
type AccessApp struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	AUD          string `json:"aud"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AccessAppParams describes an Access application to create.
type AccessAppParams struct {
	Name            string `json:"name"`
	Domain          string `json:"domain"`
	Type            string `json:"type"`
	SessionDuration string `json:"session_duration,omitempty"`
}

// AccessCredentials are the OIDC secrets generated for an Access
// application. They are returned once per generation and must be pushed
// to the worker immediately.
type AccessCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AUD          string `json:"aud"`
}

// accessRule is one include rule of an Access policy.
type accessRule map[string]any

type accessPolicyBody struct {
	Name     string       `json:"name"`
	Decision string       `json:"decision"`
	Include  []accessRule `json:"include"`
}

// ListAccessApps returns the account's Access applications, optionally
// filtered by exact name.
func (c *Client) ListAccessApps(ctx context.Context, accountID, name string) ([]AccessApp, error) {
	path := fmt.Sprintf("/accounts/%s/access/apps", accountID)
	if name != "" {
		path += "?name=" + queryEscape(name)
	}

	var apps []AccessApp
	if err := c.do(ctx, http.MethodGet, path, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// CreateAccessApp creates an Access application. The response carries
// freshly generated OIDC credentials.
func (c *Client) CreateAccessApp(ctx context.Context, accountID string, params AccessAppParams) (*AccessApp, error) {
	if params.Type == "" {
		params.Type = "self_hosted"
	}

	var app AccessApp
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/accounts/%s/access/apps", accountID), params, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// RotateAccessAppSecret generates fresh OIDC credentials for an existing
// Access application. Used when a secret push failed after application
// creation and the original credentials are gone.
func (c *Client) RotateAccessAppSecret(ctx context.Context, accountID, appID string) (*AccessCredentials, error) {
	path := fmt.Sprintf("/accounts/%s/access/apps/%s/rotate_secret", accountID, appID)
	var creds AccessCredentials
	if err := c.do(ctx, http.MethodPost, path, nil, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// CreateAccessPolicy attaches an allow policy to an Access application,
// built from the tagged policy variant.
func (c *Client) CreateAccessPolicy(ctx context.Context, accountID, appID string, policy api.AccessPolicy) error {
	body := accessPolicyBody{
		Name:     "mcpbox allow",
		Decision: "allow",
		Include:  buildIncludeRules(policy),
	}

	path := fmt.Sprintf("/accounts/%s/access/apps/%s/policies", accountID, appID)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// DeleteAccessApp removes an Access application and its policies.
func (c *Client) DeleteAccessApp(ctx context.Context, accountID, appID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/accounts/%s/access/apps/%s", accountID, appID), nil, nil)
}

// buildIncludeRules maps the policy variant to Access include rules.
// "everyone" produces the unrestricted rule; the other variants emit one
// rule per email or a single domain rule.
func buildIncludeRules(policy api.AccessPolicy) []accessRule {
	switch policy.Mode {
	case api.AccessEmails:
		rules := make([]accessRule, 0, len(policy.Emails))
		for _, addr := range policy.Emails {
			rules = append(rules, accessRule{"email": map[string]string{"email": addr}})
		}
		return rules
	case api.AccessEmailDomain:
		return []accessRule{{"email_domain": map[string]string{"domain": policy.EmailDomain}}}
	default:
		return []accessRule{{"everyone": map[string]string{}}}
	}
}
