package cloudflare

import (
	"context"
	"fmt"
	"net/http"
)

// Worker is a deployed edge-proxy script, reachable by URL once the
// account's workers.dev subdomain is known.
type Worker struct {
	ID   string `json:"id"`
	Name string `json:"-"`
}

type workerScript struct {
	ID string `json:"id"`
}

type workerSubdomain struct {
	Subdomain string `json:"subdomain"`
}

type workerSecret struct {
	Name string `json:"name"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// ListWorkers returns the account's deployed worker scripts. Script
// names double as identifiers.
func (c *Client) ListWorkers(ctx context.Context, accountID string) ([]Worker, error) {
	var scripts []workerScript
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/accounts/%s/workers/scripts", accountID), nil, &scripts); err != nil {
		return nil, err
	}

	workers := make([]Worker, 0, len(scripts))
	for _, s := range scripts {
		workers = append(workers, Worker{ID: s.ID, Name: s.ID})
	}
	return workers, nil
}

// DeployWorker uploads a worker script under the given name. Uploading
// to an existing name replaces the script in place.
func (c *Client) DeployWorker(ctx context.Context, accountID, name string, script []byte) (*Worker, error) {
	path := fmt.Sprintf("/accounts/%s/workers/scripts/%s", accountID, name)
	var result workerScript
	if err := c.doRaw(ctx, http.MethodPut, path, script, "application/javascript", &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		result.ID = name
	}
	return &Worker{ID: result.ID, Name: name}, nil
}

// DeleteWorker removes a worker script by name.
func (c *Client) DeleteWorker(ctx context.Context, accountID, name string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/accounts/%s/workers/scripts/%s", accountID, name), nil, nil)
}

// WorkerSubdomain returns the account's workers.dev subdomain.
func (c *Client) WorkerSubdomain(ctx context.Context, accountID string) (string, error) {
	var sub workerSubdomain
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/accounts/%s/workers/subdomain", accountID), nil, &sub); err != nil {
		return "", err
	}
	if sub.Subdomain == "" {
		return "", &APIError{
			StatusCode: http.StatusNotFound,
			Errors:     []apiMessage{{Message: "account has no workers.dev subdomain"}},
		}
	}
	return sub.Subdomain, nil
}

// PushWorkerSecrets pushes each secret into the worker's runtime
// configuration. Secrets are pushed one by one; the first failure
// aborts.
func (c *Client) PushWorkerSecrets(ctx context.Context, accountID, workerName string, secrets map[string]string) error {
	path := fmt.Sprintf("/accounts/%s/workers/scripts/%s/secrets", accountID, workerName)
	for name, value := range secrets {
		body := workerSecret{Name: name, Text: value, Type: "secret_text"}
		if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
			return fmt.Errorf("push secret %s: %w", name, err)
		}
	}
	return nil
}

// WorkerURL builds the public URL of a deployed worker.
func WorkerURL(name, subdomain string) string {
	return fmt.Sprintf("https://%s.%s.workers.dev", name, subdomain)
}
