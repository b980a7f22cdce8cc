package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", WithBaseURL(srv.URL), WithTimeout(5*time.Second))
}

func writeEnvelope(w http.ResponseWriter, status int, result any, errs []apiMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: errs == nil,
		Errors:  errs,
		Result:  mustRaw(result),
	})
}

func mustRaw(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, _ := json.Marshal(v)
	return raw
}

func TestVerify(t *testing.T) {
	t.Run("active token resolves account", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
			switch req.URL.Path {
			case "/user/tokens/verify":
				writeEnvelope(w, http.StatusOK, tokenStatus{ID: "tok-1", Status: "active"}, nil)
			case "/accounts":
				writeEnvelope(w, http.StatusOK, []account{{ID: "acc-1", Name: "Example Org"}}, nil)
			default:
				t.Fatalf("unexpected path %s", req.URL.Path)
			}
		}))

		identity, err := client.Verify(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "acc-1", identity.AccountID)
		assert.Equal(t, "Example Org", identity.AccountName)
	})

	t.Run("disabled token is unauthorized", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeEnvelope(w, http.StatusOK, tokenStatus{ID: "tok-1", Status: "disabled"}, nil)
		}))

		_, err := client.Verify(context.Background())
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("token without accounts is forbidden", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path == "/user/tokens/verify" {
				writeEnvelope(w, http.StatusOK, tokenStatus{Status: "active"}, nil)
				return
			}
			writeEnvelope(w, http.StatusOK, []account{}, nil)
		}))

		_, err := client.Verify(context.Background())
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
	})
}

func TestRetryOnTransientFailure(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, http.StatusOK, []Tunnel{}, nil)
	}))

	_, err := client.ListTunnels(context.Background(), "acc-1", "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusForbidden, nil, []apiMessage{{Code: 10000, Message: "authentication error"}})
	}))

	_, err := client.ListTunnels(context.Background(), "acc-1", "")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryGivesUpAfterSecondFailure(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.ListTunnels(context.Background(), "acc-1", "")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		notFound     bool
		unauthorized bool
		transient    bool
	}{
		{"404", &APIError{StatusCode: http.StatusNotFound}, true, false, false},
		{"401", &APIError{StatusCode: http.StatusUnauthorized}, false, true, false},
		{"403", &APIError{StatusCode: http.StatusForbidden}, false, true, false},
		{"429", &APIError{StatusCode: http.StatusTooManyRequests}, false, false, true},
		{"500", &APIError{StatusCode: http.StatusInternalServerError}, false, false, true},
		{"wrapped 404", fmt.Errorf("outer: %w", &APIError{StatusCode: http.StatusNotFound}), true, false, false},
		{"transport failure", fmt.Errorf("connection refused"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.unauthorized, IsUnauthorized(tt.err))
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestDeployWorkerSendsRawScript(t *testing.T) {
	script := []byte("export default { fetch() {} }")
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/accounts/acc-1/workers/scripts/gw", req.URL.Path)
		assert.Equal(t, "application/javascript", req.Header.Get("Content-Type"))
		writeEnvelope(w, http.StatusOK, workerScript{ID: "gw"}, nil)
	}))

	worker, err := client.DeployWorker(context.Background(), "acc-1", "gw", script)
	require.NoError(t, err)
	assert.Equal(t, "gw", worker.Name)
}

func TestPushWorkerSecrets(t *testing.T) {
	var pushed []workerSecret
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/accounts/acc-1/workers/scripts/gw/secrets", req.URL.Path)
		var s workerSecret
		require.NoError(t, json.NewDecoder(req.Body).Decode(&s))
		pushed = append(pushed, s)
		writeEnvelope(w, http.StatusOK, nil, nil)
	}))

	err := client.PushWorkerSecrets(context.Background(), "acc-1", "gw", map[string]string{
		"MCPBOX_INSTALLATION_ID": "install-1",
	})
	require.NoError(t, err)
	require.Len(t, pushed, 1)
	assert.Equal(t, workerSecret{Name: "MCPBOX_INSTALLATION_ID", Text: "install-1", Type: "secret_text"}, pushed[0])
}

func TestWorkerSubdomainMissing(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, workerSubdomain{}, nil)
	}))

	_, err := client.WorkerSubdomain(context.Background(), "acc-1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestWorkerURL(t *testing.T) {
	assert.Equal(t, "https://gw.example.workers.dev", WorkerURL("gw", "example"))
}

func TestEnvelopeErrorsSurfaceOn200(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, nil, []apiMessage{{Code: 1001, Message: "tunnel name already exists"}})
	}))

	_, err := client.CreateTunnel(context.Background(), "acc-1", "dup")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1001, apiErr.Errors[0].Code)
}
