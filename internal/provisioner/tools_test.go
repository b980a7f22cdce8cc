package provisioner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpbox/internal/api"
	apperrors "mcpbox/internal/errors"
)

func TestSyncToolsRequiresActiveInstallation(t *testing.T) {
	o, _, _ := newTestOrchestrator(&mockCloud{})
	ctx := context.Background()

	_, err := o.SyncTools(ctx, testInstallation, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSequence, apperrors.GetErrorCode(err))

	// Still blocked mid-workflow.
	_, err = o.VerifyCredential(ctx, testInstallation, "token-1")
	require.NoError(t, err)
	_, err = o.SyncTools(ctx, testInstallation, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSequence, apperrors.GetErrorCode(err))
}

func TestSyncToolsPushesManifest(t *testing.T) {
	var manifests []string
	cloud := &mockCloud{
		pushWorkerSecretsFunc: func(_ context.Context, _, workerName string, secrets map[string]string) error {
			// The deploy-time baseline push also carries a seed manifest;
			// only record standalone sync pushes here.
			if m, ok := secrets["MCPBOX_TOOLS"]; ok && len(secrets) == 1 {
				assert.Equal(t, "mcpbox-gateway", workerName)
				manifests = append(manifests, m)
			}
			return nil
		},
	}
	o, _, _ := newTestOrchestrator(cloud)
	runFullWorkflow(t, o)

	tools := []api.ToolManifest{
		{Name: "search", Description: "full-text search", URL: "https://tools.example.com/search"},
		{Name: "fetch"},
	}
	result, err := o.SyncTools(context.Background(), testInstallation, tools)
	require.NoError(t, err)
	assert.Equal(t, "mcpbox-gateway", result.WorkerName)
	assert.Equal(t, 2, result.ToolCount)
	assert.False(t, result.SyncedAt.IsZero())

	require.Len(t, manifests, 1)
	var decoded []api.ToolManifest
	require.NoError(t, json.Unmarshal([]byte(manifests[0]), &decoded))
	assert.Equal(t, tools, decoded)
}

func TestSyncToolsValidation(t *testing.T) {
	o, _, _ := newTestOrchestrator(&mockCloud{})
	runFullWorkflow(t, o)

	_, err := o.SyncTools(context.Background(), testInstallation, []api.ToolManifest{{Description: "nameless"}})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetErrorCode(err))
}
