package provisioner

import (
	"path"

	"mcpbox/internal/constants"
)

// Default resource names are deterministic per installation so conflict
// detection against pre-existing foreign resources is meaningful and
// repeatable. Operators may override every name per step.

func defaultTunnelName() string {
	return constants.ProjectName + "-tunnel"
}

func defaultServiceName() string {
	return constants.ProjectName + "-service"
}

func defaultWorkerName() string {
	return constants.ProjectName + "-gateway"
}

// accessAppName derives the Access application name from the worker it
// fronts.
func accessAppName(workerName string) string {
	return workerName + "-access"
}

// credentialRef builds the secret-store reference for an installation's
// API credential.
func credentialRef(prefix, installationID string) string {
	return path.Join(prefix, installationID)
}
