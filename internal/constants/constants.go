// Package constants defines global constants used throughout mcpbox.
// It includes version information, step definitions, and shared header names.
package constants

var version = "0.0.0-development" // Updated by CI/CD pipeline at build time

// GetVersion returns the current version of mcpbox.
func GetVersion() *string {
	return &version
}

// ProjectName is the name of the application and the prefix for default
// resource names created on the external control plane.
const ProjectName = "mcpbox"

// Environment represents the execution environment.
type Environment string

// Environment types for logger configuration
const (
	Development Environment = "development"
	Production  Environment = "production"
)

// ContentTypeHeader is the HTTP Content-Type header name.
const ContentTypeHeader = "Content-Type"

// RequestIDByteSize is the number of random bytes in a generated request ID.
const RequestIDByteSize = 8

// StepCount is the number of mutating provisioning steps in the setup
// wizard. The terminal "connect" stage is a read-only display state and
// is represented by status "active", not by a sixth step.
const StepCount = 5
