// Package secrets stores API credentials by reference in a separate
// secret store. The provisioning config record only ever carries the
// reference, never the credential material itself.
package secrets

import (
	"context"
	"errors"
)

// ErrCredentialNotFound is returned by Get when no credential exists
// under the given reference.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore persists credential material keyed by an opaque
// reference.
type CredentialStore interface {
	// Put stores or overwrites the credential under ref.
	Put(ctx context.Context, ref, value string) error

	// Get retrieves the credential stored under ref.
	// Returns ErrCredentialNotFound when absent.
	Get(ctx context.Context, ref string) (string, error)

	// Delete removes the credential under ref. Deleting an absent
	// credential is a no-op.
	Delete(ctx context.Context, ref string) error
}
