package provisioner

import "sync"

// lockRegistry serializes workflow execution per installation. Steps
// mutate shared external state and the local config sequentially, so a
// concurrent operation on the same installation is rejected rather than
// queued; status reads never touch the registry.
type lockRegistry struct {
	mu   sync.Mutex
	held map[string]bool
}

// tryAcquire attempts to take the lock for an installation. It returns
// a release func and true on success, or false when the lock is held by
// an in-flight operation.
func (r *lockRegistry) tryAcquire(installationID string) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held == nil {
		r.held = make(map[string]bool)
	}
	if r.held[installationID] {
		return nil, false
	}
	r.held[installationID] = true

	return func() {
		r.mu.Lock()
		delete(r.held, installationID)
		r.mu.Unlock()
	}, true
}
