package services

import "sync"

// ChangeHooks holds callbacks that run after a write has committed.
// Services embed it and call Notify once their transaction returns without error.
type ChangeHooks struct {
	mu    sync.RWMutex
	hooks []func()
}

// OnChange registers fn to run after every committed write
func (h *ChangeHooks) OnChange(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

// Notify runs the registered callbacks in registration order
func (h *ChangeHooks) Notify() {
	h.mu.RLock()
	hooks := h.hooks
	h.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// NotifyOnSuccess calls Notify when err is nil and returns err unchanged
func (h *ChangeHooks) NotifyOnSuccess(err error) error {
	if err == nil {
		h.Notify()
	}
	return err
}
