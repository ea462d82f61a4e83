package scansync

import (
	"context"
	"sync"

	"github.com/agentstation/scansync/pkg/manifest"
	"github.com/agentstation/scansync/pkg/reconciler"
)

// Hook function types for file events
type (
	// FileIngestedHook is called after a verified file was recorded
	FileIngestedHook func(studyID string, file manifest.File)

	// FileSkippedHook is called for files the catalog already held
	FileSkippedHook func(studyID string, file manifest.File)

	// IntegrityFailedHook is called when a download's fingerprint did not match
	IntegrityFailedHook func(studyID string, file manifest.File, observed string)

	// FileRejectedHook is called when the catalog refused a verified file
	FileRejectedHook func(studyID string, file manifest.File)
)

// Hooks registers event callbacks.
type Hooks interface {
	OnFileIngested(FileIngestedHook)
	OnFileSkipped(FileSkippedHook)
	OnIntegrityFailed(IntegrityFailedHook)
	OnFileRejected(FileRejectedHook)
}

// Compile-time interface check to ensure proper implementation.
var _ reconciler.Observer = (*hooks)(nil)

// hooks manages event callbacks and adapts them to reconciler.Observer
type hooks struct {
	mu                sync.RWMutex
	onFileIngested    []FileIngestedHook
	onFileSkipped     []FileSkippedHook
	onIntegrityFailed []IntegrityFailedHook
	onFileRejected    []FileRejectedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnFileIngested registers a callback for ingested files
func (h *hooks) OnFileIngested(fn FileIngestedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFileIngested = append(h.onFileIngested, fn)
}

// OnFileSkipped registers a callback for files already in the catalog
func (h *hooks) OnFileSkipped(fn FileSkippedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFileSkipped = append(h.onFileSkipped, fn)
}

// OnIntegrityFailed registers a callback for fingerprint mismatches
func (h *hooks) OnIntegrityFailed(fn IntegrityFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onIntegrityFailed = append(h.onIntegrityFailed, fn)
}

// OnFileRejected registers a callback for classifier refusals
func (h *hooks) OnFileRejected(fn FileRejectedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFileRejected = append(h.onFileRejected, fn)
}

func (h *hooks) FileIngested(_ context.Context, studyID string, file manifest.File) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onFileIngested {
		hook(studyID, file)
	}
}

func (h *hooks) FileSkipped(_ context.Context, studyID string, file manifest.File) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onFileSkipped {
		hook(studyID, file)
	}
}

func (h *hooks) IntegrityFailed(_ context.Context, studyID string, file manifest.File, observed string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onIntegrityFailed {
		hook(studyID, file, observed)
	}
}

func (h *hooks) FileRejected(_ context.Context, studyID string, file manifest.File) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onFileRejected {
		hook(studyID, file)
	}
}

// OnFileIngested implements Hooks.
func (c *client) OnFileIngested(fn FileIngestedHook) { c.hooks.OnFileIngested(fn) }

// OnFileSkipped implements Hooks.
func (c *client) OnFileSkipped(fn FileSkippedHook) { c.hooks.OnFileSkipped(fn) }

// OnIntegrityFailed implements Hooks.
func (c *client) OnIntegrityFailed(fn IntegrityFailedHook) { c.hooks.OnIntegrityFailed(fn) }

// OnFileRejected implements Hooks.
func (c *client) OnFileRejected(fn FileRejectedHook) { c.hooks.OnFileRejected(fn) }
