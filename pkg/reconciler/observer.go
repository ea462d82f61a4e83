package reconciler

import (
	"context"

	"github.com/agentstation/scansync/pkg/manifest"
)

// Observer receives per-file events during a run. Calls happen on the
// reconciling goroutine, in file order.
type Observer interface {
	// FileIngested fires after a verified file was recorded.
	FileIngested(ctx context.Context, studyID string, file manifest.File)
	// FileSkipped fires for files the catalog already holds.
	FileSkipped(ctx context.Context, studyID string, file manifest.File)
	// IntegrityFailed fires when a download's fingerprint did not match.
	IntegrityFailed(ctx context.Context, studyID string, file manifest.File, observed string)
	// FileRejected fires when the catalog's classifier refused a file.
	FileRejected(ctx context.Context, studyID string, file manifest.File)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) FileIngested(context.Context, string, manifest.File)            {}
func (NopObserver) FileSkipped(context.Context, string, manifest.File)             {}
func (NopObserver) IntegrityFailed(context.Context, string, manifest.File, string) {}
func (NopObserver) FileRejected(context.Context, string, manifest.File)            {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) FileIngested(ctx context.Context, studyID string, file manifest.File) {
	for _, obs := range o {
		obs.FileIngested(ctx, studyID, file)
	}
}

func (o Observers) FileSkipped(ctx context.Context, studyID string, file manifest.File) {
	for _, obs := range o {
		obs.FileSkipped(ctx, studyID, file)
	}
}

func (o Observers) IntegrityFailed(ctx context.Context, studyID string, file manifest.File, observed string) {
	for _, obs := range o {
		obs.IntegrityFailed(ctx, studyID, file, observed)
	}
}

func (o Observers) FileRejected(ctx context.Context, studyID string, file manifest.File) {
	for _, obs := range o {
		obs.FileRejected(ctx, studyID, file)
	}
}
