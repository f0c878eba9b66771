package providers

import (
	"context"
	"time"
)

// Frame is a single raw video frame in packed RGB order.
type Frame struct {
	Width      int
	Height     int
	RGB        []byte
	CapturedAt time.Time
}

// FrameSource abstracts a camera device or external pipeline. The capture
// worker is its only caller; request handlers never touch a source
// directly, they read the published cache.
type FrameSource interface {
	// Open acquires the device. It must respect ctx for its bounded
	// timeout and is retried by the worker on failure.
	Open(ctx context.Context) error

	// Read blocks until the next frame or ctx expiry.
	Read(ctx context.Context) (Frame, error)

	// Close releases the device. Safe to call after a failed Open.
	Close() error
}
