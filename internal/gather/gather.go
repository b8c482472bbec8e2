// Package gather orchestrates the acquisition pipeline: it consults the
// checkpoint for a resumed start date, walks the segmentation plan day by
// day through the resilient fetch executor, feeds results to the resampler,
// and fans the output to the configured sinks.
package gather

import (
	"context"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run executes the gathering process to completion or first fatal error.
	Run(ctx context.Context) error
}
