// Package detectors provides streaming anomaly and concept-drift detection.
package detectors

import (
	"context"
	"fmt"
)

// Sample is a single timestamped measurement from a stream.
type Sample struct {
	// Timestamp is the sample time, wall-clock or monotonic, in the
	// producer's unit of choice. The detector never interprets it.
	Timestamp int64
	// Value is the measurement.
	Value float64
}

// Event is the classification of one ingested sample.
type Event struct {
	// Sample is the sample this event classifies.
	Sample Sample
	// ZScore is the sample's distance from the window mean in standard
	// deviations, computed after any drift cut.
	ZScore float64
	// IsAnomaly indicates |ZScore| exceeded the configured threshold.
	IsAnomaly bool
	// IsDrift indicates the drift algorithm cut the window on this sample.
	IsDrift bool
	// WindowSize is the number of samples in the window after ingestion.
	WindowSize int
}

// StreamDetector is the common interface for online scalar detectors.
type StreamDetector interface {
	// Ingest incorporates one sample and returns its classification.
	Ingest(s Sample) (Event, error)

	// Reset clears all state; the next Ingest behaves like the first.
	Reset()
}

// StreamDriver extends StreamDetector with channel-based processing.
type StreamDriver interface {
	StreamDetector

	// DetectStream processes samples from a channel and emits events
	// until the input closes or the context is cancelled.
	DetectStream(ctx context.Context, input <-chan Sample, output chan<- Event) error
}

// InvalidInputError reports a sample that cannot be ingested. The
// detector's state is unchanged when this is returned.
type InvalidInputError struct {
	Sample Sample
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid sample at t=%d: %s", e.Sample.Timestamp, e.Reason)
}

// ConfigError reports invalid construction parameters.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Param, e.Reason)
}
