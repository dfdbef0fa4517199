// Package io provides input/output utilities for sample streams.
package io

import (
	"context"

	"github.com/hed1ad/driftwatch/pkg/detectors"
)

// SampleReader is the interface for reading samples from a source.
type SampleReader interface {
	// Read returns the complete sample sequence.
	Read() ([]detectors.Sample, error)

	// Stream returns a channel of samples for real-time processing.
	Stream(ctx context.Context) (<-chan detectors.Sample, error)

	// Close releases resources.
	Close() error
}

// EventWriter is the interface for writing detection results.
type EventWriter interface {
	// Write outputs a single result.
	Write(result Result) error

	// Close releases resources.
	Close() error
}

// Result is the wire form of a detection event.
type Result struct {
	Timestamp  int64   `json:"timestamp"`
	Value      float64 `json:"value"`
	ZScore     float64 `json:"z_score"`
	IsAnomaly  bool    `json:"is_anomaly"`
	IsDrift    bool    `json:"is_drift"`
	WindowSize int     `json:"window_size"`
	Error      string  `json:"error,omitempty"`
}

// ResultFromEvent converts a detection event to its wire form.
func ResultFromEvent(ev detectors.Event) Result {
	return Result{
		Timestamp:  ev.Sample.Timestamp,
		Value:      ev.Sample.Value,
		ZScore:     ev.ZScore,
		IsAnomaly:  ev.IsAnomaly,
		IsDrift:    ev.IsDrift,
		WindowSize: ev.WindowSize,
	}
}
