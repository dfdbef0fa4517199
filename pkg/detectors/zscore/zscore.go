// Package zscore implements a drift-aware streaming z-score anomaly
// detector. Each sample first updates an ADWIN window, which may cut away
// stale data when the distribution shifts; the sample is then scored
// against the statistics of the window as it stands after the cut.
//
// A Detector is owned by a single goroutine: Ingest must not be called
// concurrently. Use DetectStream to drive one from a channel.
package zscore

import (
	"context"
	"math"

	"github.com/hed1ad/driftwatch/pkg/detectors"
	"github.com/hed1ad/driftwatch/pkg/detectors/adwin"
)

// varianceFloor is the variance below which a window is treated as
// constant-valued, so the z-score is exactly zero instead of rounding
// noise divided by the epsilon floor.
const varianceFloor = 1e-12

// Detector classifies each sample of a stream as normal, anomalous, or
// coincident with concept drift.
type Detector struct {
	// Configuration
	delta     float64
	threshold float64
	minWindow int
	epsilon   float64

	window *adwin.ADWIN
}

// Option configures a Detector.
type Option func(*Detector)

// WithDelta sets the drift confidence parameter.
func WithDelta(d float64) Option {
	return func(det *Detector) {
		det.delta = d
	}
}

// WithThreshold sets the |z-score| above which a sample is an anomaly.
func WithThreshold(t float64) Option {
	return func(det *Detector) {
		det.threshold = t
	}
}

// WithMinWindow sets the minimum window size before samples are
// classified as anomalies.
func WithMinWindow(n int) Option {
	return func(det *Detector) {
		det.minWindow = n
	}
}

// WithEpsilon sets the standard-deviation floor used when the window is
// near-constant.
func WithEpsilon(e float64) Option {
	return func(det *Detector) {
		det.epsilon = e
	}
}

// New creates a Detector with the given options.
func New(opts ...Option) (*Detector, error) {
	det := &Detector{
		delta:     0.002,
		threshold: 3.0,
		minWindow: 2,
		epsilon:   1e-6,
	}

	for _, opt := range opts {
		opt(det)
	}

	if det.threshold <= 0 {
		return nil, &detectors.ConfigError{Param: "threshold", Reason: "must be positive"}
	}
	if det.minWindow < 0 {
		return nil, &detectors.ConfigError{Param: "minWindow", Reason: "must not be negative"}
	}
	if det.epsilon <= 0 {
		return nil, &detectors.ConfigError{Param: "epsilon", Reason: "must be positive"}
	}

	window, err := adwin.New(adwin.WithDelta(det.delta))
	if err != nil {
		return nil, err
	}
	det.window = window

	return det, nil
}

// Ingest incorporates one sample and returns its classification. A
// non-finite value is rejected with *detectors.InvalidInputError and
// leaves the window untouched.
func (det *Detector) Ingest(s detectors.Sample) (detectors.Event, error) {
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return detectors.Event{}, &detectors.InvalidInputError{Sample: s, Reason: "value is not finite"}
	}

	drift := det.window.Update(s.Value)

	n := det.window.Width()
	z := 0.0
	if n >= 2 {
		if v := det.window.Variance(); v > varianceFloor {
			z = (s.Value - det.window.Mean()) / math.Max(math.Sqrt(v), det.epsilon)
		}
	}

	return detectors.Event{
		Sample:     s,
		ZScore:     z,
		IsAnomaly:  n >= 2 && n >= det.minWindow && math.Abs(z) > det.threshold,
		IsDrift:    drift,
		WindowSize: n,
	}, nil
}

// Reset clears the window; the next Ingest behaves like the first call on
// a freshly constructed detector.
func (det *Detector) Reset() {
	det.window.Reset()
}

// WindowSize returns the current number of samples in the window.
func (det *Detector) WindowSize() int {
	return det.window.Width()
}

// Mean returns the current window mean.
func (det *Detector) Mean() float64 {
	return det.window.Mean()
}

// Threshold returns the configured anomaly threshold.
func (det *Detector) Threshold() float64 {
	return det.threshold
}

// DetectStream processes samples from a channel and emits one event per
// valid sample until the input closes or the context is cancelled.
// Invalid samples are skipped.
func (det *Detector) DetectStream(ctx context.Context, input <-chan detectors.Sample, output chan<- detectors.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-input:
			if !ok {
				return nil
			}

			ev, err := det.Ingest(s)
			if err != nil {
				continue
			}

			select {
			case output <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
