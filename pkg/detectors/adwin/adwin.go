// Package adwin implements the ADaptive WINdowing algorithm for detecting
// concept drift in a data stream.
//
// The window is summarized as a row of buckets of exponentially increasing
// size, oldest first. Each new value starts its own bucket; when more than
// maxBuckets buckets share a size, the two oldest of that size merge. On
// every update the algorithm scans the bucket boundaries for a split point
// where the means of the two sub-windows differ by more than a
// variance-aware Hoeffding bound; if one exists, the prefix before the
// split is dropped and the scan repeats on the shrunken window until no
// split qualifies. Any cut makes the update report drift.
package adwin

import (
	"math"

	"github.com/hed1ad/driftwatch/pkg/detectors"
)

// bucket summarizes a contiguous run of samples. Merging two buckets adds
// their fields, so window mean and variance stay exact after compression.
type bucket struct {
	sum   float64
	sumSq float64
	count int
}

// ADWIN is an adaptive-window drift detector.
type ADWIN struct {
	// Configuration
	delta       float64
	maxBuckets  int
	minSubWidth int

	// Window state. buckets is ordered oldest to newest; cuts truncate
	// the front in place.
	buckets []bucket
	width   int
	total   float64
	totalSq float64
}

// Option configures an ADWIN instance.
type Option func(*ADWIN)

// WithDelta sets the confidence parameter. Smaller values make the
// detector less sensitive to change.
func WithDelta(d float64) Option {
	return func(a *ADWIN) {
		a.delta = d
	}
}

// WithMaxBuckets sets how many buckets of each size are kept before the
// two oldest merge.
func WithMaxBuckets(n int) Option {
	return func(a *ADWIN) {
		a.maxBuckets = n
	}
}

// WithMinSubWindow sets the minimum number of samples that must remain
// in the window after a cut. The dropped prefix may be arbitrarily
// small: removing a short stale run is the conservative direction, and
// it is what lets the window shed leftovers from an earlier cut.
func WithMinSubWindow(n int) Option {
	return func(a *ADWIN) {
		a.minSubWidth = n
	}
}

// New creates an ADWIN detector with the given options.
func New(opts ...Option) (*ADWIN, error) {
	a := &ADWIN{
		delta:       0.002,
		maxBuckets:  5,
		minSubWidth: 5,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.delta <= 0 || a.delta >= 1 {
		return nil, &detectors.ConfigError{Param: "delta", Reason: "must be in (0, 1)"}
	}
	if a.maxBuckets < 1 {
		return nil, &detectors.ConfigError{Param: "maxBuckets", Reason: "must be at least 1"}
	}
	if a.minSubWidth < 1 {
		return nil, &detectors.ConfigError{Param: "minSubWindow", Reason: "must be at least 1"}
	}

	return a, nil
}

// Update incorporates a new value and reports whether a drift cut
// occurred. The caller must ensure the value is finite.
func (a *ADWIN) Update(value float64) bool {
	a.buckets = append(a.buckets, bucket{sum: value, sumSq: value * value, count: 1})
	a.width++
	a.total += value
	a.totalSq += value * value

	a.compress()
	return a.detectCut()
}

// Width returns the number of samples in the window.
func (a *ADWIN) Width() int {
	return a.width
}

// Mean returns the mean of the window, or 0 for an empty window.
func (a *ADWIN) Mean() float64 {
	if a.width == 0 {
		return 0
	}
	return a.total / float64(a.width)
}

// Variance returns the population variance of the window.
func (a *ADWIN) Variance() float64 {
	if a.width == 0 {
		return 0
	}
	mean := a.total / float64(a.width)
	v := a.totalSq/float64(a.width) - mean*mean
	if v < 0 {
		// Rounding can push a degenerate variance slightly negative.
		v = 0
	}
	return v
}

// Reset clears the window back to its initial empty state.
func (a *ADWIN) Reset() {
	a.buckets = a.buckets[:0]
	a.width = 0
	a.total = 0
	a.totalSq = 0
}

// compress merges the two oldest buckets of a size whenever more than
// maxBuckets buckets share that size. Merges cascade into larger sizes.
func (a *ADWIN) compress() {
	for i := len(a.buckets) - 1; i >= 0; {
		c := a.buckets[i].count
		j := i
		for j >= 0 && a.buckets[j].count == c {
			j--
		}
		// Run of equal-size buckets is buckets[j+1 .. i].
		if i-j > a.maxBuckets {
			k := j + 1
			a.buckets[k+1].sum += a.buckets[k].sum
			a.buckets[k+1].sumSq += a.buckets[k].sumSq
			a.buckets[k+1].count += a.buckets[k].count
			a.buckets = append(a.buckets[:k], a.buckets[k+1:]...)
			// The merged bucket joined the next larger run; rescan it.
			i = k
			continue
		}
		i = j
	}
}

// detectCut repeats the split scan until no cut qualifies. Returns true
// if any cut was applied.
func (a *ADWIN) detectCut() bool {
	cut := false
	for a.cutOnce() {
		cut = true
	}
	return cut
}

// cutOnce scans bucket boundaries for a qualifying split and drops the
// prefix of the split that removes the most data. Returns true if a cut
// was applied.
func (a *ADWIN) cutOnce() bool {
	if len(a.buckets) < 2 || a.width <= a.minSubWidth {
		return false
	}

	variance := a.Variance()
	lnDelta := math.Log(2 * math.Log(float64(a.width)) / a.delta)

	cut := -1
	var cutSum, cutSumSq float64
	var cutCount int

	n0 := 0
	s0, q0 := 0.0, 0.0
	for i := 0; i < len(a.buckets)-1; i++ {
		n0 += a.buckets[i].count
		s0 += a.buckets[i].sum
		q0 += a.buckets[i].sumSq

		n1 := a.width - n0
		if n1 < a.minSubWidth {
			// The suffix only shrinks from here on.
			break
		}

		mean0 := s0 / float64(n0)
		mean1 := (a.total - s0) / float64(n1)
		m := 1 / (1/float64(n0) + 1/float64(n1))
		eps := math.Sqrt(2/m*variance*lnDelta) + 2/(3*m)*lnDelta

		if math.Abs(mean0-mean1) > eps {
			// Later splits remove a larger prefix; keep scanning and
			// take the last one that qualifies.
			cut = i
			cutSum, cutSumSq, cutCount = s0, q0, n0
		}
	}

	if cut < 0 {
		return false
	}

	a.total -= cutSum
	a.totalSq -= cutSumSq
	a.width -= cutCount
	n := copy(a.buckets, a.buckets[cut+1:])
	a.buckets = a.buckets[:n]
	return true
}
