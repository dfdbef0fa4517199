// Package simulate generates a synthetic sensor signal with regular and
// seasonal cycles, random noise, and occasional injected anomalies.
package simulate

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/hed1ad/driftwatch/pkg/detectors"
)

// Generator produces a deterministic (per seed) stream of samples. The
// signal is a daily sinusoid over a seasonal sinusoid plus uniform noise;
// a configurable fraction of samples carry a positive spike.
type Generator struct {
	base        float64
	dailyAmp    float64
	dailyPeriod float64
	yearAmp     float64
	yearPeriod  float64
	noise       float64
	anomalyRate float64
	spikeMin    float64
	spikeMax    float64

	rng *rand.Rand
	t   int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithBase sets the signal's base level.
func WithBase(b float64) Option {
	return func(g *Generator) {
		g.base = b
	}
}

// WithNoise sets the uniform noise half-width.
func WithNoise(n float64) Option {
	return func(g *Generator) {
		g.noise = n
	}
}

// WithAnomalyRate sets the fraction of samples that carry a spike.
func WithAnomalyRate(r float64) Option {
	return func(g *Generator) {
		g.anomalyRate = r
	}
}

// New creates a Generator with the given options.
func New(opts ...Option) *Generator {
	g := &Generator{
		base:        50,
		dailyAmp:    10,
		dailyPeriod: 24,
		yearAmp:     10,
		yearPeriod:  365,
		noise:       2,
		anomalyRate: 0.05,
		spikeMin:    30,
		spikeMax:    40,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Next returns the sample for the current time step and whether it
// carries an injected anomaly, then advances the step.
func (g *Generator) Next() (detectors.Sample, bool) {
	t := float64(g.t)

	// Daily cycle (e.g. temperature) over a yearly cycle (e.g. energy use).
	value := g.base +
		g.dailyAmp*math.Sin(2*math.Pi*t/g.dailyPeriod) +
		g.yearAmp*math.Sin(2*math.Pi*t/g.yearPeriod) +
		g.uniform(-g.noise, g.noise)

	injected := g.rng.Float64() < g.anomalyRate
	if injected {
		value += g.uniform(g.spikeMin, g.spikeMax)
	}

	s := detectors.Sample{Timestamp: g.t, Value: value}
	g.t++
	return s, injected
}

// Stream emits one sample per interval until the context is cancelled.
// A zero interval emits as fast as the consumer reads.
func (g *Generator) Stream(ctx context.Context, interval time.Duration) <-chan detectors.Sample {
	out := make(chan detectors.Sample, 100)

	go func() {
		defer close(out)
		var tick *time.Ticker
		if interval > 0 {
			tick = time.NewTicker(interval)
			defer tick.Stop()
		}

		for {
			s, _ := g.Next()
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}

			if tick != nil {
				select {
				case <-tick.C:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
