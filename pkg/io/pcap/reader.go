// Package pcap turns packet captures into scalar sample streams so
// network traffic metrics can be fed to a stream detector.
package pcap

import (
	"context"
	"errors"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/hed1ad/driftwatch/pkg/detectors"
)

// Metric selects which scalar is extracted per packet.
type Metric int

const (
	// MetricPacketSize streams the total packet length in bytes.
	MetricPacketSize Metric = iota
	// MetricInterArrival streams the gap to the previous packet in
	// seconds. The first packet yields 0.
	MetricInterArrival
)

// Reader reads samples from PCAP files or live interfaces.
type Reader struct {
	handle *pcap.Handle
	metric Metric
	isLive bool

	lastTimestamp time.Time
}

// Option configures a Reader.
type Option func(*Reader)

// WithMetric selects the per-packet scalar to stream.
func WithMetric(m Metric) Option {
	return func(r *Reader) {
		r.metric = m
	}
}

// NewFileReader creates a reader for PCAP files.
func NewFileReader(filename string, opts ...Option) (*Reader, error) {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{handle: handle, metric: MetricPacketSize}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewLiveReader creates a reader for live packet capture.
func NewLiveReader(iface string, snaplen int32, promisc bool, timeout time.Duration, opts ...Option) (*Reader, error) {
	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, err
	}

	r := &Reader{handle: handle, metric: MetricPacketSize, isLive: true}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Read drains a capture file and returns all packets as samples. Live
// captures never end, so they must be consumed through Stream instead.
func (r *Reader) Read() ([]detectors.Sample, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}
	if r.isLive {
		return nil, errors.New("cannot drain a live capture, use Stream")
	}

	var samples []detectors.Sample
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	for packet := range packetSource.Packets() {
		if s, ok := r.extract(packet); ok {
			samples = append(samples, s)
		}
	}

	return samples, nil
}

// Stream returns a channel of samples for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan detectors.Sample, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}

	out := make(chan detectors.Sample, 1000)
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-packetSource.Packets():
				if !ok {
					return
				}
				s, ok := r.extract(packet)
				if !ok {
					continue
				}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.handle != nil {
		r.handle.Close()
	}
	return nil
}

// extract converts a packet to a sample using the configured metric.
func (r *Reader) extract(packet gopacket.Packet) (detectors.Sample, bool) {
	var ts time.Time
	if metadata := packet.Metadata(); metadata != nil {
		ts = metadata.Timestamp
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	s := detectors.Sample{Timestamp: ts.UnixMicro()}

	switch r.metric {
	case MetricInterArrival:
		if !r.lastTimestamp.IsZero() {
			s.Value = ts.Sub(r.lastTimestamp).Seconds()
		}
		r.lastTimestamp = ts
	default:
		s.Value = float64(len(packet.Data()))
	}

	return s, true
}
