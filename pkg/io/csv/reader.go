// Package csv provides CSV file reading for sample streams.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/hed1ad/driftwatch/pkg/detectors"
)

// Reader reads timestamp,value samples from CSV files. Files without a
// timestamp column get sequential timestamps starting at zero.
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	hasHeader bool
	headers   []string
	seq       int64
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// NewReader creates a new CSV reader.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:      file,
		reader:    csv.NewReader(file),
		hasHeader: true,
	}
	r.reader.FieldsPerRecord = -1

	for _, opt := range opts {
		opt(r)
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			return nil, err
		}
		r.headers = headers
	}

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns all samples in the file.
func (r *Reader) Read() ([]detectors.Sample, error) {
	var samples []detectors.Sample

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		s, err := r.parseRecord(record)
		if err != nil {
			continue // Skip malformed rows
		}
		samples = append(samples, s)
	}

	return samples, nil
}

// Stream returns a channel of samples for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan detectors.Sample, error) {
	out := make(chan detectors.Sample, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := r.reader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}

				s, err := r.parseRecord(record)
				if err != nil {
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
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// parseRecord converts a CSV record to a sample. Two columns are read as
// timestamp,value; one column as a bare value.
func (r *Reader) parseRecord(record []string) (detectors.Sample, error) {
	switch len(record) {
	case 1:
		v, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return detectors.Sample{}, err
		}
		s := detectors.Sample{Timestamp: r.seq, Value: v}
		r.seq++
		return s, nil
	case 2:
		ts, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return detectors.Sample{}, err
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return detectors.Sample{}, err
		}
		return detectors.Sample{Timestamp: ts, Value: v}, nil
	default:
		return detectors.Sample{}, errors.New("expected 1 or 2 columns")
	}
}
