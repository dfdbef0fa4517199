package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hed1ad/driftwatch/pkg/detectors/zscore"
	driftio "github.com/hed1ad/driftwatch/pkg/io"
	csvio "github.com/hed1ad/driftwatch/pkg/io/csv"
	pcapio "github.com/hed1ad/driftwatch/pkg/io/pcap"
)

var (
	replayFormat    string
	replayMetric    string
	replayDelta     float64
	replayThreshold float64
	replayMinWindow int
	replayAll       bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Run a recorded stream through the detector offline",
	Long: `Replay reads samples from a CSV file (timestamp,value rows) or a
packet capture and prints one JSON result per line. By default only
anomalies and drift cuts are printed; --all prints every sample.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		det, err := zscore.New(
			zscore.WithDelta(replayDelta),
			zscore.WithThreshold(replayThreshold),
			zscore.WithMinWindow(replayMinWindow),
		)
		if err != nil {
			return err
		}

		samples, err := reader.Read()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		var anomalies, drifts int
		for _, s := range samples {
			ev, err := det.Ingest(s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping sample: %v\n", err)
				continue
			}
			if ev.IsAnomaly {
				anomalies++
			}
			if ev.IsDrift {
				drifts++
			}
			if replayAll || ev.IsAnomaly || ev.IsDrift {
				if err := enc.Encode(driftio.ResultFromEvent(ev)); err != nil {
					return err
				}
			}
		}

		fmt.Fprintf(os.Stderr, "%d samples, %d anomalies, %d drift cuts\n",
			len(samples), anomalies, drifts)
		return nil
	},
}

// openReader picks a sample source from the format flag or the file
// extension.
func openReader(path string) (driftio.SampleReader, error) {
	format := replayFormat
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pcap", ".pcapng":
			format = "pcap"
		default:
			format = "csv"
		}
	}

	switch format {
	case "csv":
		return csvio.NewReader(path)
	case "pcap":
		metric := pcapio.MetricPacketSize
		if replayMetric == "interarrival" {
			metric = pcapio.MetricInterArrival
		}
		return pcapio.NewFileReader(path, pcapio.WithMetric(metric))
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func init() {
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "", "input format: csv or pcap (default from extension)")
	replayCmd.Flags().StringVar(&replayMetric, "metric", "size", "pcap metric: size or interarrival")
	replayCmd.Flags().Float64Var(&replayDelta, "delta", 0.002, "drift confidence parameter")
	replayCmd.Flags().Float64Var(&replayThreshold, "threshold", 3.0, "anomaly z-score threshold")
	replayCmd.Flags().IntVar(&replayMinWindow, "min-window", 2, "minimum window size before classification")
	replayCmd.Flags().BoolVarP(&replayAll, "all", "a", false, "print every sample, not just detections")
}
