package server

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the detection service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Detector holds the per-connection detector settings.
	Detector DetectorConfig `yaml:"detector"`

	// Stream holds the watch-broadcast settings.
	Stream StreamConfig `yaml:"stream"`
}

// DetectorConfig configures the detectors created for ingest connections.
type DetectorConfig struct {
	// Delta is the drift confidence parameter.
	Delta float64 `yaml:"delta"`
	// Threshold is the |z-score| above which a sample is an anomaly.
	Threshold float64 `yaml:"threshold"`
	// MinWindow is the minimum window size before anomaly classification.
	MinWindow int `yaml:"min_window"`
}

// StreamConfig configures event broadcasting to watch clients.
type StreamConfig struct {
	// BufferSize is the channel buffer size per subscription.
	BufferSize int `yaml:"buffer_size"`
	// PingInterval is how often to ping watch clients.
	PingInterval time.Duration `yaml:"ping_interval"`
	// WriteTimeout bounds WebSocket writes.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		Listen: ":8750",
		Detector: DetectorConfig{
			Delta:     0.002,
			Threshold: 3.0,
			MinWindow: 2,
		},
		Stream: StreamConfig{
			BufferSize:   256,
			PingInterval: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
