package server

import "github.com/prometheus/client_golang/prometheus"

var (
	mSamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_samples_total",
		Help: "Samples ingested across all connections",
	})
	mAnomaliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_anomalies_total",
		Help: "Samples classified as anomalies",
	})
	mDriftsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_drifts_total",
		Help: "Ingest calls on which a drift cut occurred",
	})
	mInvalidTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_invalid_samples_total",
		Help: "Samples rejected as invalid",
	})
	mWindowSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "driftwatch_window_size",
		Help: "Adaptive window size after the most recent ingest",
	})
	mZScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "driftwatch_zscore",
		Help: "Z-score of the most recent sample",
	})
)

func init() {
	prometheus.MustRegister(
		mSamplesTotal,
		mAnomaliesTotal,
		mDriftsTotal,
		mInvalidTotal,
		mWindowSize,
		mZScore,
	)
}
