package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TuplesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_engine_tuples_processed_total",
		Help: "The total number of tuples written to every sink",
	}, []string{"topology_id", "source_id"})

	TupleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_engine_tuple_errors_total",
		Help: "The total number of tuple processing errors",
	}, []string{"topology_id", "source_id", "stage"})

	SinkWriteCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_engine_sink_writes_total",
		Help: "The total number of successful sink writes",
	}, []string{"topology_id", "sink_id"})

	SinkWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_engine_sink_write_errors_total",
		Help: "The total number of sink write errors",
	}, []string{"topology_id", "sink_id"})

	SinkDrains = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_engine_sink_drains_total",
		Help: "The total number of final punctuations delivered to sinks",
	}, []string{"topology_id", "sink_id"})

	ActiveEngines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "objectstorage_engine_active_total",
		Help: "The total number of active engines",
	})

	ProcessingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "objectstorage_engine_processing_duration_seconds",
		Help:    "Time taken to process a tuple from buffer to sinks",
		Buckets: prometheus.DefBuckets,
	}, []string{"topology_id"})
)
