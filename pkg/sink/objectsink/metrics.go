package objectsink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ObjectsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_sink_objects_closed_total",
		Help: "The total number of objects closed and uploaded",
	}, []string{"sink_id", "reason"})

	BytesUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_sink_bytes_uploaded_total",
		Help: "The total number of object bytes uploaded",
	}, []string{"sink_id"})

	UploadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objectstorage_sink_upload_errors_total",
		Help: "The total number of failed object uploads",
	}, []string{"sink_id"})

	ObjectSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "objectstorage_sink_object_size_bytes",
		Help:    "Size of uploaded objects",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	}, []string{"sink_id"})
)
