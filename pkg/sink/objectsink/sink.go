// Package objectsink implements an operator that rolls tuples into objects
// and uploads them to an object store.
package objectsink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/compression"
	"github.com/user/objectstorage/pkg/objectstore"
	"github.com/user/objectstorage/pkg/schema"
	"github.com/user/objectstorage/pkg/tuple"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StatusSchema describes the tuples emitted once per uploaded object.
var StatusSchema = schema.MustParse("tuple<rstring objectName, uint64 objectSize>")

var ErrClosed = errors.New("object sink closed")

// Close reasons reported in metrics and spans.
const (
	reasonSize     = "size"
	reasonTuples   = "tuples"
	reasonTime     = "time"
	reasonPunct    = "punct"
	reasonShutdown = "shutdown"
)

// DefaultCloseTimeout bounds uploads that run outside a caller's context:
// the flush in Close and timer-driven closes.
const DefaultCloseTimeout = 10 * time.Second

var tracer = otel.Tracer("github.com/user/objectstorage/pkg/sink/objectsink")

type pendingObject struct {
	name   string
	data   []byte
	tuples int64
	reason string
}

// Sink writes tuples of one schema into rolling objects.
type Sink struct {
	store      objectstore.Storage
	schema     *schema.Schema
	params     Params
	compressor compression.Compressor
	status     objectstorage.Emitter
	logger     objectstorage.Logger
	id         string
	now        func() time.Time

	closeTimeout time.Duration

	mu        sync.Mutex
	enc       encoder
	openedAt  time.Time
	tuples    int64
	objectNum int
	timer     *time.Timer
	epoch     int
	pending   *pendingObject
	// retry is the tuple whose Write encoded it but failed to upload the
	// object it closed. Writing it again only retries the upload.
	retry  objectstorage.Tuple
	closed bool
}

// NewSink validates params and prepares a sink writing to store.
func NewSink(store objectstore.Storage, s *schema.Schema, params map[string]any) (*Sink, error) {
	p, err := ParseParams(params)
	if err != nil {
		return nil, err
	}
	c, err := compression.NewCompressor(p.Compression)
	if err != nil {
		return nil, err
	}
	if p.StorageFormat == FormatParquet {
		if _, err := s.ParquetSchema(""); err != nil {
			return nil, err
		}
	}
	return &Sink{
		store:      store,
		schema:     s,
		params:     p,
		compressor: c,
		logger:     nopLogger{},
		id:         "objectsink",
		now:        time.Now,

		closeTimeout: DefaultCloseTimeout,
	}, nil
}

// SetStatusEmitter sets the output receiving one status tuple per object.
func (s *Sink) SetStatusEmitter(e objectstorage.Emitter) {
	s.status = e
}

// SetLogger sets the logger for the sink.
func (s *Sink) SetLogger(logger objectstorage.Logger) {
	s.logger = logger
}

// SetID sets the operator ID used in logs and metrics.
func (s *Sink) SetID(id string) {
	s.id = id
}

// SetCloseTimeout bounds the uploads done by Close and by the time policy.
func (s *Sink) SetCloseTimeout(d time.Duration) {
	if d > 0 {
		s.closeTimeout = d
	}
}

// Params returns the validated configuration.
func (s *Sink) Params() Params {
	return s.params
}

// Write adds t to the open object, opening one when needed, and closes the
// object when the configured size or tuple count is reached.
//
// When an upload fails the finished object is kept and the upload is retried
// on the next Write or Drain. Writing again the tuple whose Write failed
// that way only retries the pending upload.
func (s *Sink) Write(ctx context.Context, t objectstorage.Tuple) error {
	if t == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.pending != nil {
		if err := s.upload(ctx); err != nil {
			return err
		}
	}
	if s.retry != nil {
		retried := s.retry == t
		s.retry = nil
		if retried {
			return nil
		}
	}

	if s.enc == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if err := s.enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode tuple %s: %w", t.ID(), err)
	}
	s.tuples++

	var err error
	switch {
	case s.params.BytesPerObject > 0 && s.enc.Written() >= s.params.BytesPerObject:
		err = s.closeObject(ctx, reasonSize)
	case s.params.TuplesPerObject > 0 && s.tuples >= s.params.TuplesPerObject:
		err = s.closeObject(ctx, reasonTuples)
	}
	if err != nil {
		s.retry = t
	}
	return err
}

// Drain handles final punctuation: the open object, if any, is closed.
func (s *Sink) Drain(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		if err := s.upload(ctx); err != nil {
			return err
		}
	}
	s.retry = nil
	if s.enc == nil || !s.params.CloseOnPunct {
		return nil
	}
	return s.closeObject(ctx, reasonPunct)
}

func (s *Sink) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("object store %s unreachable: %w", s.store.Type(), err)
	}
	return nil
}

// Close uploads the open object and stops the sink. The upload is bounded
// by the close timeout.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stopTimer()

	ctx, cancel := context.WithTimeout(context.Background(), s.closeTimeout)
	defer cancel()
	if s.pending != nil {
		if err := s.upload(ctx); err != nil {
			return err
		}
	}
	if s.enc != nil {
		return s.closeObject(ctx, reasonShutdown)
	}
	return nil
}

func (s *Sink) open() error {
	enc, err := newEncoder(s.params, s.schema)
	if err != nil {
		return err
	}
	s.enc = enc
	s.tuples = 0
	s.openedAt = s.now()
	s.epoch++

	if s.params.TimePerObject > 0 {
		epoch := s.epoch
		s.timer = time.AfterFunc(s.params.TimePerObject, func() { s.closeOnTimer(epoch) })
	}
	s.logger.Debug("Object opened", "sink_id", s.id, "object_num", s.objectNum)
	return nil
}

func (s *Sink) closeOnTimer(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.enc == nil || s.epoch != epoch {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.closeTimeout)
	defer cancel()
	if err := s.closeObject(ctx, reasonTime); err != nil {
		s.logger.Error("Failed to close object on timer", "sink_id", s.id, "error", err)
	}
}

func (s *Sink) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// closeObject finishes the open object and uploads it. Callers hold s.mu.
func (s *Sink) closeObject(ctx context.Context, reason string) error {
	s.stopTimer()

	data, err := s.enc.Finish()
	if err != nil {
		return err
	}
	data, err = s.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress object: %w", err)
	}

	s.pending = &pendingObject{
		name:   ObjectName(s.params.ObjectName, s.objectNum, s.openedAt),
		data:   data,
		tuples: s.tuples,
		reason: reason,
	}
	s.enc = nil
	s.tuples = 0
	return s.upload(ctx)
}

// upload stores the pending object and emits its status tuple.
func (s *Sink) upload(ctx context.Context) error {
	obj := s.pending

	ctx, span := tracer.Start(ctx, "objectsink.close")
	defer span.End()
	span.SetAttributes(
		attribute.String("sink_id", s.id),
		attribute.String("object_name", obj.name),
		attribute.String("reason", obj.reason),
		attribute.Int64("tuples", obj.tuples),
		attribute.String("store", s.store.Type()),
	)

	size, err := s.store.Put(ctx, obj.name, bytes.NewReader(obj.data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		UploadErrors.WithLabelValues(s.id).Inc()
		s.logger.Error("Object upload failed", "sink_id", s.id, "object_name", obj.name, "error", err)
		return fmt.Errorf("failed to upload object %s: %w", obj.name, err)
	}
	span.SetAttributes(attribute.Int64("object_size", size))

	s.pending = nil
	s.objectNum++
	ObjectsClosed.WithLabelValues(s.id, obj.reason).Inc()
	BytesUploaded.WithLabelValues(s.id).Add(float64(size))
	ObjectSize.WithLabelValues(s.id).Observe(float64(size))
	s.logger.Info("Object closed",
		"sink_id", s.id,
		"object_name", obj.name,
		"object_size", size,
		"tuples", obj.tuples,
		"reason", obj.reason,
	)

	if s.status == nil {
		return nil
	}
	st, err := tuple.New(StatusSchema, obj.name, uint64(size))
	if err != nil {
		return err
	}
	st.SetID(fmt.Sprintf("%s-status-%d", s.id, s.objectNum-1))
	if err := s.status.Emit(ctx, st); err != nil {
		return fmt.Errorf("failed to emit status for %s: %w", obj.name, err)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
