package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/objectstorage"
)

// Engine orchestrates the data flow from Source to Sinks.
type Engine struct {
	source objectstorage.Source
	sinks  []objectstorage.Sink
	buffer objectstorage.Producer // Using Producer as a buffer
	logger objectstorage.Logger
	config Config

	topologyID string
	sourceID   string
	sinkIDs    []string
}

// Config holds configuration for the Engine.
type Config struct {
	MaxRetries    int
	RetryInterval time.Duration
	// ShutdownGrace bounds how long buffered tuples are still written after
	// the run context is done. In-flight sink writes are cancelled after it.
	ShutdownGrace time.Duration
}

// DefaultShutdownGrace is used when Config.ShutdownGrace is not positive.
const DefaultShutdownGrace = 2 * time.Second

// DefaultConfig returns the default configuration for the Engine.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		ShutdownGrace: DefaultShutdownGrace,
	}
}

func NewEngine(source objectstorage.Source, sinks []objectstorage.Sink, buffer objectstorage.Producer) *Engine {
	return &Engine{
		source: source,
		sinks:  sinks,
		buffer: buffer,
		logger: NewDefaultLogger(),
		config: DefaultConfig(),
	}
}

// SetConfig sets the configuration for the engine.
func (e *Engine) SetConfig(config Config) {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = DefaultShutdownGrace
	}
	e.config = config
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger objectstorage.Logger) {
	e.logger = logger
}

// SetIDs sets the IDs for topology, source and sinks.
func (e *Engine) SetIDs(topologyID string, sourceID string, sinkIDs []string) {
	e.topologyID = topologyID
	e.sourceID = sourceID
	e.sinkIDs = sinkIDs
}

func (e *Engine) sinkID(i int) string {
	if i < len(e.sinkIDs) {
		return e.sinkIDs[i]
	}
	return fmt.Sprintf("sink-%d", i)
}

// preflight pings the source and every sink, retrying each up to MaxRetries times.
func (e *Engine) preflight(ctx context.Context) error {
	ping := func(what string, fn func(context.Context) error) error {
		var err error
		for j := 0; j < e.config.MaxRetries; j++ {
			if err = fn(ctx); err == nil {
				return nil
			}
			e.logger.Warn("Pre-flight check failed, retrying", "topology_id", e.topologyID, "target", what, "attempt", j+1, "error", err)
			select {
			case <-time.After(time.Duration(j+1) * e.config.RetryInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return fmt.Errorf("%s pre-flight checks failed after %d attempts: %w", what, e.config.MaxRetries, err)
	}

	if err := ping("source", e.source.Ping); err != nil {
		return err
	}
	for i, snk := range e.sinks {
		if err := ping(e.sinkID(i), snk.Ping); err != nil {
			return err
		}
	}
	return nil
}

// Start begins the data transfer process.
//
// It returns nil once a finite source has reported io.EOF, every buffered
// tuple has been written and every Drainer sink has been drained. When ctx
// is cancelled first, buffered tuples are still written but sinks are not
// drained, and ctx's error is returned. Writes still running
// Config.ShutdownGrace after ctx is done are cancelled.
func (e *Engine) Start(ctx context.Context) error {
	ActiveEngines.Inc()
	defer ActiveEngines.Dec()

	e.logger.Info("Starting engine", "topology_id", e.topologyID)

	if err := e.preflight(ctx); err != nil {
		return err
	}

	consumer, ok := e.buffer.(objectstorage.Consumer)
	if !ok {
		return fmt.Errorf("buffer does not implement Consumer interface")
	}

	// readCtx stops the source early when the sink side fails.
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	var exhausted bool

	// Source to Buffer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			t, err := e.source.Read(readCtx)
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					exhausted = true
					e.logger.Info("Source exhausted", "topology_id", e.topologyID, "source_id", e.sourceID)
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					e.logger.Info("Source-to-Buffer worker stopping due to context cancellation", "topology_id", e.topologyID)
				default:
					e.logger.Error("Source read error", "topology_id", e.topologyID, "error", err)
					TupleErrors.WithLabelValues(e.topologyID, e.sourceID, "read").Inc()
					errCh <- fmt.Errorf("source read error: %w", err)
				}
				return
			}
			if t == nil {
				continue
			}

			e.logger.Debug("Tuple received from source",
				"topology_id", e.topologyID,
				"source_id", e.sourceID,
				"action", "read",
				"tuple_id", t.ID(),
			)

			if err := e.buffer.Produce(readCtx, t); err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					e.logger.Error("Buffer produce error", "topology_id", e.topologyID, "error", err)
					errCh <- fmt.Errorf("buffer produce error: %w", err)
				}
				return
			}
		}
	}()

	// Wait for Source worker to finish then close buffer
	go func() {
		wg.Wait()
		if err := e.buffer.Close(); err != nil {
			e.logger.Error("Error closing buffer", "topology_id", e.topologyID, "error", err)
		}
	}()

	// Buffer to Sink. Uses a separate context so buffered tuples are still
	// written after ctx is cancelled, until the shutdown grace expires.
	drainCtx, stopWriting := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWriting()
	go e.expireGrace(ctx, drainCtx, stopWriting)

	err := consumer.Consume(drainCtx, func(drainCtx context.Context, t objectstorage.Tuple) error {
		start := time.Now()
		for i, snk := range e.sinks {
			if err := e.write(ctx, drainCtx, i, snk, t); err != nil {
				return err
			}
		}

		// Acknowledge the tuple to the source after all successful sink writes
		if err := e.source.Ack(drainCtx, t); err != nil {
			e.logger.Error("Source acknowledgement failed", "topology_id", e.topologyID, "error", err)
			return fmt.Errorf("source acknowledgement failed: %w", err)
		}

		TuplesProcessed.WithLabelValues(e.topologyID, e.sourceID).Inc()
		ProcessingLatency.WithLabelValues(e.topologyID).Observe(time.Since(start).Seconds())
		return nil
	})
	switch {
	case err != nil && ctx.Err() != nil && drainCtx.Err() != nil:
		stopReading()
		e.logger.Warn("Buffer-to-Sink worker cancelled after shutdown grace",
			"topology_id", e.topologyID,
			"grace", e.config.ShutdownGrace.String(),
			"error", err,
		)
	case err != nil:
		stopReading()
		e.logger.Error("Buffer-to-Sink worker error", "topology_id", e.topologyID, "error", err)
		errCh <- err
	default:
		e.logger.Info("Buffer-to-Sink worker stopping", "topology_id", e.topologyID)
	}

	wg.Wait()

	if err == nil && exhausted && ctx.Err() == nil {
		if derr := e.drain(ctx); derr != nil {
			errCh <- derr
		}
	}
	close(errCh)

	var lastErr error
	for err := range errCh {
		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		e.logger.Error("Engine stopped with error", "topology_id", e.topologyID, "error", lastErr)
		return lastErr
	}
	if err := ctx.Err(); err != nil {
		e.logger.Info("Engine stopped by cancellation", "topology_id", e.topologyID)
		return err
	}

	e.logger.Info("Engine stopped gracefully", "topology_id", e.topologyID)
	return nil
}

// expireGrace cancels sink writes once ctx has been done for the shutdown
// grace period.
func (e *Engine) expireGrace(ctx, drainCtx context.Context, stopWriting context.CancelFunc) {
	select {
	case <-ctx.Done():
	case <-drainCtx.Done():
		return
	}
	timer := time.NewTimer(e.config.ShutdownGrace)
	defer timer.Stop()
	select {
	case <-timer.C:
		stopWriting()
	case <-drainCtx.Done():
	}
}

// write delivers t to one sink, retrying with a linear backoff.
func (e *Engine) write(ctx, drainCtx context.Context, i int, snk objectstorage.Sink, t objectstorage.Tuple) error {
	sinkID := e.sinkID(i)

	var lastErr error
	for j := 0; j < e.config.MaxRetries; j++ {
		if err := snk.Write(drainCtx, t); err != nil {
			lastErr = err
			SinkWriteErrors.WithLabelValues(e.topologyID, sinkID).Inc()
			e.logger.Warn("Sink write error, retrying", "topology_id", e.topologyID, "attempt", j+1, "sink_id", sinkID, "error", err)

			select {
			case <-time.After(time.Duration(j+1) * e.config.RetryInterval):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		SinkWriteCount.WithLabelValues(e.topologyID, sinkID).Inc()
		e.logger.Debug("Tuple written to sink",
			"topology_id", e.topologyID,
			"sink_id", sinkID,
			"action", "write",
			"tuple_id", t.ID(),
		)
		return nil
	}

	TupleErrors.WithLabelValues(e.topologyID, e.sourceID, "write").Inc()
	e.logger.Error("Sink write failed after retries", "topology_id", e.topologyID, "sink_id", sinkID, "error", lastErr)
	return fmt.Errorf("sink write error: %w", lastErr)
}

// drain delivers final punctuation to every sink holding state.
func (e *Engine) drain(ctx context.Context) error {
	for i, snk := range e.sinks {
		d, ok := snk.(objectstorage.Drainer)
		if !ok {
			continue
		}
		sinkID := e.sinkID(i)
		if err := d.Drain(ctx); err != nil {
			e.logger.Error("Sink drain failed", "topology_id", e.topologyID, "sink_id", sinkID, "error", err)
			return fmt.Errorf("sink %s drain error: %w", sinkID, err)
		}
		SinkDrains.WithLabelValues(e.topologyID, sinkID).Inc()
		e.logger.Info("Sink drained", "topology_id", e.topologyID, "sink_id", sinkID)
	}
	return nil
}
