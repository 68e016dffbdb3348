// Package topology assembles a source and sinks into a runnable flow.
package topology

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/buffer"
	"github.com/user/objectstorage/pkg/engine"
)

// ContextType selects the runtime a topology is submitted to.
type ContextType int

const (
	// Standalone runs the topology in the current process.
	Standalone ContextType = iota
	// Distributed submits to a cluster; not available in this runtime.
	Distributed
)

func (c ContextType) String() string {
	switch c {
	case Standalone:
		return "STANDALONE"
	case Distributed:
		return "DISTRIBUTED"
	}
	return fmt.Sprintf("ContextType(%d)", int(c))
}

var ErrUnsupportedContext = errors.New("unsupported context type")

const defaultBufferSize = 1024

// Topology is a single source feeding one or more sinks. Sinks report
// through the status stream.
type Topology struct {
	Name string
	ID   string

	source  objectstorage.Source
	sinks   []objectstorage.Sink
	sinkIDs []string
	status  *Stream

	bufferSize int
	config     engine.Config
	logger     objectstorage.Logger
}

func New(name string) *Topology {
	return &Topology{
		Name:       name,
		ID:         uuid.NewString(),
		status:     NewStream(name + ".status"),
		bufferSize: defaultBufferSize,
		config:     engine.DefaultConfig(),
	}
}

// SetSource sets the single source of the topology.
func (t *Topology) SetSource(src objectstorage.Source) {
	t.source = src
}

// AddSink appends a sink; id names it in logs and metrics.
func (t *Topology) AddSink(id string, snk objectstorage.Sink) {
	t.sinks = append(t.sinks, snk)
	t.sinkIDs = append(t.sinkIDs, id)
}

// Status returns the stream sinks emit their status tuples on.
func (t *Topology) Status() *Stream {
	return t.status
}

// SetBufferSize sets the capacity of the buffer between source and sinks.
func (t *Topology) SetBufferSize(n int) {
	t.bufferSize = n
}

// SetEngineConfig sets the retry policy used for sink writes.
func (t *Topology) SetEngineConfig(c engine.Config) {
	t.config = c
}

// SetLogger overrides the level logger created by Run.
func (t *Topology) SetLogger(logger objectstorage.Logger) {
	t.logger = logger
}

// Run executes the topology until the source is exhausted and every sink
// has been drained, or until ctx is done. Source and sinks are closed
// before Run returns.
func (t *Topology) Run(ctx context.Context, ctxType ContextType, traceLevel string) error {
	if ctxType != Standalone {
		return fmt.Errorf("%w: %s", ErrUnsupportedContext, ctxType)
	}
	if t.source == nil {
		return errors.New("topology has no source")
	}
	if len(t.sinks) == 0 {
		return errors.New("topology has no sinks")
	}

	logger := t.logger
	if logger == nil {
		logger = engine.NewLevelLogger(traceLevel)
	}

	eng := engine.NewEngine(t.source, t.sinks, buffer.NewRingBuffer(t.bufferSize))
	eng.SetLogger(logger)
	eng.SetConfig(t.config)
	eng.SetIDs(t.ID, t.Name+".source", t.sinkIDs)

	logger.Info("Running topology", "topology", t.Name, "topology_id", t.ID, "context", ctxType.String())
	runErr := eng.Start(ctx)

	errs := []error{runErr}
	if err := t.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing source: %w", err))
	}
	for i, snk := range t.sinks {
		if err := snk.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing sink %s: %w", t.sinkIDs[i], err))
		}
	}
	return errors.Join(errs...)
}
