package objectstorage

import "context"

// Tuple is a single stream element bound to a declared schema.
// Using interface to allow pooled and test implementations.
type Tuple interface {
	ID() string
	Attributes() []string
	Get(name string) (any, bool)
	Values() []any
	Data() map[string]any
	Clone() Tuple
	String() string
}

// Producer defines the interface for handing tuples to a buffer.
type Producer interface {
	Produce(ctx context.Context, t Tuple) error
	Close() error
}

// Consumer defines the interface for receiving tuples from a buffer.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Source defines the interface for reading tuples into a topology.
// Finite sources return io.EOF once every tuple has been delivered.
type Source interface {
	Read(ctx context.Context) (Tuple, error)
	Ack(ctx context.Context, t Tuple) error
	Ping(ctx context.Context) error
	Close() error
}

// Sink defines the interface for an operator consuming tuples.
type Sink interface {
	Write(ctx context.Context, t Tuple) error
	Ping(ctx context.Context) error
	Close() error
}

// Drainer is implemented by sinks that hold state until the stream ends.
// Drain is called once after the final tuple (final punctuation).
type Drainer interface {
	Drain(ctx context.Context) error
}

// Emitter receives tuples produced on an operator output port.
type Emitter interface {
	Emit(ctx context.Context, t Tuple) error
}

// Formatter renders one tuple as a record of a row-oriented object.
type Formatter interface {
	Format(t Tuple) ([]byte, error)
}

// Logger defines the interface for logging.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Handler is a function type for processing received tuples.
type Handler func(ctx context.Context, t Tuple) error
