package inject

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/schema"
	"golang.org/x/time/rate"
)

// Source replays a fixed sequence of tuples in insertion order, paced to a
// tuple rate. After the last tuple Read returns io.EOF.
type Source struct {
	schema  *schema.Schema
	tuples  []objectstorage.Tuple
	limiter *rate.Limiter

	mu      sync.Mutex
	next    int
	emitted atomic.Int64
	closed  bool
}

// NewSource creates a source over tuples. tuplesPerSecond <= 0 disables pacing.
// Every tuple must carry exactly the attributes of s, in order.
func NewSource(tuples []objectstorage.Tuple, s *schema.Schema, tuplesPerSecond float64) (*Source, error) {
	names := s.Names()
	for i, t := range tuples {
		attrs := t.Attributes()
		if len(attrs) != len(names) {
			return nil, fmt.Errorf("tuple %d has %d attributes, want %d: %w", i, len(attrs), len(names), schema.ErrSchemaMismatch)
		}
		for j := range names {
			if attrs[j] != names[j] {
				return nil, fmt.Errorf("tuple %d attribute %d is %s, want %s: %w", i, j, attrs[j], names[j], schema.ErrSchemaMismatch)
			}
		}
	}

	src := &Source{
		schema: s,
		tuples: tuples,
	}
	if tuplesPerSecond > 0 {
		src.limiter = rate.NewLimiter(rate.Limit(tuplesPerSecond), 1)
	}
	return src, nil
}

func (s *Source) Schema() *schema.Schema {
	return s.schema
}

// Read blocks until the limiter admits the next tuple.
func (s *Source) Read(ctx context.Context) (objectstorage.Tuple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.next >= len(s.tuples) {
		return nil, io.EOF
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			// Wait fails early when the deadline falls before the next slot
			<-ctx.Done()
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := s.tuples[s.next]
	s.next++
	s.emitted.Add(1)
	return t, nil
}

func (s *Source) Ack(ctx context.Context, t objectstorage.Tuple) error {
	return nil
}

func (s *Source) Ping(ctx context.Context) error {
	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Emitted returns the number of tuples delivered so far.
func (s *Source) Emitted() int64 {
	return s.emitted.Load()
}
