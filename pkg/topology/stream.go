package topology

import (
	"context"
	"sync"

	"github.com/user/objectstorage"
)

// Stream collects the tuples emitted on an operator output port.
// It is safe for concurrent use.
type Stream struct {
	name string

	mu     sync.RWMutex
	tuples []objectstorage.Tuple
}

func NewStream(name string) *Stream {
	return &Stream{name: name}
}

func (s *Stream) Name() string {
	return s.name
}

// Emit appends t to the stream.
func (s *Stream) Emit(ctx context.Context, t objectstorage.Tuple) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuples = append(s.tuples, t)
	return nil
}

// Tuples returns a snapshot of the emitted tuples in emission order.
func (s *Stream) Tuples() []objectstorage.Tuple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]objectstorage.Tuple, len(s.tuples))
	copy(out, s.tuples)
	return out
}

func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tuples)
}
