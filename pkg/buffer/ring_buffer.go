package buffer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/user/objectstorage"
)

var ErrClosed = errors.New("buffer closed")

// RingBuffer is a bounded, channel backed buffer that implements both
// Producer and Consumer. Closing it stops producers; consumers still receive
// every tuple produced before Close and then return nil.
type RingBuffer struct {
	ch       chan objectstorage.Tuple
	done     chan struct{}
	once     sync.Once
	mu       sync.RWMutex
	closed   bool
	produced atomic.Uint64
	consumed atomic.Uint64
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{
		ch:   make(chan objectstorage.Tuple, size),
		done: make(chan struct{}),
	}
}

func (b *RingBuffer) Produce(ctx context.Context, t objectstorage.Tuple) error {
	// the read lock keeps Close from closing ch under a pending send
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	select {
	case b.ch <- t:
		b.produced.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

func (b *RingBuffer) Consume(ctx context.Context, handler objectstorage.Handler) error {
	for {
		select {
		case t, ok := <-b.ch:
			if !ok {
				return nil
			}
			b.consumed.Add(1)
			if err := handler(ctx, t); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *RingBuffer) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.mu.Lock()
		b.closed = true
		close(b.ch)
		b.mu.Unlock()
	})
	return nil
}

// Len returns the number of buffered tuples.
func (b *RingBuffer) Len() int {
	return len(b.ch)
}

// Produced and Consumed count tuples that passed each side of the buffer.
func (b *RingBuffer) Produced() uint64 { return b.produced.Load() }
func (b *RingBuffer) Consumed() uint64 { return b.consumed.Load() }
