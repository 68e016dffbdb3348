package topology

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/schema"
	"github.com/user/objectstorage/pkg/source/inject"
	"github.com/user/objectstorage/pkg/tuple"
)

var testSchema = schema.MustParse("tuple<rstring name, int32 n>")

func makeTuples(n int) []objectstorage.Tuple {
	out := make([]objectstorage.Tuple, n)
	for i := range out {
		out[i] = tuple.MustNew(testSchema, fmt.Sprintf("t%d", i), int32(i))
	}
	return out
}

// countingSink emits one status tuple per batch of tuples and on drain.
type countingSink struct {
	status  objectstorage.Emitter
	batch   int
	mu      sync.Mutex
	pending int
	total   int
	closed  bool
}

func (s *countingSink) flush(ctx context.Context) error {
	if s.pending == 0 {
		return nil
	}
	st := tuple.MustNew(testSchema, "batch", int32(s.pending))
	s.pending = 0
	return s.status.Emit(ctx, st)
}

func (s *countingSink) Write(ctx context.Context, t objectstorage.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
	s.total++
	if s.pending == s.batch {
		return s.flush(ctx)
	}
	return nil
}

func (s *countingSink) Drain(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

func (s *countingSink) Ping(ctx context.Context) error { return nil }

func (s *countingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestTopologyRun(t *testing.T) {
	topo := New("TestTopologyRun")
	require.NotEmpty(t, topo.ID)

	src, err := inject.NewSource(makeTuples(10), testSchema, 0)
	require.NoError(t, err)
	snk := &countingSink{status: topo.Status(), batch: 4}

	topo.SetSource(src)
	topo.AddSink("counter", snk)

	require.NoError(t, topo.Run(context.Background(), Standalone, "error"))

	assert.Equal(t, 10, snk.total)
	assert.True(t, snk.closed)

	st := topo.Status().Tuples()
	require.Len(t, st, 3)
	for i, want := range []int32{4, 4, 2} {
		n, _ := st[i].Get("n")
		assert.Equal(t, want, n, "status tuple %d", i)
	}
}

func TestTopologyRunDistributed(t *testing.T) {
	topo := New("dist")
	src, err := inject.NewSource(makeTuples(1), testSchema, 0)
	require.NoError(t, err)
	topo.SetSource(src)
	topo.AddSink("counter", &countingSink{status: topo.Status(), batch: 1})

	err = topo.Run(context.Background(), Distributed, "info")
	assert.ErrorIs(t, err, ErrUnsupportedContext)
	assert.Equal(t, 0, topo.Status().Len())
}

func TestTopologyRunIncomplete(t *testing.T) {
	assert.Error(t, New("empty").Run(context.Background(), Standalone, "info"))
}

func TestTopologyRunDeadline(t *testing.T) {
	topo := New("slow")
	// 1000 tuples at 50/s cannot finish in 100ms
	src, err := inject.NewSource(makeTuples(1000), testSchema, 50)
	require.NoError(t, err)
	snk := &countingSink{status: topo.Status(), batch: 1000}
	topo.SetSource(src)
	topo.AddSink("counter", snk)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = topo.Run(ctx, Standalone, "error")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, topo.Status().Len(), "sinks must not be drained on deadline")
	assert.True(t, snk.closed)
}

func TestStream(t *testing.T) {
	s := NewStream("out")
	assert.Equal(t, "out", s.Name())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Emit(context.Background(), makeTuples(1)[0])
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(s.Emit(ctx, makeTuples(1)[0]), context.Canceled))
	assert.Len(t, s.Tuples(), 20)
}

func TestContextTypeString(t *testing.T) {
	assert.Equal(t, "STANDALONE", Standalone.String())
	assert.Equal(t, "DISTRIBUTED", Distributed.String())
	assert.Equal(t, "ContextType(7)", ContextType(7).String())
}
