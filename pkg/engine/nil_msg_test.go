package engine

import (
	"context"
	"io"
	"testing"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/buffer"
)

type nilTupleSource struct {
	objectstorage.Source
	reads int
}

func (s *nilTupleSource) Read(ctx context.Context) (objectstorage.Tuple, error) {
	s.reads++
	switch s.reads {
	case 1:
		return nil, nil // Yield a nil tuple
	case 2:
		return newTuple("after-nil"), nil
	}
	return nil, io.EOF
}

func (s *nilTupleSource) Ping(ctx context.Context) error                      { return nil }
func (s *nilTupleSource) Ack(ctx context.Context, t objectstorage.Tuple) error { return nil }
func (s *nilTupleSource) Close() error                                        { return nil }

func TestNilTupleHandling(t *testing.T) {
	src := &nilTupleSource{}
	snk := &mockSink{}
	buf := buffer.NewRingBuffer(10)

	eng := NewEngine(src, []objectstorage.Sink{snk}, buf)
	eng.SetIDs("topology-1", "src-1", []string{"snk-1"})
	eng.SetLogger(NewDefaultLogger())

	// Should not panic
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Engine stopped with error: %v", err)
	}
	if got := snk.Received(); len(got) != 1 || got[0] != "after-nil" {
		t.Errorf("expected only the non-nil tuple, got %v", got)
	}
}
