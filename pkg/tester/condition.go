// Package tester runs a topology under a deadline and checks conditions
// over its output streams.
package tester

import (
	"fmt"
	"strings"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/topology"
	"github.com/user/objectstorage/pkg/tuple"
)

// Checker is the type-independent part of a Condition.
type Checker interface {
	Valid() bool
	String() string
}

// Condition is a check over a stream evaluated after a run.
// Result returns the observed value the check is based on.
type Condition[T any] interface {
	Checker
	Result() T
}

type countCondition struct {
	stream *topology.Stream
	n      int
	exact  bool
}

// AtLeastTupleCount holds when stream has received n or more tuples.
func AtLeastTupleCount(stream *topology.Stream, n int) Condition[int] {
	return &countCondition{stream: stream, n: n}
}

// TupleCount holds when stream has received exactly n tuples.
func TupleCount(stream *topology.Stream, n int) Condition[int] {
	return &countCondition{stream: stream, n: n, exact: true}
}

func (c *countCondition) Result() int {
	return c.stream.Len()
}

func (c *countCondition) Valid() bool {
	if c.exact {
		return c.Result() == c.n
	}
	return c.Result() >= c.n
}

func (c *countCondition) String() string {
	kind := "at least"
	if c.exact {
		kind = "exactly"
	}
	return fmt.Sprintf("%s %d tuples on stream %s, received %d", kind, c.n, c.stream.Name(), c.Result())
}

type contentsCondition struct {
	stream   *topology.Stream
	expected []objectstorage.Tuple
}

// TupleContents holds when the expected tuples appear on stream in the given
// order. Other tuples may be interleaved.
func TupleContents(stream *topology.Stream, expected ...objectstorage.Tuple) Condition[[]objectstorage.Tuple] {
	return &contentsCondition{stream: stream, expected: expected}
}

func (c *contentsCondition) Result() []objectstorage.Tuple {
	return c.stream.Tuples()
}

func (c *contentsCondition) Valid() bool {
	i := 0
	for _, t := range c.Result() {
		if i == len(c.expected) {
			break
		}
		if tuple.Equal(t, c.expected[i]) {
			i++
		}
	}
	return i == len(c.expected)
}

func (c *contentsCondition) String() string {
	return fmt.Sprintf("stream %s contains %s in order, received %s",
		c.stream.Name(), formatTuples(c.expected), formatTuples(c.Result()))
}

func formatTuples(ts []objectstorage.Tuple) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = tuple.Format(t)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
