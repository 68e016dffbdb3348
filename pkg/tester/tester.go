package tester

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/objectstorage/pkg/topology"
)

var (
	// ErrTimeout reports that the run did not finish before its deadline.
	ErrTimeout = errors.New("topology did not complete before timeout")
	// ErrConditionFailed reports a completed run whose conditions do not hold.
	ErrConditionFailed = errors.New("condition not met")
)

// Complete runs topo in a standalone context until it quiesces or timeout
// elapses, then evaluates conds. Errors carry the descriptions of the
// conditions that do not hold.
func Complete(ctx context.Context, topo *topology.Topology, traceLevel string, timeout time.Duration, conds ...Checker) error {
	return CompleteIn(ctx, topo, topology.Standalone, traceLevel, timeout, conds...)
}

// CompleteIn is Complete with an explicit context type.
func CompleteIn(ctx context.Context, topo *topology.Topology, ctxType topology.ContextType, traceLevel string, timeout time.Duration, conds ...Checker) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := topo.Run(runCtx, ctxType, traceLevel)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s: %s", ErrTimeout, topo.Name, timeout, describe(conds, false))
	}
	if err != nil {
		return fmt.Errorf("topology %s failed: %w", topo.Name, err)
	}

	if failed := describe(conds, true); failed != "" {
		return fmt.Errorf("%w: %s", ErrConditionFailed, failed)
	}
	return nil
}

// describe joins the condition descriptions, only the invalid ones when
// onlyInvalid is set.
func describe(conds []Checker, onlyInvalid bool) string {
	var parts []string
	for _, c := range conds {
		if onlyInvalid && c.Valid() {
			continue
		}
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "; ")
}
