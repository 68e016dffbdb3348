// Package ostest is the base fixture of the object storage sink tests. A
// Case supplies test data and sink parameters; the fixture binds them to a
// backend, builds the topology and runs it under the tester.
package ostest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/internal/config"
	"github.com/user/objectstorage/pkg/engine"
	"github.com/user/objectstorage/pkg/objectstore"
	"github.com/user/objectstorage/pkg/schema"
	"github.com/user/objectstorage/pkg/sink/objectsink"
	csvsource "github.com/user/objectstorage/pkg/source/csv"
	"github.com/user/objectstorage/pkg/source/inject"
	"github.com/user/objectstorage/pkg/tester"
	"github.com/user/objectstorage/pkg/topology"
	"github.com/user/objectstorage/pkg/tuple"
)

// Case is implemented by each sink test.
type Case interface {
	// InitTestData loads the tuples to inject, see Fixture.LoadTuples and
	// Fixture.SetTestStream.
	InitTestData(f *Fixture) error
	// GenTestSpecificParams fills the sink parameters.
	GenTestSpecificParams(f *Fixture, params map[string]any)
	TestTimeout() time.Duration
}

// State tracks a fixture through one test.
type State int

const (
	StateInit State = iota
	StateDataLoaded
	StateTopologyBuilt
	StateRunning
	StateCompleted
	StateTimedOut
	StateFailed
)

var stateNames = [...]string{"INIT", "DATA_LOADED", "TOPOLOGY_BUILT", "RUNNING", "COMPLETED", "TIMED_OUT", "FAILED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var StatusSchema = schema.MustParse(StatusSchemaDecl)

// Fixture holds everything one test builds. Fixtures are never shared
// between tests.
type Fixture struct {
	t      testing.TB
	c      Case
	Config *config.Config

	DataDir          string
	TestDataFileName string
	TupleRate        float64

	Protocol string
	Params   map[string]any
	Topology *topology.Topology
	Store    objectstore.Storage
	Sink     *objectsink.Sink

	schema     *schema.Schema
	source     *inject.Source
	traceLevel string
	ctxType    topology.ContextType
	live       bool
	state      State
}

// New creates the fixture for c. Configuration comes from OSTEST_CONFIG and
// OSTEST_* variables; test data defaults to the testdata directory next to
// this package.
func New(t testing.TB, c Case) *Fixture {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load test configuration: %v", err)
	}
	dir := cfg.TestData.Dir
	if dir == "" {
		dir = defaultDataDir()
	}
	return &Fixture{
		t:       t,
		c:       c,
		Config:  cfg,
		DataDir: dir,
		state:   StateInit,
	}
}

func defaultDataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata")
}

func (f *Fixture) State() State {
	return f.state
}

// Live reports whether the built topology writes to a configured endpoint.
func (f *Fixture) Live() bool {
	return f.live
}

// LoadTuples reads the configured test-data file with the given schema.
func (f *Fixture) LoadTuples(schemaDecl string) ([]objectstorage.Tuple, error) {
	if f.TestDataFileName == "" {
		return nil, errors.New("no test data file name set")
	}
	return csvsource.LoadTuples(f.DataDir, f.TestDataFileName, TestDataFileDelimiter, schemaDecl)
}

// SetTestStream makes tuples the injected stream, paced at TupleRate.
func (f *Fixture) SetTestStream(tuples []objectstorage.Tuple, schemaDecl string) error {
	s, err := schema.Parse(schemaDecl)
	if err != nil {
		return err
	}
	src, err := inject.NewSource(tuples, s, f.TupleRate)
	if err != nil {
		return err
	}
	f.schema = s
	f.source = src
	return nil
}

// Build loads the test data, generates the sink parameters and assembles
// the topology for backend and bucket.
func (f *Fixture) Build(ctx context.Context, testName, traceLevel string, ctxType topology.ContextType, backend, bucket string) error {
	if f.state != StateInit {
		return fmt.Errorf("fixture already built, state %s", f.state)
	}
	protocol, err := Protocol(backend)
	if err != nil {
		return err
	}
	f.Protocol = protocol

	if err := f.c.InitTestData(f); err != nil {
		f.state = StateFailed
		return fmt.Errorf("loading test data: %w", err)
	}
	if f.source == nil {
		f.state = StateFailed
		return errors.New("loading test data: no test stream set")
	}
	f.state = StateDataLoaded

	params := make(map[string]any)
	f.c.GenTestSpecificParams(f, params)
	f.Params = params

	store, err := f.openStore(ctx, strings.ToUpper(backend), protocol, bucket)
	if err != nil {
		f.state = StateFailed
		return fmt.Errorf("opening %s store: %w", backend, err)
	}
	f.Store = store

	snk, err := objectsink.NewSink(store, f.schema, params)
	if err != nil {
		f.state = StateFailed
		return fmt.Errorf("building sink: %w", err)
	}

	topo := topology.New(testName)
	snk.SetStatusEmitter(topo.Status())
	snk.SetLogger(engine.NewLevelLogger(traceLevel))
	snk.SetID(protocol + "ObjectSink")
	topo.SetSource(f.source)
	topo.AddSink(protocol+"ObjectSink", snk)

	f.Sink = snk
	f.Topology = topo
	f.traceLevel = traceLevel
	f.ctxType = ctxType
	f.state = StateTopologyBuilt
	return nil
}

// Complete runs the built topology under timeout and evaluates conds.
func (f *Fixture) Complete(ctx context.Context, timeout time.Duration, conds ...tester.Checker) error {
	if f.state != StateTopologyBuilt {
		return fmt.Errorf("topology not built, state %s", f.state)
	}
	f.state = StateRunning

	err := tester.CompleteIn(ctx, f.Topology, f.ctxType, f.traceLevel, timeout, conds...)
	switch {
	case err == nil:
		f.state = StateCompleted
	case errors.Is(err, tester.ErrTimeout):
		f.state = StateTimedOut
	case errors.Is(err, tester.ErrConditionFailed):
		f.state = StateCompleted
	default:
		f.state = StateFailed
	}
	return err
}

// ExpectedObjectName is the reported name of the first object: the
// objectName template with %OBJECTNUM set to 0, prefixed with "/".
func (f *Fixture) ExpectedObjectName() string {
	template, _ := f.Params[objectsink.ParamObjectName].(string)
	return "/" + strings.ReplaceAll(template, objectsink.PlaceholderObjectNum, "0")
}

// StatusTuple builds a tuple of the sink status schema.
func StatusTuple(name string, size uint64) objectstorage.Tuple {
	return tuple.MustNew(StatusSchema, name, size)
}
