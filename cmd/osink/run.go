package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/user/objectstorage"
	"github.com/user/objectstorage/internal/config"
	"github.com/user/objectstorage/internal/observability"
	"github.com/user/objectstorage/pkg/engine"
	"github.com/user/objectstorage/pkg/objectstore"
	"github.com/user/objectstorage/pkg/schema"
	"github.com/user/objectstorage/pkg/sink/objectsink"
	csvsource "github.com/user/objectstorage/pkg/source/csv"
	"github.com/user/objectstorage/pkg/source/inject"
	"github.com/user/objectstorage/pkg/topology"
)

const defaultSchema = "tuple<rstring tsStr, rstring customerId, float64 latitude, float64 longitude, timestamp ts>"

type runOptions struct {
	file        string
	schemaDecl  string
	delimiter   string
	header      bool
	backend     string
	bucket      string
	rate        float64
	params      []string
	timeout     time.Duration
	metricsAddr string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream a delimited file into an object store",
	Example: `  osink run --file data.txt --backend COS --bucket streams \
    --param objectName=out%OBJECTNUM.parquet --param storageFormat=parquet \
    --param bytesPerObject=1048576 --param parquetCompression=LZO`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if runOpts.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runOpts.timeout)
			defer cancel()
		}
		return runTopology(ctx, cmd, runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.file, "file", "f", "", "delimited input file")
	f.StringVar(&runOpts.schemaDecl, "schema", defaultSchema, "tuple schema of each record")
	f.StringVar(&runOpts.delimiter, "delimiter", ",", "field delimiter")
	f.BoolVar(&runOpts.header, "header", false, "skip the first line of the input file")
	f.StringVarP(&runOpts.backend, "backend", "b", "COS", "backend: COS, S3A, SWIFT2D or a configured name")
	f.StringVar(&runOpts.bucket, "bucket", "", "bucket or container, overrides the configured one")
	f.Float64Var(&runOpts.rate, "rate", 0, "tuples per second, 0 streams the file unthrottled")
	f.StringArrayVarP(&runOpts.params, "param", "p", nil, "sink parameter as name=value, repeatable")
	f.DurationVar(&runOpts.timeout, "timeout", 0, "stop after this long")
	f.StringVar(&runOpts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}

func runTopology(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := viper.GetString("level")
	if !cmd.Flags().Changed("level") && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	logger := engine.NewLevelLogger(level)

	shutdown, err := observability.InitOTLP(ctx, cfg.OTLP)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("OTLP shutdown failed", "error", err)
		}
	}()

	if opts.metricsAddr != "" {
		srv := &http.Server{Addr: opts.metricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	s, err := schema.Parse(opts.schemaDecl)
	if err != nil {
		return err
	}
	src, err := newSource(opts, s)
	if err != nil {
		return err
	}

	storeCfg, err := backendConfig(cfg, opts.backend, opts.bucket)
	if err != nil {
		return err
	}
	store, err := objectstore.NewStorage(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", opts.backend, err)
	}

	snk, err := objectsink.NewSink(store, s, params)
	if err != nil {
		return err
	}

	sinkID := strings.ToLower(opts.backend) + "ObjectSink"
	topo := topology.New("osink." + filepath.Base(opts.file))
	snk.SetStatusEmitter(topo.Status())
	snk.SetLogger(logger)
	snk.SetID(sinkID)
	topo.SetSource(src)
	topo.AddSink(sinkID, snk)
	topo.SetLogger(logger)
	if cfg.Buffer.Size > 0 {
		topo.SetBufferSize(cfg.Buffer.Size)
	}
	if cfg.Engine.MaxRetries > 0 {
		topo.SetEngineConfig(engine.Config{
			MaxRetries:    cfg.Engine.MaxRetries,
			RetryInterval: cfg.Engine.RetryInterval,
		})
	}

	runErr := topo.Run(ctx, topology.Standalone, level)
	printStatus(cmd, topo.Status().Tuples())
	return runErr
}

func newSource(opts runOptions, s *schema.Schema) (objectstorage.Source, error) {
	if len([]rune(opts.delimiter)) != 1 {
		return nil, fmt.Errorf("delimiter must be a single character, got %q", opts.delimiter)
	}
	delim := []rune(opts.delimiter)[0]
	if opts.rate <= 0 {
		return csvsource.NewCSVSource(opts.file, delim, opts.header, s), nil
	}
	if opts.header {
		return nil, errors.New("--header cannot be combined with --rate")
	}

	tuples, err := csvsource.LoadTuples(filepath.Dir(opts.file), filepath.Base(opts.file), opts.delimiter, opts.schemaDecl)
	if err != nil {
		return nil, err
	}
	return inject.NewSource(tuples, s, opts.rate)
}

// backendConfig picks the configured store for backend, falling back to
// a local directory named after the bucket when nothing is configured.
func backendConfig(cfg *config.Config, backend, bucket string) (config.ObjectStoreConfig, error) {
	storeCfg, ok := cfg.Backends[strings.ToUpper(backend)]
	if !ok {
		storeCfg, ok = cfg.Backends[backend]
	}
	if bucket != "" {
		storeCfg.Bucket = bucket
	}
	if !ok {
		if storeCfg.Bucket == "" {
			return storeCfg, fmt.Errorf("backend %s is not configured and no --bucket given", backend)
		}
		storeCfg.Type = "local"
		storeCfg.LocalDir = storeCfg.Bucket
	}
	return storeCfg, nil
}

func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", p)
		}
		params[name] = value
	}
	return params, nil
}

func printStatus(cmd *cobra.Command, tuples []objectstorage.Tuple) {
	out := cmd.OutOrStdout()
	for _, t := range tuples {
		name, _ := t.Get("objectName")
		size, _ := t.Get("objectSize")
		fmt.Fprintf(out, "%v\t%v\n", name, size)
	}
}
