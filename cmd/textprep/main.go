// Command textprep runs a text normalization pipeline described by a
// configuration file and writes the normalized items to one or more sinks.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	natsconn "github.com/wehubfusion/textprep/internal/nats"
	"github.com/wehubfusion/textprep/internal/tracing"
	"github.com/wehubfusion/textprep/pkg/concurrency"
	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/drawer"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/pipeline"
	"github.com/wehubfusion/textprep/pkg/reporting"
	"github.com/wehubfusion/textprep/pkg/sink"
)

const (
	breakerThreshold = 3
	breakerReset     = 30 * time.Second
	closeTimeout     = 10 * time.Second
)

type flags struct {
	configPath     string
	input          string
	text           string
	mode           string
	workers        int
	logLevel       string
	out            string
	natsURL        string
	natsSubject    string
	blobConnection string
	blobContainer  string
	blobPath       string
	dot            string
	otlpEndpoint   string
	sentryDSN      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("textprep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "path to the pipeline configuration (yaml or json)")
	fs.StringVar(&f.input, "input", "", "JSON array of items, - for stdin (ignored by the csv loader)")
	fs.StringVar(&f.text, "text", "", "text of a single item (single_item loader)")
	fs.StringVar(&f.mode, "mode", "", "sequential or concurrent (default from "+concurrency.EnvMode+")")
	fs.IntVar(&f.workers, "workers", 0, "worker count in concurrent mode (default from "+concurrency.EnvWorkers+")")
	fs.StringVar(&f.logLevel, "log-level", "info", "default log level")
	fs.StringVar(&f.out, "out", "-", "JSON lines output file, - for stdout, empty to disable")
	fs.StringVar(&f.natsURL, "nats-url", "", "publish batches to this NATS server")
	fs.StringVar(&f.natsSubject, "nats-subject", "textprep.results", "NATS subject for batches")
	fs.StringVar(&f.blobConnection, "blob-connection", "", "Azure storage connection string")
	fs.StringVar(&f.blobContainer, "blob-container", "textprep", "Azure blob container")
	fs.StringVar(&f.blobPath, "blob-path", "", "blob path (default runs/<run id>.json)")
	fs.StringVar(&f.dot, "dot", "", "write the pipeline graph in DOT format to this file")
	fs.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "export traces to this OTLP/HTTP collector (host:port)")
	fs.StringVar(&f.sentryDSN, "sentry-dsn", "", "report failures to Sentry")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.configPath == "" {
		return nil, errors.New("-config is required")
	}
	return f, nil
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if lvl.Level() == zapcore.DebugLevel {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), lvl)
	return zap.New(core).Named("textprep"), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 2
	}

	logger, err := newLogger(f.logLevel, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error: invalid -log-level:", err)
		return 2
	}
	defer logger.Sync() //nolint:errcheck

	if err := execute(ctx, f, stdin, stdout, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		return 1
	}
	return 0
}

func execute(ctx context.Context, f *flags, stdin io.Reader, stdout io.Writer, logger *zap.Logger) error {
	undo := concurrency.InitializeForKubernetes(logger)
	defer undo()

	cc := *concurrency.LoadConfig()
	cc = cc.WithWorkers(f.workers)
	if f.mode != "" {
		mode, err := concurrency.ParseMode(f.mode)
		if err != nil {
			return err
		}
		cc = cc.WithMode(mode)
	}
	logger.Info("concurrency configured",
		zap.String("mode", string(cc.Mode)),
		zap.Int("workers", cc.Workers),
		zap.String("source", string(cc.Source)))

	cfg, err := config.LoadAndValidate(f.configPath, f.logLevel)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if f.dot != "" {
		if err := drawer.WriteFile(cfg, f.dot); err != nil {
			return err
		}
		logger.Info("pipeline graph written", zap.String("path", f.dot))
	}

	if f.otlpEndpoint != "" {
		tc := tracing.DefaultConfig("textprep")
		tc.OTLPEndpoint = f.otlpEndpoint
		shutdown, err := tracing.SetupTracing(ctx, tc, logger)
		if err != nil {
			return err
		}
		defer tracing.ShutdownTracing(shutdown, logger) //nolint:errcheck
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(cc.Workers),
		pipeline.WithMetrics(pipeline.NewMetricsCollector()),
	}
	if f.sentryDSN != "" {
		reporter, err := reporting.NewSentryReporter(reporting.SentryConfig{DSN: f.sentryDSN})
		if err != nil {
			return err
		}
		defer reporter.Flush(2 * time.Second)
		opts = append(opts, pipeline.WithReporter(reporter))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		return err
	}

	out, err := openSinks(ctx, f, p.RunID(), stdout, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := out.Close(closeCtx); err != nil {
			logger.Error("failed to close sinks", zap.Error(err))
		}
	}()

	start := time.Now()
	w := &batchWriter{out: out, logger: logger}
	if err := process(ctx, p, cfg, cc.Mode, f, stdin, w); err != nil {
		return err
	}

	m := p.Metrics()
	logger.Info("textprep finished",
		zap.String("run_id", p.RunID()),
		zap.Int64("items", m.TotalItemsProcessed),
		zap.Int64("step_errors", m.TotalErrors),
		zap.Int64("skipped", m.TotalSkipped),
		zap.Int64("batches", m.TotalBatches),
		zap.Int("failed_writes", w.failed),
		zap.Duration("elapsed", time.Since(start)))
	if w.err != nil {
		return fmt.Errorf("%d batch writes failed, first: %w", w.failed, w.err)
	}
	return nil
}

// batchWriter keeps writing after a sink fails so that healthy sinks
// still receive every batch.
type batchWriter struct {
	out    sink.Sink
	logger *zap.Logger
	failed int
	err    error
}

func (w *batchWriter) write(ctx context.Context, batch []*item.Item) {
	if err := w.out.Write(ctx, batch); err != nil {
		w.failed++
		if w.err == nil {
			w.err = err
		}
		w.logger.Warn("failed to write batch", zap.Int("size", len(batch)), zap.Error(err))
	}
}

func process(ctx context.Context, p *pipeline.Pipeline, cfg *config.PipelineConfig, mode concurrency.Mode,
	f *flags, stdin io.Reader, w *batchWriter) error {
	if cfg.Loader().Type == config.LoaderSingleItem {
		var v interface{} = f.text
		if f.text == "" && f.input != "" {
			var err error
			if v, err = readInput(f.input, stdin); err != nil {
				return err
			}
		}
		it, err := p.ProcessItem(ctx, v)
		if err != nil {
			return err
		}
		w.write(ctx, []*item.Item{it})
		return nil
	}

	var src interface{}
	if cfg.Loader().Type != config.LoaderCSV {
		if f.input == "" {
			return errors.New("-input is required for the " + cfg.Loader().Type + " loader")
		}
		var err error
		if src, err = readInput(f.input, stdin); err != nil {
			return err
		}
	}

	if mode == concurrency.ModeConcurrent {
		items, err := p.ProcessConcurrent(ctx, src)
		if err != nil {
			return err
		}
		size := cfg.BatchSize()
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			w.write(ctx, items[start:end])
		}
		return nil
	}

	for batch, err := range p.ProcessData(ctx, src) {
		if err != nil {
			return err
		}
		w.write(ctx, batch)
	}
	return nil
}

// readInput decodes the JSON document at path, or stdin for "-".
func readInput(path string, stdin io.Reader) (interface{}, error) {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer file.Close()
		r = file
	}
	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	return v, nil
}

func openSinks(ctx context.Context, f *flags, runID string, stdout io.Writer, logger *zap.Logger) (sink.Multi, error) {
	var sinks sink.Multi
	fail := func(err error) (sink.Multi, error) {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		return nil, errors.Join(err, sinks.Close(closeCtx))
	}

	switch f.out {
	case "":
	case "-":
		sinks = append(sinks, sink.NewJSONLines(stdout))
	default:
		file, err := os.Create(f.out)
		if err != nil {
			return fail(fmt.Errorf("failed to create output: %w", err))
		}
		sinks = append(sinks, &fileSink{JSONLines: sink.NewJSONLines(file), file: file})
	}

	if f.natsURL != "" {
		conn, err := natsconn.Connect(ctx, natsconn.DefaultConnectionConfig(f.natsURL), logger)
		if err != nil {
			return fail(err)
		}
		ns, err := sink.NewNATS(conn, f.natsSubject, runID, logger)
		if err != nil {
			conn.Close()
			return fail(err)
		}
		guarded := sink.NewGuarded("nats", ns, concurrency.NewCircuitBreaker(breakerThreshold, breakerReset), logger)
		sinks = append(sinks, &natsSink{Guarded: guarded, close: func() error { return natsconn.Close(conn) }})
	}

	if f.blobConnection != "" {
		client, err := sink.NewAzureBlobClient(f.blobConnection, f.blobContainer, logger)
		if err != nil {
			return fail(err)
		}
		path := f.blobPath
		if path == "" {
			path = "runs/" + runID + ".json"
		}
		bs, err := sink.NewBlob(client, path, runID, logger)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, sink.NewGuarded("blob", bs, concurrency.NewCircuitBreaker(breakerThreshold, breakerReset), logger))
	}
	return sinks, nil
}

type fileSink struct {
	*sink.JSONLines
	file *os.File
}

func (s *fileSink) Close(ctx context.Context) error {
	return errors.Join(s.JSONLines.Close(ctx), s.file.Close())
}

// natsSink drains the connection after the last flush.
type natsSink struct {
	*sink.Guarded
	close func() error
}

func (s *natsSink) Close(ctx context.Context) error {
	return errors.Join(s.Guarded.Close(ctx), s.close())
}
