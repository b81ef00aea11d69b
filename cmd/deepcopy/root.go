package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"deepcopy/internal/blob"
	"deepcopy/internal/core"
	"deepcopy/internal/schema"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

// app holds the collaborators shared by every subcommand of one invocation.
type app struct {
	schemaPath  string
	logLevel    string
	metricsFile string
	trace       bool

	logger   *slog.Logger
	store    core.PersistentStore
	svc      *core.Service
	registry *prometheus.Registry
}

// run builds the command tree, executes it and releases the store.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "deepcopy",
		Short:         "Deep-copy records and their owned relationships",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.schemaPath, "schema", os.Getenv("DEEPCOPY_SCHEMA"), "path to the YAML schema (env DEEPCOPY_SCHEMA)")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus text metrics to this file on exit")
	flags.BoolVar(&a.trace, "trace", false, "write JSON trace spans to stderr")

	root.AddCommand(a.importCommand(), a.listCommand(), a.getCommand(), a.duplicateCommand(), a.manifestCommand())
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if a.schemaPath == "" {
		return errors.New("schema required: pass --schema or set DEEPCOPY_SCHEMA")
	}
	reg, err := schema.Load(a.schemaPath)
	if err != nil {
		return err
	}
	store, err := core.OpenPersistentStore(reg, core.NewDefaultRulesEngine(reg))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store

	archive, err := blob.Open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open manifest archive: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	opts := []core.ServiceOption{
		core.WithLogger(a.logger),
		core.WithAuditRecorder(auditLog{logger: a.logger}),
		core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(a.registry)),
	}
	if archive != nil {
		opts = append(opts, core.WithManifestStore(archive))
	}
	if a.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}
	a.svc = core.NewService(store, opts...)
	a.logger.Debug("store opened", "types", len(reg.Types()))
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.metricsFile != "" && a.registry != nil {
		errs = append(errs, a.writeMetrics())
	}
	if c, ok := a.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *app) writeMetrics() error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	f, err := os.Create(a.metricsFile) // #nosec G304 -- operator supplied path
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			_ = f.Close()
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return f.Close()
}

// auditLog writes audit entries to the structured log.
type auditLog struct {
	logger *slog.Logger
}

func (l auditLog) Record(ctx context.Context, e core.AuditEntry) {
	l.logger.InfoContext(ctx, "audit",
		"operation", e.Operation,
		"type", e.Type,
		"id", e.RecordID,
		"status", e.Status,
		"clones", e.Clones,
		"duration", e.Duration,
	)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
