// Command typeddoc generates typed GraphQL documents and patches vendored
// GraphQL libraries so that they infer result and variables types from them.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/hanpama/typeddoc/internal/otel"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "typeddoc:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx := context.Background()
	g := &globals{otelService: "typeddoc", stderr: stderr}
	root := newRootCmd(g, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if terr := g.teardown(ctx); err == nil {
		err = terr
	}
	return err
}

// globals holds the flags shared by every command and what they set up.
type globals struct {
	verbose      bool
	otelEndpoint string
	otelService  string

	stderr   io.Writer
	logger   *zap.Logger
	shutdown func(context.Context) error
}

func newRootCmd(g *globals, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "typeddoc",
		Short: "Typed GraphQL documents and library patches",
		Long: `typeddoc generates Go types and typed document values from GraphQL
operations, and patches vendored GraphQL libraries so their entry points
infer result and variables types from those documents.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return g.setup() },
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log every step, including skipped patches")
	pf.StringVar(&g.otelEndpoint, "otel.endpoint", "", "OTLP collector endpoint")
	pf.StringVar(&g.otelService, "otel.service", g.otelService, "OpenTelemetry service name")

	root.AddCommand(
		newGenerateCmd(g),
		newPatchCmd(g, false),
		newPatchCmd(g, true),
		newVersionCmd(),
	)
	return root
}

func (g *globals) setup() error {
	level := zapcore.WarnLevel
	if g.verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	g.logger = zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(g.stderr),
		level,
	))

	shutdown, err := otel.Setup(g.otelEndpoint, g.otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	g.shutdown = shutdown
	return nil
}

// teardown flushes the logger and the tracer. It is safe to call when setup
// never ran.
func (g *globals) teardown(ctx context.Context) error {
	if g.logger != nil {
		_ = g.logger.Sync()
	}
	if g.shutdown == nil {
		return nil
	}
	return g.shutdown(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			version := "(devel)"
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
				version = info.Main.Version
			}
			fmt.Fprintf(cmd.OutOrStdout(), "typeddoc %s\n", version)
		},
	}
}
