package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dusk-indust/cmmnedit/internal/config"
	"github.com/dusk-indust/cmmnedit/internal/editor"
	"github.com/dusk-indust/cmmnedit/internal/export"
	"github.com/dusk-indust/cmmnedit/internal/mcptools"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "cmmnedit",
		Short: "Consistency-preserving CMMN case model editor",
		Long: `cmmnedit edits CMMN case models through undoable operations that keep
the semantic tree and the diagram consistent.

Gestures can be replayed from YAML scripts, documents exported as JSON,
Mermaid and graph statistics, and the editor served to MCP clients.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: cmmnedit.yml in the working directory)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.newReplayCmd(),
		a.newExportCmd(),
		a.newServeMCPCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), mcptools.Version())
			return err
		},
	}
}

// init loads the config and builds the logger.
func (a *app) init() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load(".")
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.logger, err = newLogger(a.cfg.Log, a.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func newLogger(cfg config.Log, verbose bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, err
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// openSession creates a session, importing the JSON document at path
// when it is set.
func (a *app) openSession(path string) (*editor.Session, error) {
	s, err := editor.New(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer f.Close()

	doc, err := export.DecodeJSON(f)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	warnings, err := s.Import(doc)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range warnings {
		a.logger.Warn("import warning", zap.String("document", path), zap.String("element", w.Element), zap.String("message", w.Message))
	}
	return s, nil
}
