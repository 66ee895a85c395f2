package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/export"
	"github.com/dusk-indust/cmmnedit/internal/script"
)

func (a *app) newReplayCmd() *cobra.Command {
	var (
		document string
		outDir   string
		verify   bool
	)
	cmd := &cobra.Command{
		Use:   "replay <script.yml>...",
		Short: "Replay gesture scripts against a document",
		Long: `Runs the steps of each script in order against one session. Aliases bound
by a script stay visible to the scripts after it.

Example:
  cmmnedit replay --document case.json --out build split.yml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(document)
			if err != nil {
				return err
			}
			defer s.Close()

			runner := script.NewRunner(s, a.logger)
			for _, path := range args {
				sc, err := script.LoadFile(path)
				if err != nil {
					return err
				}
				sc.Verify = sc.Verify || verify
				if err := runner.Run(cmd.Context(), sc); err != nil {
					return fmt.Errorf("%s: %w", sc.Name, err)
				}
			}
			if err := s.Verify(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "replayed %d script(s): %d operation(s) on the undo stack\n", len(args), s.Stack().UndoDepth())
			if outDir == "" {
				return nil
			}

			store, err := storeFactory(a.cfg.Graph)()
			if err != nil {
				return fmt.Errorf("open graph: %w", err)
			}
			defer store.Close()

			paths, err := export.WriteAll(cmd.Context(), outDir, s.Document(), store, export.Options{Now: time.Now()})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(out, "  wrote %s\n", p)
			}
			a.logger.Debug("replay exported", zap.String("dir", outDir), zap.Int("files", len(paths)))
			return nil
		},
	}
	cmd.Flags().StringVar(&document, "document", "", "JSON document to start from (default: an empty document)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to export the resulting document to")
	cmd.Flags().BoolVar(&verify, "verify", false, "check consistency after every step")
	return cmd
}
