package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/cmmnedit/internal/docgraph"
	"github.com/dusk-indust/cmmnedit/internal/export"
)

func (a *app) newExportCmd() *cobra.Command {
	var (
		outDir string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export <document.json>",
		Short: "Render a document as JSON, Mermaid and graph statistics",
		Long: `Imports the document, checks it, and either writes every rendering into
--out or prints one rendering selected with --format to stdout.

The graph backend (memory or kuzu) comes from the graph section of the config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Verify(); err != nil {
				return err
			}

			store, err := storeFactory(a.cfg.Graph)()
			if err != nil {
				return fmt.Errorf("open graph: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if outDir != "" {
				paths, err := export.WriteAll(ctx, outDir, s.Document(), store, export.Options{})
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintf(out, "  wrote %s\n", p)
				}
				return nil
			}

			switch strings.ToLower(format) {
			case "json":
				return export.EncodeJSON(out, s.Document(), time.Time{})
			case "mermaid":
				if err := docgraph.Load(ctx, store, s.Document()); err != nil {
					return fmt.Errorf("load graph: %w", err)
				}
				mermaid, err := export.GenerateMermaid(ctx, store)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, mermaid)
				return err
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write every rendering to")
	cmd.Flags().StringVar(&format, "format", "mermaid", "rendering printed when --out is empty: json or mermaid")
	return cmd
}
