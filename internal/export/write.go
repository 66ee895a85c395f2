package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/docgraph"
)

// Output file names written by WriteAll.
const (
	DocumentFile = "document.json"
	MermaidFile  = "document.mmd"
	StatsFile    = "graph-stats.json"
)

// Options tunes WriteAll.
type Options struct {
	// Now stamps the JSON export. The zero value omits the timestamp.
	Now time.Time
}

// WriteAll loads doc into store, checks the load, and then renders the
// JSON export, the Mermaid diagram and the graph statistics into dir in
// parallel. The document must not change until WriteAll returns. The
// returned paths are sorted.
func WriteAll(ctx context.Context, dir string, doc *cmmn.Document, store docgraph.Store, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := docgraph.Load(ctx, store, doc); err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	if err := docgraph.Verify(ctx, store, doc); err != nil {
		return nil, fmt.Errorf("verify graph: %w", err)
	}

	renderers := map[string]func(context.Context) ([]byte, error){
		DocumentFile: func(context.Context) ([]byte, error) {
			var buf bytes.Buffer
			err := EncodeJSON(&buf, doc, opts.Now)
			return buf.Bytes(), err
		},
		MermaidFile: func(gctx context.Context) ([]byte, error) {
			s, err := GenerateMermaid(gctx, store)
			return []byte(s), err
		},
		StatsFile: func(gctx context.Context) ([]byte, error) {
			stats, err := store.Stats(gctx)
			if err != nil {
				return nil, err
			}
			return json.MarshalIndent(stats, "", "  ")
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	paths := make([]string, 0, len(renderers))
	for name, render := range renderers {
		path := filepath.Join(dir, name)
		paths = append(paths, path)
		g.Go(func() error {
			data, err := render(gctx)
			if err != nil {
				return fmt.Errorf("render %s: %w", name, err)
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
