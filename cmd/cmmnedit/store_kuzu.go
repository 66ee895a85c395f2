//go:build cgo

package main

import (
	"github.com/dusk-indust/cmmnedit/internal/config"
	"github.com/dusk-indust/cmmnedit/internal/docgraph"
)

// storeFactory returns a constructor for the configured graph backend.
// A kuzu backend with a path opens that database directory; without one
// every store is a fresh in-memory database.
func storeFactory(cfg config.Graph) func() (docgraph.Store, error) {
	if cfg.Backend != "kuzu" {
		return func() (docgraph.Store, error) { return docgraph.NewMemStore(), nil }
	}
	return func() (docgraph.Store, error) {
		open := docgraph.NewKuzuStore
		if cfg.Path != "" {
			open = func() (*docgraph.KuzuStore, error) { return docgraph.NewKuzuFileStore(cfg.Path) }
		}
		s, err := open()
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
