//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/cmmnedit/internal/config"
	"github.com/dusk-indust/cmmnedit/internal/docgraph"
)

var errNoKuzu = errors.New("graph backend kuzu requires a cgo build")

func storeFactory(cfg config.Graph) func() (docgraph.Store, error) {
	if cfg.Backend == "kuzu" {
		return func() (docgraph.Store, error) { return nil, errNoKuzu }
	}
	return func() (docgraph.Store, error) { return docgraph.NewMemStore(), nil }
}
