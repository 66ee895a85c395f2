// Package docgraph stores a CMMN semantic tree as a property graph:
// one node per semantic node, containment and reference edges between
// them. Backends: KuzuStore (cgo) and MemStore.
package docgraph

import (
	"context"
	"io"
)

// Store is the interface every graph backend implements.
type Store interface {
	io.Closer

	// InitSchema is called once before any data is inserted.
	InitSchema(ctx context.Context) error

	AddNode(ctx context.Context, node NodeRecord) error
	AddEdge(ctx context.Context, edge Edge) error

	// GetNode returns nil without error when id is unknown.
	GetNode(ctx context.Context, id string) (*NodeRecord, error)
	// QueryNodes matches query against ids and names, case-insensitively.
	QueryNodes(ctx context.Context, query string, limit int) ([]NodeRecord, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// GetChains walks containment from id up to maxDepth hops.
	GetChains(ctx context.Context, id string, direction Direction, maxDepth int) ([]Chain, error)
	// AssessImpact follows reference and endpoint edges backwards from the
	// changed nodes.
	AssessImpact(ctx context.Context, changed []string) (*ImpactResult, error)

	Stats(ctx context.Context) (*Stats, error)
}
