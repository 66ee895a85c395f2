package docgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
)

// ErrMismatch wraps every difference Verify finds between a store and a
// document.
var ErrMismatch = errors.New("graph does not match document")

// Records flattens the semantic tree below defs into node records and
// edges. References to nodes outside the tree are left out.
func Records(defs *cmmn.Node) ([]NodeRecord, []Edge) {
	var nodes []NodeRecord
	inTree := make(map[*cmmn.Node]bool)
	defs.Walk(func(n *cmmn.Node) bool {
		inTree[n] = true
		rec := NodeRecord{ID: n.ID, Kind: n.Kind.String(), Name: n.Name}
		if n.Parent != nil {
			if c, err := cmmn.CollectionFor(n.Parent.Kind, n.Kind); err == nil {
				rec.Collection = c.String()
			}
		}
		nodes = append(nodes, rec)
		return true
	})

	var edges []Edge
	link := func(from, to *cmmn.Node, kind EdgeKind) {
		if to != nil && inTree[to] {
			edges = append(edges, Edge{SourceID: from.ID, TargetID: to.ID, Kind: kind})
		}
	}
	defs.Walk(func(n *cmmn.Node) bool {
		if n.Parent != nil {
			link(n.Parent, n, EdgeKindParentOf)
		}
		link(n, n.Referenced(), EdgeKindRefersTo)
		link(n, n.SourceRef, EdgeKindHasSource)
		link(n, n.TargetRef, EdgeKindHasTarget)
		return true
	})
	return nodes, edges
}

// Load writes doc's semantic tree into store.
func Load(ctx context.Context, store Store, doc *cmmn.Document) error {
	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	nodes, edges := Records(doc.Definitions)
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.AddNode(ctx, n); err != nil {
			return fmt.Errorf("load node %s: %w", n.ID, err)
		}
	}
	for _, e := range edges {
		if err := store.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("load %s edge %s -> %s: %w", e.Kind, e.SourceID, e.TargetID, err)
		}
	}
	return nil
}

// Verify compares store against doc: every node with its kind, and the
// exact edge set.
func Verify(ctx context.Context, store Store, doc *cmmn.Document) error {
	nodes, edges := Records(doc.Definitions)
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrMismatch}, args...)...))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.NodeCount != len(nodes) {
		fail("store holds %d nodes, document %d", stats.NodeCount, len(nodes))
	}
	for _, want := range nodes {
		got, err := store.GetNode(ctx, want.ID)
		if err != nil {
			return err
		}
		switch {
		case got == nil:
			fail("node %s missing", want.ID)
		case got.Kind != want.Kind:
			fail("node %s is %s, document says %s", want.ID, got.Kind, want.Kind)
		}
	}

	stored, err := store.GetAllEdges(ctx)
	if err != nil {
		return err
	}
	have := edgeKeys(stored)
	for _, k := range edgeKeys(edges) {
		if !contains(have, k) {
			fail("edge %s missing", k)
		}
	}
	want := edgeKeys(edges)
	for _, k := range have {
		if !contains(want, k) {
			fail("unexpected edge %s", k)
		}
	}
	return errors.Join(errs...)
}

func edgeKeys(edges []Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = fmt.Sprintf("%s-[%s]->%s", e.SourceID, e.Kind, e.TargetID)
	}
	sort.Strings(out)
	return out
}

func contains(sorted []string, k string) bool {
	i := sort.SearchStrings(sorted, k)
	return i < len(sorted) && sorted[i] == k
}
