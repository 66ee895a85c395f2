package docgraph

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]NodeRecord
	edges []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[string]NodeRecord)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddNode stores a node keyed by its id.
func (m *MemStore) AddNode(_ context.Context, node NodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.ID] = node
	return nil
}

// AddEdge appends an edge. Edges between unknown nodes are dropped, as a
// MATCH-CREATE would.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[edge.SourceID]; !ok {
		return nil
	}
	if _, ok := m.nodes[edge.TargetID]; !ok {
		return nil
	}
	m.edges = append(m.edges, edge)
	return nil
}

// GetNode returns the node with the given id, or nil if not found.
func (m *MemStore) GetNode(_ context.Context, id string) (*NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// QueryNodes returns nodes whose id or name contains query, ordered by id,
// up to limit results. A limit <= 0 returns all matches.
func (m *MemStore) QueryNodes(_ context.Context, query string, limit int) ([]NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	var results []NodeRecord
	for _, n := range m.nodes {
		if strings.Contains(strings.ToLower(n.ID), q) || strings.Contains(strings.ToLower(n.Name), q) {
			results = append(results, n)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetAllEdges returns a copy of all edges in the store.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// GetChains performs a BFS over containment edges from id, up to maxDepth
// hops. It returns one Chain per reachable node.
func (m *MemStore) GetChains(_ context.Context, id string, direction Direction, maxDepth int) ([]Chain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{id: true}
	queue := []bfsEntry{{id: id, path: []string{id}}}
	var chains []Chain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				path := make([]string, len(entry.path), len(entry.path)+1)
				copy(path, entry.path)
				path = append(path, nb)
				chains = append(chains, Chain{Nodes: path, Depth: len(path) - 1})
				next = append(next, bfsEntry{id: nb, path: path})
			}
		}
		queue = next
	}
	return chains, nil
}

// neighbors returns ids one containment hop from id.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var out []string
	for _, e := range m.edges {
		if e.Kind != EdgeKindParentOf {
			continue
		}
		switch direction {
		case DirectionDownstream:
			if e.SourceID == id {
				out = append(out, e.TargetID)
			}
		case DirectionUpstream:
			if e.TargetID == id {
				out = append(out, e.SourceID)
			}
		}
	}
	return out
}

// AssessImpact finds the nodes pointing at the changed nodes through
// REFERS_TO, HAS_SOURCE or HAS_TARGET edges, then expands that set until
// nothing new points at it.
func (m *MemStore) AssessImpact(_ context.Context, changed []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	changedSet := make(map[string]bool, len(changed))
	for _, id := range changed {
		changedSet[id] = true
	}

	pointingAt := func(frontier map[string]bool, seen map[string]bool) map[string]bool {
		next := make(map[string]bool)
		for _, e := range m.edges {
			if e.Kind == EdgeKindParentOf {
				continue
			}
			if frontier[e.TargetID] && !changedSet[e.SourceID] && !seen[e.SourceID] {
				next[e.SourceID] = true
			}
		}
		return next
	}

	direct := pointingAt(changedSet, nil)
	all := make(map[string]bool, len(direct))
	for k := range direct {
		all[k] = true
	}
	for frontier := direct; len(frontier) > 0; {
		frontier = pointingAt(frontier, all)
		for k := range frontier {
			all[k] = true
		}
	}

	var risk float64
	if len(m.nodes) > 0 {
		risk = float64(len(all)) / float64(len(m.nodes))
	}
	return &ImpactResult{
		DirectlyAffected:     setToSlice(direct),
		TransitivelyAffected: setToSlice(all),
		RiskScore:            risk,
	}, nil
}

// Stats returns node and edge counts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kinds := make(map[string]int)
	for _, n := range m.nodes {
		kinds[n.Kind]++
	}
	return &Stats{NodeCount: len(m.nodes), EdgeCount: len(m.edges), Kinds: kinds}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// setToSlice converts a string set to a sorted slice.
func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
