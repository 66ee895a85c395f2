package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/docgraph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Containers become nested subgraphs below the definitions root;
// references are dotted arrows and on-part or association endpoints are
// labelled arrows.
func GenerateMermaid(ctx context.Context, store docgraph.Store) (string, error) {
	nodes, err := store.QueryNodes(ctx, "", 0)
	if err != nil {
		return "", fmt.Errorf("query nodes: %w", err)
	}
	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.TargetID < b.TargetID
	})

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(id string) string {
		if m, ok := nodeIDs[id]; ok {
			return m
		}
		m := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[id] = m
		return m
	}

	byID := make(map[string]docgraph.NodeRecord, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	children := make(map[string][]string)
	hasParent := make(map[string]bool)
	for _, e := range edges {
		if e.Kind == docgraph.EdgeKindParentOf {
			children[e.SourceID] = append(children[e.SourceID], e.TargetID)
			hasParent[e.TargetID] = true
		}
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var emit func(id, indent string)
	emit = func(id, indent string) {
		label := nodeLabel(byID[id])
		kids := children[id]
		if len(kids) == 0 {
			sb.WriteString(fmt.Sprintf("%s%s[\"%s\"]\n", indent, getID(id), label))
			return
		}
		sb.WriteString(fmt.Sprintf("%ssubgraph %s[\"%s\"]\n", indent, getID(id), label))
		for _, k := range kids {
			emit(k, indent+"  ")
		}
		sb.WriteString(indent + "end\n")
	}

	// The definitions root only groups cases and shared definitions, so
	// its children are emitted at the top level.
	for _, n := range nodes {
		if hasParent[n.ID] {
			continue
		}
		if n.Kind == cmmn.KindDefinitions.String() {
			for _, k := range children[n.ID] {
				emit(k, "  ")
			}
			continue
		}
		emit(n.ID, "  ")
	}

	for _, e := range edges {
		src, tgt := getID(e.SourceID), getID(e.TargetID)
		switch e.Kind {
		case docgraph.EdgeKindRefersTo:
			sb.WriteString(fmt.Sprintf("  %s -.-> %s\n", src, tgt))
		case docgraph.EdgeKindHasSource:
			sb.WriteString(fmt.Sprintf("  %s -->|source| %s\n", src, tgt))
		case docgraph.EdgeKindHasTarget:
			sb.WriteString(fmt.Sprintf("  %s -->|target| %s\n", src, tgt))
		}
	}

	return sb.String(), nil
}

// nodeLabel renders "Kind: name", or the id when the node is unnamed.
func nodeLabel(n docgraph.NodeRecord) string {
	kind := strings.TrimPrefix(n.Kind, "cmmn:")
	name := n.Name
	if name == "" {
		name = n.ID
	}
	return fmt.Sprintf("%.60s", strings.ReplaceAll(kind+": "+name, `"`, "#quot;"))
}
