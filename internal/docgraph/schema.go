package docgraph

// --- Enums ---

// EdgeKind classifies relationships between semantic nodes.
type EdgeKind string

const (
	// EdgeKindParentOf links a node to a node it contains.
	EdgeKindParentOf EdgeKind = "PARENT_OF"
	// EdgeKindRefersTo links an item to its definition or a criterion to
	// its sentry.
	EdgeKindRefersTo EdgeKind = "REFERS_TO"
	// EdgeKindHasSource and EdgeKindHasTarget carry on-part and association
	// endpoints.
	EdgeKindHasSource EdgeKind = "HAS_SOURCE"
	EdgeKindHasTarget EdgeKind = "HAS_TARGET"
)

// EdgeKinds lists every relationship kind in schema order.
var EdgeKinds = []EdgeKind{EdgeKindParentOf, EdgeKindRefersTo, EdgeKindHasSource, EdgeKindHasTarget}

// Direction controls traversal direction along containment.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // containers of the node
	DirectionDownstream Direction = "downstream" // contents of the node
)

// --- Models ---

// NodeRecord is one semantic node as stored in the graph.
type NodeRecord struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name,omitempty"`
	Collection string `json:"collection,omitempty"`
}

// Edge is a relationship between two nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// Chain is an ordered path of node ids.
type Chain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}

// ImpactResult describes which nodes depend on a set of changed nodes
// through references and on-part or association endpoints.
type ImpactResult struct {
	DirectlyAffected     []string `json:"directlyAffected"`
	TransitivelyAffected []string `json:"transitivelyAffected"`
	RiskScore            float64  `json:"riskScore"` // 0.0-1.0, share of all nodes
}

// Stats summarizes a stored document graph.
type Stats struct {
	NodeCount int            `json:"nodeCount"`
	EdgeCount int            `json:"edgeCount"`
	Kinds     map[string]int `json:"kinds"`
}
