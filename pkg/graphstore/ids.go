// Package graphstore implements an embedded, transactional property-graph
// store with reversible mutations: a collection of named graphs, each a
// directed multigraph whose nodes and edges carry arbitrary JSON property
// documents. Every mutating command produces its own inverse, pushed onto
// an undo stack; a redo stack mirrors it. The store is reached through a
// single synchronous dispatch entry point, Store.Execute, which takes a
// Command and returns a Reply.
//
// The package never opens a backing store itself — it is handed a
// storage.Engine (see pkg/storage) at construction and maps the logical
// graph (nodes, edges, properties, graph roots) onto that engine's
// vertex/typed-edge model.
package graphstore

import "github.com/google/uuid"

// GraphID, NodeID and EdgeID are all plain uuid.UUID aliases: the mapping
// layer routinely passes a node id where a graph id is expected (e.g. a
// graph root is itself a vertex keyed by its GraphID) and vice versa, so
// keeping them aliases rather than distinct named types avoids a wall of
// conversions at every one of those call sites.
type (
	GraphID = uuid.UUID
	NodeID  = uuid.UUID
	EdgeID  = uuid.UUID
)

// Properties is an arbitrary JSON object associated with a node, edge, or
// graph root. Callers must not set the reserved key StateIDKey; the core
// owns it.
type Properties map[string]any

// Clone returns a shallow copy of p. Used whenever the core hands a
// caller-visible Properties value out of internal state it is about to
// mutate further (e.g. injecting _state_id into a copy of the caller's
// input rather than the caller's own map).
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Edge identifies a directed, identity-bearing link between two nodes of
// the same graph. ID is the engine edge-type string parsed back into a
// UUID (spec.md §4.2): a fresh UUID is minted as the edge's engine "type"
// at creation time specifically so (from, to, type) — the engine's
// natural edge primary key — also gives every edge a stable identity.
type Edge struct {
	ID   EdgeID
	From NodeID
	To   NodeID
}

// Node is a fully-read graph node: its properties plus the edges incident
// to it in both directions.
type Node struct {
	NodeID        NodeID
	Properties    Properties
	OutboundEdges []Edge
	InboundEdges  []Edge
}

// Graph is the result of reading an entire graph: its member nodes and
// its current state-version.
type Graph struct {
	Nodes   []Node
	StateID uint64
}

// Reserved identifiers used by the mapping layer (spec.md §4.2).
const (
	rootVertexType = "_root_type"
	nodeVertexType = "node"
	dataPropName   = "data"
	// StateIDKey is the reserved property key holding a graph root's
	// monotonically increasing state version. Callers must never set it
	// themselves; the dispatcher owns it (spec.md §4.6).
	StateIDKey = "_state_id"
)
