package graphstore

import "github.com/google/uuid"

// Reply is the tagged reply union of spec.md §4.1, modeled the same way
// as Command. Accessor helpers below never panic on a mismatched variant
// — they return (zero value, false) — matching spec.md §9's "reply
// accessors return optionals; they never assert a variant".
type Reply interface {
	isReply()
}

// IDReply carries a freshly minted identifier (a GraphID, NodeID, or
// EdgeID — all UUIDs, so one reply type suffices).
type IDReply struct {
	ID uuid.UUID
}

// NodeReply carries a fully-read node.
type NodeReply struct {
	Node Node
}

// EdgeReply carries a single edge. No handler currently returns it: edges
// reach callers as Edge values inside a Node. It is kept as a standalone
// reply variant for completeness with spec.md §4.1's algebra.
type EdgeReply struct {
	Edge Edge
}

// GraphReply carries a read graph snapshot.
type GraphReply struct {
	Graph Graph
}

// NodeListReply carries a list of nodes, used by ListGraphs (graph roots
// are returned as Node values carrying the root's properties; their
// membership edges are not reported).
type NodeListReply struct {
	Nodes []Node
}

// PropertiesReply carries a raw properties value, used by
// ReadEdgeProperties.
type PropertiesReply struct {
	Properties Properties
}

// EmptyReply carries no data; returned by mutations whose only useful
// information is "it worked" (UpdateNode, DeleteNode, UpdateEdge,
// DeleteEdge, DeleteGraph).
type EmptyReply struct{}

func (IDReply) isReply()         {}
func (NodeReply) isReply()       {}
func (EdgeReply) isReply()       {}
func (GraphReply) isReply()      {}
func (NodeListReply) isReply()   {}
func (PropertiesReply) isReply() {}
func (EmptyReply) isReply()      {}

// AsID returns the ID carried by r, if r is an IDReply.
func AsID(r Reply) (GraphID, bool) {
	v, ok := r.(IDReply)
	if !ok {
		return GraphID{}, false
	}
	return v.ID, true
}

// AsNode returns the Node carried by r, if r is a NodeReply.
func AsNode(r Reply) (Node, bool) {
	v, ok := r.(NodeReply)
	if !ok {
		return Node{}, false
	}
	return v.Node, true
}

// AsGraph returns the Graph carried by r, if r is a GraphReply.
func AsGraph(r Reply) (Graph, bool) {
	v, ok := r.(GraphReply)
	if !ok {
		return Graph{}, false
	}
	return v.Graph, true
}

// AsNodeList returns the node slice carried by r, if r is a
// NodeListReply.
func AsNodeList(r Reply) ([]Node, bool) {
	v, ok := r.(NodeListReply)
	if !ok {
		return nil, false
	}
	return v.Nodes, true
}

// AsProperties returns the properties carried by r, if r is a
// PropertiesReply.
func AsProperties(r Reply) (Properties, bool) {
	v, ok := r.(PropertiesReply)
	if !ok {
		return nil, false
	}
	return v.Properties, true
}
