package graphstore

import (
	"fmt"

	"github.com/orneryd/graphstore/pkg/storage"
)

// executeQuery runs a single read-only QueryKind in its own transaction,
// rolled back (never committed) once the read completes, since queries
// never mutate.
func (s *Store) executeQuery(kind QueryKind) (Reply, error) {
	tx, err := s.engine.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateTransaction, err)
	}
	defer tx.Rollback()

	switch k := kind.(type) {
	case ListGraphs:
		return listGraphs(tx)
	case ReadNode:
		return readNodeQuery(tx, k)
	case ReadEdgeProperties:
		return readEdgeProperties(tx, k)
	case ReadGraph:
		return readGraph(tx, k)
	default:
		return nil, fmt.Errorf("graphstore: unknown query kind %T", kind)
	}
}

// readRootNode reads a graph root's own properties. A root's outbound
// edges are membership edges, plumbing rather than user-visible graph
// shape, so — unlike readFullNode — it never reports any.
func readRootNode(tx storage.Tx, rootID GraphID) (Node, error) {
	props, err := readNodeProperties(tx, rootID)
	if err != nil {
		return Node{}, err
	}
	return Node{NodeID: rootID, Properties: props}, nil
}

func listGraphs(tx storage.Tx) (Reply, error) {
	roots, err := tx.GetVerticesByType(rootVertexType)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(roots))
	for _, v := range roots {
		n, err := readRootNode(tx, v.ID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return NodeListReply{Nodes: nodes}, nil
}

func readNodeQuery(tx storage.Tx, k ReadNode) (Reply, error) {
	if _, ok, err := tx.GetVertex(k.NodeID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: node %s", ErrNodeNotFound, k.NodeID)
	}
	rootID, err := nodeGraphRoot(tx, k.NodeID)
	if err != nil {
		return nil, err
	}
	n, err := readFullNode(tx, k.NodeID, rootID)
	if err != nil {
		return nil, err
	}
	return NodeReply{Node: n}, nil
}

func readEdgeProperties(tx storage.Tx, k ReadEdgeProperties) (Reply, error) {
	key := storage.EdgeKey{From: k.Edge.From, To: k.Edge.To, Type: k.Edge.ID.String()}
	raw, err := tx.GetEdgeProperty(key, dataPropName)
	if err == storage.ErrNotFound {
		return PropertiesReply{Properties: nil}, nil
	}
	if err != nil {
		return nil, err
	}
	props, err := unmarshalProperties(raw)
	if err != nil {
		return nil, err
	}
	return PropertiesReply{Properties: props}, nil
}

func readGraph(tx storage.Tx, k ReadGraph) (Reply, error) {
	if _, ok, err := tx.GetVertex(k.GraphID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: graph %s", ErrNodeNotFound, k.GraphID)
	}
	memberKeys, err := tx.GetEdgesOutbound(k.GraphID)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(memberKeys))
	for _, mk := range memberKeys {
		n, err := readFullNode(tx, mk.To, k.GraphID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	stateID, err := readStateID(tx, k.GraphID)
	if err != nil {
		return nil, err
	}
	return GraphReply{Graph: Graph{Nodes: nodes, StateID: stateID}}, nil
}
