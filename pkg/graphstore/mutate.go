package graphstore

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/orneryd/graphstore/pkg/storage"
)

// doCreateGraph creates a fresh graph root vertex under id, with the given
// initial properties. Its inverse is DeleteGraph(id) (spec.md §4.4,
// §4.7's handle(CreateGraph) = inverse DeleteGraph(id); Some).
func (s *Store) doCreateGraph(id GraphID, props Properties) (Reply, Command, error) {
	tx, err := s.engine.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateTransaction, err)
	}
	if err := tx.CreateVertexWithID(id, rootVertexType); err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateNode, err)
	}
	full := props.Clone()
	if full == nil {
		full = Properties{}
	}
	full[StateIDKey] = uint64(0)
	blob, err := marshalProperties(full)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.SetVertexProperty(id, dataPropName, blob); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateTransaction, err)
	}
	return IDReply{ID: id}, DeleteGraph{GraphID: id}, nil
}

// doDeleteGraph cascades: every member node's incident edges, then every
// member node, then the root itself. It is irreversible — no inverse is
// returned — and drops every undo entry that still refers to this graph,
// since those entries' target vertices no longer exist; a later Undo must
// see ErrUndoBufferEmpty rather than fail on a vanished vertex. The redo
// stack clears too, handled uniformly by runMutation for Plain mutations.
func (s *Store) doDeleteGraph(id GraphID) (Reply, Command, error) {
	tx, err := s.engine.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateTransaction, err)
	}
	if _, ok, err := tx.GetVertex(id); err != nil {
		tx.Rollback()
		return nil, nil, err
	} else if !ok {
		tx.Rollback()
		return nil, nil, fmt.Errorf("%w: graph %s", ErrNodeNotFound, id)
	}

	memberKeys, err := tx.GetEdgesOutbound(id)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	for _, k := range memberKeys {
		nodeID := k.To
		if err := tx.DeleteEdgesOutbound(nodeID); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		if err := tx.DeleteEdgesInbound(nodeID); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		if err := tx.DeleteVertex(nodeID); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	}
	if err := tx.DeleteVertex(id); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateTransaction, err)
	}

	s.mu.Lock()
	s.undo = dropGraph(s.undo, id)
	s.mu.Unlock()
	return EmptyReply{}, nil, nil
}

// doMutateState opens a transaction, dispatches kind to its handler, and
// on success commits and bumps the graph's state-version counter in a
// second, independent transaction (spec.md §4.6's accepted two-step
// limitation). Its inverse is the MutateState wrapping the handler's own
// inverse kind; runMutation threads it through the undo/redo stacks.
func (s *Store) doMutateState(graphID GraphID, kind MutateStateKind) (Reply, Command, error) {
	tx, err := s.engine.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateTransaction, err)
	}
	if _, ok, err := tx.GetVertex(graphID); err != nil {
		tx.Rollback()
		return nil, nil, err
	} else if !ok {
		tx.Rollback()
		return nil, nil, fmt.Errorf("%w: graph %s", ErrNodeNotFound, graphID)
	}

	reply, inverseKind, err := s.dispatchMutate(tx, graphID, kind)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateTransaction, err)
	}

	s.bumpStateID(graphID)
	return reply, MutateState{GraphID: graphID, Kind: inverseKind}, nil
}

// bumpStateID increments a graph root's _state_id counter in its own
// transaction. Failure here is logged-and-swallowed rather than surfaced:
// the mutation it follows already committed, and spec.md §4.6 accepts that
// the counter is not atomic with the mutation it tracks.
func (s *Store) bumpStateID(graphID GraphID) {
	tx, err := s.engine.Begin()
	if err != nil {
		log.Printf("graphstore: bumping state id of graph %s: %v", graphID, err)
		return
	}
	cur, err := readStateID(tx, graphID)
	if err != nil {
		tx.Rollback()
		log.Printf("graphstore: bumping state id of graph %s: %v", graphID, err)
		return
	}
	if err := putStateID(tx, graphID, cur+1); err != nil {
		tx.Rollback()
		log.Printf("graphstore: bumping state id of graph %s: %v", graphID, err)
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("graphstore: bumping state id of graph %s: %v", graphID, err)
	}
}

// dispatchMutate runs a single MutateStateKind against an open transaction
// and returns its reply together with the inverse operation that undoes it.
func (s *Store) dispatchMutate(tx storage.Tx, rootID GraphID, kind MutateStateKind) (Reply, MutateStateKind, error) {
	switch k := kind.(type) {
	case CreateNode:
		return handleCreateNode(tx, rootID, k)
	case RecreateNode:
		return handleRecreateNode(tx, rootID, k)
	case UpdateNode:
		return handleUpdateNode(tx, rootID, k)
	case DeleteNode:
		return handleDeleteNode(tx, rootID, k)
	case CreateEdge:
		return handleCreateEdge(tx, rootID, k)
	case UpdateEdge:
		return handleUpdateEdge(tx, rootID, k)
	case DeleteEdge:
		return handleDeleteEdge(tx, rootID, k)
	default:
		return nil, nil, fmt.Errorf("graphstore: unknown mutate-state kind %T", kind)
	}
}

func handleCreateNode(tx storage.Tx, rootID GraphID, k CreateNode) (Reply, MutateStateKind, error) {
	nodeID, err := tx.CreateVertexWithType(nodeVertexType)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateNode, err)
	}
	blob, err := marshalProperties(k.Properties)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.SetVertexProperty(nodeID, dataPropName, blob); err != nil {
		return nil, nil, err
	}
	created, err := tx.CreateEdge(rootID, nodeID, newEdgeType())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateEdge, err)
	}
	if !created {
		return nil, nil, ErrCreateEdgeFailed
	}
	return IDReply{ID: nodeID}, DeleteNode{NodeID: nodeID}, nil
}

func handleRecreateNode(tx storage.Tx, rootID GraphID, k RecreateNode) (Reply, MutateStateKind, error) {
	if err := tx.CreateVertexWithID(k.NodeID, nodeVertexType); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateNode, err)
	}
	blob, err := marshalProperties(k.Properties)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.SetVertexProperty(k.NodeID, dataPropName, blob); err != nil {
		return nil, nil, err
	}
	created, err := tx.CreateEdge(rootID, k.NodeID, newEdgeType())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateEdge, err)
	}
	if !created {
		return nil, nil, ErrCreateEdgeFailed
	}
	for _, re := range k.Edges {
		if _, _, err := handleRecreateEdge(tx, rootID, re); err != nil {
			return nil, nil, err
		}
	}
	return IDReply{ID: k.NodeID}, DeleteNode{NodeID: k.NodeID}, nil
}

func handleRecreateEdge(tx storage.Tx, rootID GraphID, k RecreateEdge) (Reply, MutateStateKind, error) {
	created, err := tx.CreateEdge(k.Edge.From, k.Edge.To, k.Edge.ID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateEdge, err)
	}
	if !created {
		return nil, nil, ErrCreateEdgeFailed
	}
	blob, err := marshalProperties(k.Properties)
	if err != nil {
		return nil, nil, err
	}
	key := storage.EdgeKey{From: k.Edge.From, To: k.Edge.To, Type: k.Edge.ID.String()}
	if err := tx.SetEdgeProperty(key, dataPropName, blob); err != nil {
		return nil, nil, err
	}
	return IDReply{ID: k.Edge.ID}, DeleteEdge{Edge: k.Edge}, nil
}

func handleUpdateNode(tx storage.Tx, rootID GraphID, k UpdateNode) (Reply, MutateStateKind, error) {
	old, err := readNodeProperties(tx, k.NodeID)
	if err != nil {
		return nil, nil, err
	}
	blob, err := marshalProperties(k.Properties)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.SetVertexProperty(k.NodeID, dataPropName, blob); err != nil {
		return nil, nil, err
	}
	return EmptyReply{}, UpdateNode{NodeID: k.NodeID, Properties: old}, nil
}

func handleDeleteNode(tx storage.Tx, rootID GraphID, k DeleteNode) (Reply, MutateStateKind, error) {
	props, err := readNodeProperties(tx, k.NodeID)
	if err != nil {
		return nil, nil, err
	}
	out, in, err := readIncidentEdges(tx, k.NodeID, rootID)
	if err != nil {
		return nil, nil, err
	}
	var captured []RecreateEdge
	for _, e := range append(out, in...) {
		key := storage.EdgeKey{From: e.From, To: e.To, Type: e.ID.String()}
		raw, err := tx.GetEdgeProperty(key, dataPropName)
		var eprops Properties
		if err == nil {
			eprops, err = unmarshalProperties(raw)
			if err != nil {
				return nil, nil, err
			}
		} else if err != storage.ErrNotFound {
			return nil, nil, err
		}
		captured = append(captured, RecreateEdge{Edge: e, Properties: eprops})
	}
	if err := tx.DeleteEdgesOutbound(k.NodeID); err != nil {
		return nil, nil, err
	}
	if err := tx.DeleteEdgesInbound(k.NodeID); err != nil {
		return nil, nil, err
	}
	if err := tx.DeleteVertex(k.NodeID); err != nil {
		return nil, nil, err
	}
	return EmptyReply{}, RecreateNode{NodeID: k.NodeID, Properties: props, Edges: captured}, nil
}

func handleCreateEdge(tx storage.Tx, rootID GraphID, k CreateEdge) (Reply, MutateStateKind, error) {
	edgeID := uuid.New()
	created, err := tx.CreateEdge(k.From, k.To, edgeID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCreateEdge, err)
	}
	if !created {
		return nil, nil, ErrCreateEdgeFailed
	}
	blob, err := marshalProperties(k.Properties)
	if err != nil {
		return nil, nil, err
	}
	key := storage.EdgeKey{From: k.From, To: k.To, Type: edgeID.String()}
	if err := tx.SetEdgeProperty(key, dataPropName, blob); err != nil {
		return nil, nil, err
	}
	edge := Edge{ID: edgeID, From: k.From, To: k.To}
	return IDReply{ID: edgeID}, DeleteEdge{Edge: edge}, nil
}

func handleUpdateEdge(tx storage.Tx, rootID GraphID, k UpdateEdge) (Reply, MutateStateKind, error) {
	key := storage.EdgeKey{From: k.Edge.From, To: k.Edge.To, Type: k.Edge.ID.String()}
	raw, err := tx.GetEdgeProperty(key, dataPropName)
	var old Properties
	if err == nil {
		old, err = unmarshalProperties(raw)
		if err != nil {
			return nil, nil, err
		}
	} else if err != storage.ErrNotFound {
		return nil, nil, err
	}
	blob, err := marshalProperties(k.Properties)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.SetEdgeProperty(key, dataPropName, blob); err != nil {
		return nil, nil, err
	}
	return EmptyReply{}, UpdateEdge{Edge: k.Edge, Properties: old}, nil
}

// handleDeleteEdge's inverse is a plain CreateEdge carrying the deleted
// edge's endpoints and properties, not a RecreateEdge: a freshly minted
// edge id, the same resolution the original store takes (its own
// delete_edge inverts to a plain create-edge message, not an id-preserving
// recreate). See DESIGN.md for the Open Question this resolves.
func handleDeleteEdge(tx storage.Tx, rootID GraphID, k DeleteEdge) (Reply, MutateStateKind, error) {
	key := storage.EdgeKey{From: k.Edge.From, To: k.Edge.To, Type: k.Edge.ID.String()}
	raw, err := tx.GetEdgeProperty(key, dataPropName)
	var props Properties
	if err == nil {
		props, err = unmarshalProperties(raw)
		if err != nil {
			return nil, nil, err
		}
	} else if err != storage.ErrNotFound {
		return nil, nil, err
	}
	if err := tx.DeleteEdge(key); err != nil {
		return nil, nil, err
	}
	return EmptyReply{}, CreateEdge{From: k.Edge.From, To: k.Edge.To, Properties: props}, nil
}
