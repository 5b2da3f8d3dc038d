package graphstore

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/graphstore/pkg/storage"
)

// marshalProperties encodes p as the vertex/edge property blob stored under
// dataPropName. A nil map encodes as "{}" so a later unmarshal never sees a
// zero-length value and mistakes it for "not found".
func marshalProperties(p Properties) ([]byte, error) {
	if p == nil {
		p = Properties{}
	}
	return json.Marshal(p)
}

// unmarshalProperties decodes a property blob previously produced by
// marshalProperties. It is the generic decoder for node and edge
// properties alike; a corrupt blob here is not the same failure as a
// corrupt _state_id counter (see stateIDFromProperties), so it gets its
// own sentinel.
func unmarshalProperties(b []byte) (Properties, error) {
	var p Properties
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPropertiesCorrupt, err)
	}
	return p, nil
}

// newEdgeType mints the fresh UUID used as an engine edge's type string.
// Every user edge and every root-to-member membership edge gets its own
// freshly minted type, which is what lets (from, to, type) serve as a
// stable edge identity (spec.md §4.2).
func newEdgeType() string {
	return uuid.New().String()
}

// edgeFromKey reconstructs the caller-visible Edge from an engine EdgeKey,
// parsing its Type back into an EdgeID.
func edgeFromKey(key storage.EdgeKey) (Edge, error) {
	id, err := uuid.Parse(key.Type)
	if err != nil {
		return Edge{}, fmt.Errorf("%w: edge type %q is not a uuid", ErrInvalidID, key.Type)
	}
	return Edge{ID: id, From: key.From, To: key.To}, nil
}

// putStateID writes the monotonically increasing state-version counter into
// a graph root's data blob, alongside whatever user properties the root
// already carries (spec.md §4.2: "_state_id" is a reserved key inside the
// same data JSON object, not a separate property).
func putStateID(tx storage.Tx, rootID uuid.UUID, v uint64) error {
	props, err := readNodeProperties(tx, rootID)
	if err != nil {
		return err
	}
	props = props.Clone()
	if props == nil {
		props = Properties{}
	}
	props[StateIDKey] = v
	blob, err := marshalProperties(props)
	if err != nil {
		return err
	}
	return tx.SetVertexProperty(rootID, dataPropName, blob)
}

// readStateID reads a graph root's state-version counter out of its data
// blob. doCreateGraph writes _state_id = 0 into every root it creates, so a
// root without the key is reported as ErrStateIDCorrupt.
func readStateID(tx storage.Tx, rootID uuid.UUID) (uint64, error) {
	props, err := readNodeProperties(tx, rootID)
	if err != nil {
		return 0, err
	}
	return stateIDFromProperties(props)
}

// stateIDFromProperties extracts _state_id from a root's already-decoded
// properties. JSON numbers decode into Properties (a map[string]any) as
// float64, so that's the only shape accepted here. A missing key, a
// negative number or a fractional number is ErrStateIDCorrupt.
func stateIDFromProperties(props Properties) (uint64, error) {
	v, ok := props[StateIDKey]
	if !ok {
		return 0, ErrStateIDCorrupt
	}
	n, ok := v.(float64)
	if !ok || n < 0 || n != float64(uint64(n)) {
		return 0, ErrStateIDCorrupt
	}
	return uint64(n), nil
}

// readNodeProperties reads and decodes the properties of any vertex (node
// or graph root) by id.
func readNodeProperties(tx storage.Tx, id uuid.UUID) (Properties, error) {
	raw, err := tx.GetVertexProperty(id, dataPropName)
	if err == storage.ErrNotFound {
		return Properties{}, nil
	}
	if err != nil {
		return nil, err
	}
	return unmarshalProperties(raw)
}

// readIncidentEdges returns the edges incident to a vertex in both
// directions, excluding the reserved membership edge that links a node back
// to its graph root (membership edges are plumbing, not part of the user
// visible graph shape).
func readIncidentEdges(tx storage.Tx, id uuid.UUID, rootID uuid.UUID) (out, in []Edge, err error) {
	outKeys, err := tx.GetEdgesOutbound(id)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range outKeys {
		if k.To == rootID {
			continue
		}
		e, err := edgeFromKey(k)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, e)
	}
	inKeys, err := tx.GetEdgesInbound(id)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range inKeys {
		if k.From == rootID {
			continue
		}
		e, err := edgeFromKey(k)
		if err != nil {
			return nil, nil, err
		}
		in = append(in, e)
	}
	return out, in, nil
}

// readFullNode reads a node's properties and incident edges (minus its
// membership edge to rootID) into a Node value.
func readFullNode(tx storage.Tx, id uuid.UUID, rootID uuid.UUID) (Node, error) {
	props, err := readNodeProperties(tx, id)
	if err != nil {
		return Node{}, err
	}
	out, in, err := readIncidentEdges(tx, id, rootID)
	if err != nil {
		return Node{}, err
	}
	return Node{NodeID: id, Properties: props, OutboundEdges: out, InboundEdges: in}, nil
}

// nodeGraphRoot finds the graph root a node belongs to by following its
// single inbound membership edge (every node has exactly one: the edge
// created alongside it in CreateNode/RecreateNode).
func nodeGraphRoot(tx storage.Tx, nodeID uuid.UUID) (uuid.UUID, error) {
	inKeys, err := tx.GetEdgesInbound(nodeID)
	if err != nil {
		return uuid.Nil, err
	}
	for _, k := range inKeys {
		v, ok, err := tx.GetVertex(k.From)
		if err != nil {
			return uuid.Nil, err
		}
		if ok && v.Type == rootVertexType {
			return k.From, nil
		}
	}
	return uuid.Nil, fmt.Errorf("%w: node %s has no graph root", ErrNodeNotFound, nodeID)
}
