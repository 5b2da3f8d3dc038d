package server

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/graphstore/pkg/graphstore"
)

// commandEnvelope is the wire shape clients POST to /execute. Which of the
// id/edge fields are read depends on Type; see the cases in DecodeCommand
// and decodeMutateStateKind.
type commandEnvelope struct {
	Type       string                `json:"type"`
	GraphID    string                `json:"graph_id,omitempty"`
	NodeID     string                `json:"node_id,omitempty"`
	Edge       *edgeEnvelope         `json:"edge,omitempty"`
	From       string                `json:"from,omitempty"`
	To         string                `json:"to,omitempty"`
	Properties graphstore.Properties `json:"properties,omitempty"`
}

type edgeEnvelope struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (e edgeEnvelope) toEdge() (graphstore.Edge, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return graphstore.Edge{}, fmt.Errorf("%w: edge id %q", graphstore.ErrInvalidID, e.ID)
	}
	from, err := uuid.Parse(e.From)
	if err != nil {
		return graphstore.Edge{}, fmt.Errorf("%w: edge from %q", graphstore.ErrInvalidID, e.From)
	}
	to, err := uuid.Parse(e.To)
	if err != nil {
		return graphstore.Edge{}, fmt.Errorf("%w: edge to %q", graphstore.ErrInvalidID, e.To)
	}
	return graphstore.Edge{ID: id, From: from, To: to}, nil
}

func fromEdge(e graphstore.Edge) edgeEnvelope {
	return edgeEnvelope{ID: e.ID.String(), From: e.From.String(), To: e.To.String()}
}

// DecodeCommand parses a JSON command envelope into a graphstore.Command.
// RecreateNode/RecreateEdge/CreateGraphWithID are not reachable here.
// RecreateNode and RecreateEdge only ever arise from the store's own
// inverse computation (undo/redo); CreateGraphWithID is available only to
// Go callers of the store.
func DecodeCommand(body []byte) (graphstore.Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("server: decoding command: %w", err)
	}

	switch env.Type {
	case "CreateGraph":
		return graphstore.CreateGraph{Properties: env.Properties}, nil
	case "DeleteGraph":
		graphID, err := uuid.Parse(env.GraphID)
		if err != nil {
			return nil, fmt.Errorf("%w: graph_id %q", graphstore.ErrInvalidID, env.GraphID)
		}
		return graphstore.DeleteGraph{GraphID: graphID}, nil
	case "Undo":
		return graphstore.Undo{}, nil
	case "Redo":
		return graphstore.Redo{}, nil
	case "ListGraphs":
		return graphstore.Query{Kind: graphstore.ListGraphs{}}, nil
	case "ReadNode":
		nodeID, err := uuid.Parse(env.NodeID)
		if err != nil {
			return nil, fmt.Errorf("%w: node_id %q", graphstore.ErrInvalidID, env.NodeID)
		}
		return graphstore.Query{Kind: graphstore.ReadNode{NodeID: nodeID}}, nil
	case "ReadGraph":
		graphID, err := uuid.Parse(env.GraphID)
		if err != nil {
			return nil, fmt.Errorf("%w: graph_id %q", graphstore.ErrInvalidID, env.GraphID)
		}
		return graphstore.Query{Kind: graphstore.ReadGraph{GraphID: graphID}}, nil
	case "ReadEdgeProperties":
		if env.Edge == nil {
			return nil, fmt.Errorf("server: ReadEdgeProperties requires \"edge\"")
		}
		edge, err := env.Edge.toEdge()
		if err != nil {
			return nil, err
		}
		return graphstore.Query{Kind: graphstore.ReadEdgeProperties{Edge: edge}}, nil
	case "CreateNode", "UpdateNode", "DeleteNode", "CreateEdge", "UpdateEdge", "DeleteEdge":
		graphID, err := uuid.Parse(env.GraphID)
		if err != nil {
			return nil, fmt.Errorf("%w: graph_id %q", graphstore.ErrInvalidID, env.GraphID)
		}
		kind, err := decodeMutateStateKind(env)
		if err != nil {
			return nil, err
		}
		return graphstore.MutateState{GraphID: graphID, Kind: kind}, nil
	default:
		return nil, fmt.Errorf("server: unknown command type %q", env.Type)
	}
}

func decodeMutateStateKind(env commandEnvelope) (graphstore.MutateStateKind, error) {
	switch env.Type {
	case "CreateNode":
		return graphstore.CreateNode{Properties: env.Properties}, nil
	case "UpdateNode":
		nodeID, err := uuid.Parse(env.NodeID)
		if err != nil {
			return nil, fmt.Errorf("%w: node_id %q", graphstore.ErrInvalidID, env.NodeID)
		}
		return graphstore.UpdateNode{NodeID: nodeID, Properties: env.Properties}, nil
	case "DeleteNode":
		nodeID, err := uuid.Parse(env.NodeID)
		if err != nil {
			return nil, fmt.Errorf("%w: node_id %q", graphstore.ErrInvalidID, env.NodeID)
		}
		return graphstore.DeleteNode{NodeID: nodeID}, nil
	case "CreateEdge":
		from, err := uuid.Parse(env.From)
		if err != nil {
			return nil, fmt.Errorf("%w: from %q", graphstore.ErrInvalidID, env.From)
		}
		to, err := uuid.Parse(env.To)
		if err != nil {
			return nil, fmt.Errorf("%w: to %q", graphstore.ErrInvalidID, env.To)
		}
		return graphstore.CreateEdge{From: from, To: to, Properties: env.Properties}, nil
	case "UpdateEdge":
		if env.Edge == nil {
			return nil, fmt.Errorf("server: UpdateEdge requires \"edge\"")
		}
		edge, err := env.Edge.toEdge()
		if err != nil {
			return nil, err
		}
		return graphstore.UpdateEdge{Edge: edge, Properties: env.Properties}, nil
	case "DeleteEdge":
		if env.Edge == nil {
			return nil, fmt.Errorf("server: DeleteEdge requires \"edge\"")
		}
		edge, err := env.Edge.toEdge()
		if err != nil {
			return nil, err
		}
		return graphstore.DeleteEdge{Edge: edge}, nil
	default:
		return nil, fmt.Errorf("server: unknown mutate-state type %q", env.Type)
	}
}

// replyEnvelope is the wire shape returned from /execute.
type replyEnvelope struct {
	ID         string                `json:"id,omitempty"`
	Node       *nodeEnvelope         `json:"node,omitempty"`
	Graph      *graphEnvelope        `json:"graph,omitempty"`
	Nodes      []nodeEnvelope        `json:"nodes,omitempty"`
	Properties graphstore.Properties `json:"properties,omitempty"`
}

type nodeEnvelope struct {
	NodeID        string                `json:"node_id"`
	Properties    graphstore.Properties `json:"properties"`
	OutboundEdges []edgeEnvelope        `json:"outbound_edges,omitempty"`
	InboundEdges  []edgeEnvelope        `json:"inbound_edges,omitempty"`
}

type graphEnvelope struct {
	Nodes   []nodeEnvelope `json:"nodes"`
	StateID uint64         `json:"state_id"`
}

func fromNode(n graphstore.Node) nodeEnvelope {
	out := nodeEnvelope{NodeID: n.NodeID.String(), Properties: n.Properties}
	for _, e := range n.OutboundEdges {
		out.OutboundEdges = append(out.OutboundEdges, fromEdge(e))
	}
	for _, e := range n.InboundEdges {
		out.InboundEdges = append(out.InboundEdges, fromEdge(e))
	}
	return out
}

// EncodeReply converts a graphstore.Reply into its JSON wire envelope.
func EncodeReply(r graphstore.Reply) replyEnvelope {
	switch v := r.(type) {
	case graphstore.IDReply:
		return replyEnvelope{ID: v.ID.String()}
	case graphstore.NodeReply:
		n := fromNode(v.Node)
		return replyEnvelope{Node: &n}
	case graphstore.GraphReply:
		nodes := make([]nodeEnvelope, len(v.Graph.Nodes))
		for i, n := range v.Graph.Nodes {
			nodes[i] = fromNode(n)
		}
		return replyEnvelope{Graph: &graphEnvelope{Nodes: nodes, StateID: v.Graph.StateID}}
	case graphstore.NodeListReply:
		nodes := make([]nodeEnvelope, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = fromNode(n)
		}
		return replyEnvelope{Nodes: nodes}
	case graphstore.PropertiesReply:
		return replyEnvelope{Properties: v.Properties}
	default:
		return replyEnvelope{}
	}
}
