package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphstore/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewMemoryEngine())
}

func mustCreateGraph(t *testing.T, s *Store) GraphID {
	t.Helper()
	reply, err := s.Execute(CreateGraph{Properties: Properties{"name": "g"}})
	require.NoError(t, err)
	id, ok := AsID(reply)
	require.True(t, ok)
	return id
}

func mustCreateNode(t *testing.T, s *Store, graphID GraphID, props Properties) NodeID {
	t.Helper()
	reply, err := s.Execute(MutateState{GraphID: graphID, Kind: CreateNode{Properties: props}})
	require.NoError(t, err)
	id, ok := AsID(reply)
	require.True(t, ok)
	return id
}

func TestCreateGraphAndReadBack(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)

	reply, err := s.Execute(Query{Kind: ReadGraph{GraphID: graphID}})
	require.NoError(t, err)
	graph, ok := AsGraph(reply)
	require.True(t, ok)
	assert.Empty(t, graph.Nodes)
	assert.Equal(t, uint64(0), graph.StateID)
}

func TestCreateNodeAddsItToGraph(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	nodeID := mustCreateNode(t, s, graphID, Properties{"label": "alice"})

	reply, err := s.Execute(Query{Kind: ReadNode{NodeID: nodeID}})
	require.NoError(t, err)
	node, ok := AsNode(reply)
	require.True(t, ok)
	assert.Equal(t, "alice", node.Properties["label"])
	assert.Empty(t, node.OutboundEdges)
	assert.Empty(t, node.InboundEdges)

	reply, err = s.Execute(Query{Kind: ReadGraph{GraphID: graphID}})
	require.NoError(t, err)
	graph, ok := AsGraph(reply)
	require.True(t, ok)
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, nodeID, graph.Nodes[0].NodeID)
	assert.Equal(t, uint64(1), graph.StateID, "state id bumps once per mutation")
}

func TestCreateEdgeAndReadProperties(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	a := mustCreateNode(t, s, graphID, nil)
	b := mustCreateNode(t, s, graphID, nil)

	reply, err := s.Execute(MutateState{
		GraphID: graphID,
		Kind:    CreateEdge{From: a, To: b, Properties: Properties{"since": 2020}},
	})
	require.NoError(t, err)
	edgeID, ok := AsID(reply)
	require.True(t, ok)

	edge := Edge{ID: edgeID, From: a, To: b}
	reply, err = s.Execute(Query{Kind: ReadEdgeProperties{Edge: edge}})
	require.NoError(t, err)
	props, ok := AsProperties(reply)
	require.True(t, ok)
	assert.EqualValues(t, 2020, props["since"])

	reply, err = s.Execute(Query{Kind: ReadNode{NodeID: a}})
	require.NoError(t, err)
	node, ok := AsNode(reply)
	require.True(t, ok)
	require.Len(t, node.OutboundEdges, 1)
	assert.Equal(t, edgeID, node.OutboundEdges[0].ID)
}

func TestUpdateNodeRoundTripsOldPropertiesIntoInverse(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	nodeID := mustCreateNode(t, s, graphID, Properties{"v": 1})

	_, err := s.Execute(MutateState{
		GraphID: graphID,
		Kind:    UpdateNode{NodeID: nodeID, Properties: Properties{"v": 2}},
	})
	require.NoError(t, err)

	reply, err := s.Execute(Query{Kind: ReadNode{NodeID: nodeID}})
	require.NoError(t, err)
	node, _ := AsNode(reply)
	assert.EqualValues(t, 2, node.Properties["v"])

	_, err = s.Execute(Undo{})
	require.NoError(t, err)

	reply, err = s.Execute(Query{Kind: ReadNode{NodeID: nodeID}})
	require.NoError(t, err)
	node, _ = AsNode(reply)
	assert.EqualValues(t, 1, node.Properties["v"])
}

func TestUndoThenRedoCreateNode(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	nodeID := mustCreateNode(t, s, graphID, Properties{"v": 1})

	_, err := s.Execute(Undo{})
	require.NoError(t, err)

	reply, err := s.Execute(Query{Kind: ReadNode{NodeID: nodeID}})
	assert.Error(t, err)
	_ = reply

	_, err = s.Execute(Redo{})
	require.NoError(t, err)

	reply, err = s.Execute(Query{Kind: ReadNode{NodeID: nodeID}})
	require.NoError(t, err)
	node, ok := AsNode(reply)
	require.True(t, ok)
	assert.EqualValues(t, 1, node.Properties["v"])
}

func TestPlainMutationClearsRedoStack(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	mustCreateNode(t, s, graphID, nil)

	_, err := s.Execute(Undo{})
	require.NoError(t, err)
	assert.Len(t, s.RedoBuf(), 1)

	mustCreateNode(t, s, graphID, nil)
	assert.Empty(t, s.RedoBuf(), "a fresh plain mutation must clear the redo stack")

	_, err = s.Execute(Redo{})
	assert.ErrorIs(t, err, ErrRedoBufferEmpty)
}

func TestUndoOnEmptyStackFails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Execute(Undo{})
	assert.ErrorIs(t, err, ErrUndoBufferEmpty)
}

func TestDeleteNodeCascadesEdgesAndUndoRestoresThem(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	a := mustCreateNode(t, s, graphID, Properties{"who": "a"})
	b := mustCreateNode(t, s, graphID, Properties{"who": "b"})

	reply, err := s.Execute(MutateState{
		GraphID: graphID,
		Kind:    CreateEdge{From: a, To: b, Properties: Properties{"w": 1}},
	})
	require.NoError(t, err)
	edgeID, _ := AsID(reply)

	_, err = s.Execute(MutateState{GraphID: graphID, Kind: DeleteNode{NodeID: a}})
	require.NoError(t, err)

	_, err = s.Execute(Query{Kind: ReadNode{NodeID: a}})
	assert.Error(t, err)

	_, err = s.Execute(Undo{})
	require.NoError(t, err)

	reply, err = s.Execute(Query{Kind: ReadNode{NodeID: a}})
	require.NoError(t, err)
	node, ok := AsNode(reply)
	require.True(t, ok)
	assert.Equal(t, "a", node.Properties["who"])
	require.Len(t, node.OutboundEdges, 1)
	assert.Equal(t, edgeID, node.OutboundEdges[0].ID)

	reply, err = s.Execute(Query{Kind: ReadEdgeProperties{Edge: Edge{ID: edgeID, From: a, To: b}}})
	require.NoError(t, err)
	props, _ := AsProperties(reply)
	assert.EqualValues(t, 1, props["w"])
}

func TestDeleteEdgeAndUndo(t *testing.T) {
	// DeleteEdge's inverse is a plain CreateEdge (see DESIGN.md's Open
	// Questions): undo restores a same-endpoint edge with the same
	// properties, under a freshly minted id, not the original edge id.
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	a := mustCreateNode(t, s, graphID, nil)
	b := mustCreateNode(t, s, graphID, nil)

	reply, err := s.Execute(MutateState{
		GraphID: graphID,
		Kind:    CreateEdge{From: a, To: b, Properties: Properties{"w": 7}},
	})
	require.NoError(t, err)
	edgeID, _ := AsID(reply)
	edge := Edge{ID: edgeID, From: a, To: b}

	_, err = s.Execute(MutateState{GraphID: graphID, Kind: DeleteEdge{Edge: edge}})
	require.NoError(t, err)

	reply, err = s.Execute(Query{Kind: ReadNode{NodeID: a}})
	require.NoError(t, err)
	node, _ := AsNode(reply)
	assert.Empty(t, node.OutboundEdges)

	_, err = s.Execute(Undo{})
	require.NoError(t, err)

	reply, err = s.Execute(Query{Kind: ReadNode{NodeID: a}})
	require.NoError(t, err)
	node, ok := AsNode(reply)
	require.True(t, ok)
	require.Len(t, node.OutboundEdges, 1)
	restored := node.OutboundEdges[0]
	assert.Equal(t, b, restored.To)
	assert.NotEqual(t, edgeID, restored.ID, "undo of DeleteEdge mints a fresh edge id")

	reply, err = s.Execute(Query{Kind: ReadEdgeProperties{Edge: restored}})
	require.NoError(t, err)
	props, _ := AsProperties(reply)
	assert.EqualValues(t, 7, props["w"])
}

func TestDeleteGraphCascadesAndIsIrreversible(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	a := mustCreateNode(t, s, graphID, nil)
	b := mustCreateNode(t, s, graphID, nil)
	_, err := s.Execute(MutateState{GraphID: graphID, Kind: CreateEdge{From: a, To: b}})
	require.NoError(t, err)

	_, err = s.Execute(DeleteGraph{GraphID: graphID})
	require.NoError(t, err)

	_, err = s.Execute(Query{Kind: ReadGraph{GraphID: graphID}})
	assert.Error(t, err)
	_, err = s.Execute(Query{Kind: ReadNode{NodeID: a}})
	assert.Error(t, err)

	_, err = s.Execute(Undo{})
	assert.ErrorIs(t, err, ErrUndoBufferEmpty, "DeleteGraph must not be undoable")
}

func TestListGraphsReturnsEveryRoot(t *testing.T) {
	s := newTestStore(t)
	g1 := mustCreateGraph(t, s)
	g2 := mustCreateGraph(t, s)

	reply, err := s.Execute(Query{Kind: ListGraphs{}})
	require.NoError(t, err)
	nodes, ok := AsNodeList(reply)
	require.True(t, ok)
	ids := []GraphID{nodes[0].NodeID, nodes[1].NodeID}
	assert.ElementsMatch(t, []GraphID{g1, g2}, ids)
}

func TestParallelEdgesBetweenSameEndpointsAreDistinct(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	a := mustCreateNode(t, s, graphID, nil)
	b := mustCreateNode(t, s, graphID, nil)

	reply, err := s.Execute(MutateState{
		GraphID: graphID,
		Kind:    CreateEdge{From: a, To: b, Properties: Properties{"k": "a"}},
	})
	require.NoError(t, err)
	e1, _ := AsID(reply)

	reply, err = s.Execute(MutateState{
		GraphID: graphID,
		Kind:    CreateEdge{From: a, To: b, Properties: Properties{"k": "b"}},
	})
	require.NoError(t, err)
	e2, _ := AsID(reply)

	assert.NotEqual(t, e1, e2)

	reply, err = s.Execute(Query{Kind: ReadNode{NodeID: a}})
	require.NoError(t, err)
	node, ok := AsNode(reply)
	require.True(t, ok)
	require.Len(t, node.OutboundEdges, 2)
	ids := []EdgeID{node.OutboundEdges[0].ID, node.OutboundEdges[1].ID}
	assert.ElementsMatch(t, []EdgeID{e1, e2}, ids)
}

func TestHistoryBufRecordsTopLevelCommandsOnly(t *testing.T) {
	s := newTestStore(t)
	graphID := mustCreateGraph(t, s)
	mustCreateNode(t, s, graphID, nil)
	_, err := s.Execute(Undo{})
	require.NoError(t, err)

	history := s.HistoryBuf()
	require.Len(t, history, 3)
	_, isUndo := history[2].(Undo)
	assert.True(t, isUndo)
}
