package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engineFactories lists every Engine implementation the contract tests
// below run against, so a bug specific to one backend (or a divergence
// between them) shows up immediately.
func engineFactories(t *testing.T) map[string]func() Engine {
	return map[string]func() Engine{
		"memory": func() Engine { return NewMemoryEngine() },
		"badger": func() Engine {
			e, err := NewBadgerEngineInMemory()
			require.NoError(t, err)
			return e
		},
	}
}

func forEachEngine(t *testing.T, fn func(t *testing.T, engine Engine)) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			engine := factory()
			defer engine.Close()
			fn(t, engine)
		})
	}
}

func TestCreateAndGetVertex(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)

		id, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)

		v, ok, err := tx.GetVertex(id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "node", v.Type)
		require.NoError(t, tx.Commit())
	})
}

func TestCreateVertexWithIDRejectsDuplicate(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		id := uuid.New()
		require.NoError(t, tx.CreateVertexWithID(id, "node"))
		err = tx.CreateVertexWithID(id, "node")
		assert.ErrorIs(t, err, ErrAlreadyExists)
		require.NoError(t, tx.Commit())
	})
}

func TestVertexPropertyRoundTrip(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		id, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)

		_, err = tx.GetVertexProperty(id, "data")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, tx.SetVertexProperty(id, "data", []byte(`{"a":1}`)))
		got, err := tx.GetVertexProperty(id, "data")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got))
		require.NoError(t, tx.Commit())
	})
}

func TestDeleteVertexRemovesIt(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		id, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		require.NoError(t, tx.DeleteVertex(id))
		_, ok, err := tx.GetVertex(id)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, tx.DeleteVertex(id), ErrNotFound)
		require.NoError(t, tx.Commit())
	})
}

func TestGetVerticesByType(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		a, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		b, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		_, err = tx.CreateVertexWithType("other")
		require.NoError(t, err)

		got, err := tx.GetVerticesByType("node")
		require.NoError(t, err)
		ids := []uuid.UUID{got[0].ID, got[1].ID}
		assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)
		require.NoError(t, tx.Commit())
	})
}

func TestCreateEdgeAndQueryBothDirections(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		from, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		to, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)

		created, err := tx.CreateEdge(from, to, "edge-type-1")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = tx.CreateEdge(from, to, "edge-type-1")
		require.NoError(t, err)
		assert.False(t, created, "re-creating the same (from,to,type) is a no-op")

		out, err := tx.GetEdgesOutbound(from)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, to, out[0].To)

		in, err := tx.GetEdgesInbound(to)
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, from, in[0].From)
		require.NoError(t, tx.Commit())
	})
}

func TestCreateEdgeRequiresExistingVertices(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		from, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		_, err = tx.CreateEdge(from, uuid.New(), "edge-type")
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, tx.Commit())
	})
}

func TestDeleteEdgeRemovesBothIndexEntries(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		from, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		to, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		_, err = tx.CreateEdge(from, to, "edge-type")
		require.NoError(t, err)

		key := EdgeKey{From: from, To: to, Type: "edge-type"}
		require.NoError(t, tx.DeleteEdge(key))

		out, err := tx.GetEdgesOutbound(from)
		require.NoError(t, err)
		assert.Empty(t, out)
		in, err := tx.GetEdgesInbound(to)
		require.NoError(t, err)
		assert.Empty(t, in)
		require.NoError(t, tx.Commit())
	})
}

func TestEdgePropertyRoundTrip(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		from, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		to, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		_, err = tx.CreateEdge(from, to, "edge-type")
		require.NoError(t, err)

		key := EdgeKey{From: from, To: to, Type: "edge-type"}
		require.NoError(t, tx.SetEdgeProperty(key, "data", []byte(`{"weight":3}`)))
		got, err := tx.GetEdgeProperty(key, "data")
		require.NoError(t, err)
		assert.JSONEq(t, `{"weight":3}`, string(got))
		require.NoError(t, tx.Commit())
	})
}

func TestRollbackUndoesEverything(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		id, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		require.NoError(t, tx.SetVertexProperty(id, "data", []byte(`{}`)))
		require.NoError(t, tx.Rollback())

		tx2, err := engine.Begin()
		require.NoError(t, err)
		_, ok, err := tx2.GetVertex(id)
		require.NoError(t, err)
		assert.False(t, ok, "rolled back vertex must not exist")
		require.NoError(t, tx2.Commit())
	})
}

func TestRollbackOfPartialDeleteNodeCascadeRestoresEdges(t *testing.T) {
	// Regression case for the handler shape used by graphstore.DeleteNode:
	// delete every incident edge, then the vertex. If something later in
	// the same transaction fails, Rollback must put the edges back too,
	// not just the vertex.
	forEachEngine(t, func(t *testing.T, engine Engine) {
		tx, err := engine.Begin()
		require.NoError(t, err)
		a, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		b, err := tx.CreateVertexWithType("node")
		require.NoError(t, err)
		_, err = tx.CreateEdge(a, b, "edge-type")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		tx2, err := engine.Begin()
		require.NoError(t, err)
		require.NoError(t, tx2.DeleteEdgesOutbound(a))
		require.NoError(t, tx2.DeleteVertex(a))
		require.NoError(t, tx2.Rollback())

		tx3, err := engine.Begin()
		require.NoError(t, err)
		_, ok, err := tx3.GetVertex(a)
		require.NoError(t, err)
		assert.True(t, ok)
		out, err := tx3.GetEdgesOutbound(a)
		require.NoError(t, err)
		assert.Len(t, out, 1)
		require.NoError(t, tx3.Commit())
	})
}
