package storage

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryEngine is an in-memory Engine, useful for tests and for running
// the core store without a data directory. A single mutex makes it
// single-writer-at-a-time, matching spec.md §5's single-writer scheduling
// model; only one *memoryTx can be open at once.
type MemoryEngine struct {
	mu sync.Mutex

	vertices    map[uuid.UUID]Vertex
	vertexProps map[uuid.UUID]map[string][]byte
	edges       map[EdgeKey]struct{}
	edgeProps   map[EdgeKey]map[string][]byte
	byType      map[string]map[uuid.UUID]struct{}
	outboundIdx map[uuid.UUID]map[EdgeKey]struct{}
	inboundIdx  map[uuid.UUID]map[EdgeKey]struct{}
	closed      bool
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		vertices:    make(map[uuid.UUID]Vertex),
		vertexProps: make(map[uuid.UUID]map[string][]byte),
		edges:       make(map[EdgeKey]struct{}),
		edgeProps:   make(map[EdgeKey]map[string][]byte),
		byType:      make(map[string]map[uuid.UUID]struct{}),
		outboundIdx: make(map[uuid.UUID]map[EdgeKey]struct{}),
		inboundIdx:  make(map[uuid.UUID]map[EdgeKey]struct{}),
	}
}

// Begin locks the engine for the lifetime of the transaction.
func (m *MemoryEngine) Begin() (Tx, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	return &memoryTx{engine: m}, nil
}

// Close marks the engine closed. Safe to call once; further Begin calls
// fail with ErrClosed.
func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memoryTx mutates MemoryEngine's maps directly while the engine's mutex
// is held, recording an inverse closure for every mutation it performs.
// Rollback replays those closures in reverse (last writer first) so a
// handler that fails partway through a multi-step mutation — e.g. delete
// edges then delete vertex, where the vertex delete fails — leaves the
// engine exactly as it found it.
type memoryTx struct {
	engine *MemoryEngine
	undo   []func()
	done   bool
}

func (tx *memoryTx) record(inverse func()) {
	tx.undo = append(tx.undo, inverse)
}

func (tx *memoryTx) CreateVertexWithType(typ string) (uuid.UUID, error) {
	id := uuid.New()
	if err := tx.CreateVertexWithID(id, typ); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (tx *memoryTx) CreateVertexWithID(id uuid.UUID, typ string) error {
	if tx.done {
		return ErrTxDone
	}
	e := tx.engine
	if _, exists := e.vertices[id]; exists {
		return ErrAlreadyExists
	}
	e.vertices[id] = Vertex{ID: id, Type: typ}
	if e.byType[typ] == nil {
		e.byType[typ] = make(map[uuid.UUID]struct{})
	}
	e.byType[typ][id] = struct{}{}
	tx.record(func() {
		delete(e.vertices, id)
		delete(e.byType[typ], id)
	})
	return nil
}

func (tx *memoryTx) GetVertex(id uuid.UUID) (Vertex, bool, error) {
	v, ok := tx.engine.vertices[id]
	return v, ok, nil
}

func (tx *memoryTx) GetVerticesByType(typ string) ([]Vertex, error) {
	ids := tx.engine.byType[typ]
	out := make([]Vertex, 0, len(ids))
	for id := range ids {
		out = append(out, tx.engine.vertices[id])
	}
	return out, nil
}

func (tx *memoryTx) DeleteVertex(id uuid.UUID) error {
	e := tx.engine
	v, ok := e.vertices[id]
	if !ok {
		return ErrNotFound
	}
	props := e.vertexProps[id]
	delete(e.vertices, id)
	delete(e.byType[v.Type], id)
	delete(e.vertexProps, id)
	tx.record(func() {
		e.vertices[id] = v
		if e.byType[v.Type] == nil {
			e.byType[v.Type] = make(map[uuid.UUID]struct{})
		}
		e.byType[v.Type][id] = struct{}{}
		if props != nil {
			e.vertexProps[id] = props
		}
	})
	return nil
}

func (tx *memoryTx) GetVertexProperty(id uuid.UUID, name string) ([]byte, error) {
	props, ok := tx.engine.vertexProps[id]
	if !ok {
		return nil, ErrNotFound
	}
	v, ok := props[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (tx *memoryTx) SetVertexProperty(id uuid.UUID, name string, value []byte) error {
	e := tx.engine
	prev, had := e.vertexProps[id][name]
	if e.vertexProps[id] == nil {
		e.vertexProps[id] = make(map[string][]byte)
	}
	e.vertexProps[id][name] = append([]byte(nil), value...)
	tx.record(func() {
		if had {
			e.vertexProps[id][name] = prev
		} else {
			delete(e.vertexProps[id], name)
		}
	})
	return nil
}

func (tx *memoryTx) CreateEdge(from, to uuid.UUID, typ string) (bool, error) {
	e := tx.engine
	key := EdgeKey{From: from, To: to, Type: typ}
	if _, exists := e.edges[key]; exists {
		return false, nil
	}
	if _, ok := e.vertices[from]; !ok {
		return false, ErrNotFound
	}
	if _, ok := e.vertices[to]; !ok {
		return false, ErrNotFound
	}
	e.edges[key] = struct{}{}
	if e.outboundIdx[from] == nil {
		e.outboundIdx[from] = make(map[EdgeKey]struct{})
	}
	e.outboundIdx[from][key] = struct{}{}
	if e.inboundIdx[to] == nil {
		e.inboundIdx[to] = make(map[EdgeKey]struct{})
	}
	e.inboundIdx[to][key] = struct{}{}
	tx.record(func() {
		delete(e.edges, key)
		delete(e.outboundIdx[from], key)
		delete(e.inboundIdx[to], key)
	})
	return true, nil
}

func (tx *memoryTx) GetEdgesOutbound(id uuid.UUID) ([]EdgeKey, error) {
	idx := tx.engine.outboundIdx[id]
	out := make([]EdgeKey, 0, len(idx))
	for k := range idx {
		out = append(out, k)
	}
	return out, nil
}

func (tx *memoryTx) GetEdgesInbound(id uuid.UUID) ([]EdgeKey, error) {
	idx := tx.engine.inboundIdx[id]
	out := make([]EdgeKey, 0, len(idx))
	for k := range idx {
		out = append(out, k)
	}
	return out, nil
}

func (tx *memoryTx) DeleteEdge(key EdgeKey) error {
	e := tx.engine
	if _, ok := e.edges[key]; !ok {
		return ErrNotFound
	}
	props := e.edgeProps[key]
	delete(e.edges, key)
	delete(e.outboundIdx[key.From], key)
	delete(e.inboundIdx[key.To], key)
	delete(e.edgeProps, key)
	tx.record(func() {
		e.edges[key] = struct{}{}
		if e.outboundIdx[key.From] == nil {
			e.outboundIdx[key.From] = make(map[EdgeKey]struct{})
		}
		e.outboundIdx[key.From][key] = struct{}{}
		if e.inboundIdx[key.To] == nil {
			e.inboundIdx[key.To] = make(map[EdgeKey]struct{})
		}
		e.inboundIdx[key.To][key] = struct{}{}
		if props != nil {
			e.edgeProps[key] = props
		}
	})
	return nil
}

func (tx *memoryTx) DeleteEdgesOutbound(id uuid.UUID) error {
	edges, _ := tx.GetEdgesOutbound(id)
	for _, k := range edges {
		if err := tx.DeleteEdge(k); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memoryTx) DeleteEdgesInbound(id uuid.UUID) error {
	edges, _ := tx.GetEdgesInbound(id)
	for _, k := range edges {
		if err := tx.DeleteEdge(k); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memoryTx) GetEdgeProperty(key EdgeKey, name string) ([]byte, error) {
	props, ok := tx.engine.edgeProps[key]
	if !ok {
		return nil, ErrNotFound
	}
	v, ok := props[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (tx *memoryTx) SetEdgeProperty(key EdgeKey, name string, value []byte) error {
	e := tx.engine
	prev, had := e.edgeProps[key][name]
	if e.edgeProps[key] == nil {
		e.edgeProps[key] = make(map[string][]byte)
	}
	e.edgeProps[key][name] = append([]byte(nil), value...)
	tx.record(func() {
		if had {
			e.edgeProps[key][name] = prev
		} else {
			delete(e.edgeProps[key], name)
		}
	})
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.engine.mu.Unlock()
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.engine.mu.Unlock()
	return nil
}
