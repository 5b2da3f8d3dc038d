// Package storage provides the backing vertex / typed-edge key-value engine
// consumed by the graph mapping layer in pkg/graphstore.
//
// The engine is deliberately small: a vertex is an id (UUID) plus a type
// string; an edge is a directed (from, to, type) triple, so a fresh type
// string per edge gives every edge its own identity even when several
// edges share the same endpoints. Both vertices and edges carry a set of
// named properties (raw JSON values) addressed by name — the graph mapping
// layer above only ever uses a single name, "data", but the engine itself
// has no opinion about that.
//
// Two implementations are provided: BadgerEngine (persistent, backed by
// BadgerDB) and MemoryEngine (in-memory, for tests and the `--in-memory`
// CLI flag). Both satisfy Engine/Tx identically so callers can swap one
// for the other without touching graphstore.
package storage

import (
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors returned by both engine implementations.
var (
	ErrNotFound      = errors.New("storage: not found")
	ErrAlreadyExists = errors.New("storage: already exists")
	ErrClosed        = errors.New("storage: engine closed")
	ErrTxDone        = errors.New("storage: transaction already committed or rolled back")
)

// Vertex is a typed, UUID-identified node in the backing engine.
type Vertex struct {
	ID   uuid.UUID
	Type string
}

// EdgeKey identifies an engine edge by its (from, to, type) triple, which
// the engine treats as the edge's primary key.
type EdgeKey struct {
	From uuid.UUID
	To   uuid.UUID
	Type string
}

// Engine opens transactions against the backing store.
type Engine interface {
	// Begin starts a new read-write transaction.
	Begin() (Tx, error)
	// Close releases any resources held by the engine.
	Close() error
}

// Tx is a single transaction against the backing store. All reads and
// writes performed through a Tx become visible atomically on Commit, or
// are discarded entirely on Rollback.
type Tx interface {
	// CreateVertexWithType mints a fresh UUID and creates a vertex of the
	// given type.
	CreateVertexWithType(typ string) (uuid.UUID, error)
	// CreateVertexWithID creates a vertex with a caller-supplied id. Fails
	// with ErrAlreadyExists if a vertex with that id already exists.
	CreateVertexWithID(id uuid.UUID, typ string) error
	// GetVertex returns the vertex with the given id, or ok=false if none
	// exists.
	GetVertex(id uuid.UUID) (v Vertex, ok bool, err error)
	// GetVerticesByType returns every vertex of the given type.
	GetVerticesByType(typ string) ([]Vertex, error)
	// DeleteVertex removes a vertex. It does not touch incident edges;
	// callers must delete those first (see DeleteEdgesOutbound/Inbound).
	DeleteVertex(id uuid.UUID) error

	// GetVertexProperty returns the named property of a vertex, or
	// ErrNotFound if no value has been set under that name.
	GetVertexProperty(id uuid.UUID, name string) ([]byte, error)
	// SetVertexProperty sets (overwriting) the named property of a
	// vertex.
	SetVertexProperty(id uuid.UUID, name string, value []byte) error

	// CreateEdge creates the edge (from, to, typ). The returned bool is
	// false when the edge already existed (no-op); the core treats that
	// as a failure since edge types are always freshly minted.
	CreateEdge(from, to uuid.UUID, typ string) (created bool, err error)
	// GetEdgesOutbound returns every edge whose From is id.
	GetEdgesOutbound(id uuid.UUID) ([]EdgeKey, error)
	// GetEdgesInbound returns every edge whose To is id.
	GetEdgesInbound(id uuid.UUID) ([]EdgeKey, error)
	// DeleteEdge removes a single edge.
	DeleteEdge(key EdgeKey) error
	// DeleteEdgesOutbound removes every edge whose From is id.
	DeleteEdgesOutbound(id uuid.UUID) error
	// DeleteEdgesInbound removes every edge whose To is id.
	DeleteEdgesInbound(id uuid.UUID) error

	// GetEdgeProperty returns the named property of an edge, or
	// ErrNotFound if no value has been set under that name.
	GetEdgeProperty(key EdgeKey, name string) ([]byte, error)
	// SetEdgeProperty sets (overwriting) the named property of an edge.
	SetEdgeProperty(key EdgeKey, name string, value []byte) error

	// Commit makes all writes performed through the transaction visible.
	Commit() error
	// Rollback discards all writes performed through the transaction.
	// Safe to call after Commit (no-op).
	Rollback() error
}
