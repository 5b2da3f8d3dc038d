package graphstore

import "errors"

// Sentinel errors returned by Store.Execute, per spec.md §9. Handlers wrap
// an underlying storage error with one of these via fmt.Errorf("...: %w",
// err) so callers can still errors.Is against the storage sentinels too.
var (
	// ErrDatastoreCreate names the failure to open a backing engine. No
	// function in this package returns it: NewStore takes an engine that is
	// already open and cannot fail.
	ErrDatastoreCreate = errors.New("graphstore: failed to create datastore")
	// ErrCreateTransaction is returned when the backing engine refuses to
	// begin a transaction, or fails to commit one.
	ErrCreateTransaction = errors.New("graphstore: failed to begin transaction")
	// ErrCreateNode is returned when a node vertex cannot be created.
	ErrCreateNode = errors.New("graphstore: failed to create node")
	// ErrCreateEdge is returned when an edge vertex/type cannot be minted.
	ErrCreateEdge = errors.New("graphstore: failed to create edge")
	// ErrCreateEdgeFailed is returned when the backing engine reports an
	// edge create as a no-op (it already existed under that type, which
	// should never happen since edge types are freshly minted UUIDs).
	ErrCreateEdgeFailed = errors.New("graphstore: edge already existed")
	// ErrInvalidID is returned when a command references a graph, node or
	// edge id that is not well-formed.
	ErrInvalidID = errors.New("graphstore: invalid id")
	// ErrNodeNotFound is returned when a command references a node or
	// graph root that does not exist.
	ErrNodeNotFound = errors.New("graphstore: node not found")
	// ErrStateIDCorrupt is returned when a graph root's _state_id property
	// is missing or cannot be decoded as a uint64.
	ErrStateIDCorrupt = errors.New("graphstore: state id corrupt")
	// ErrPropertiesCorrupt is returned when a node's or edge's stored
	// property blob cannot be decoded as JSON.
	ErrPropertiesCorrupt = errors.New("graphstore: properties corrupt")
	// ErrUndoBufferEmpty is returned by Undo when the undo stack is empty.
	ErrUndoBufferEmpty = errors.New("graphstore: undo buffer empty")
	// ErrRedoBufferEmpty is returned by Redo when the redo stack is empty.
	ErrRedoBufferEmpty = errors.New("graphstore: redo buffer empty")
	// ErrClosedStore is returned by AsyncStore.Execute once Close has been
	// called.
	ErrClosedStore = errors.New("graphstore: store closed")
)
