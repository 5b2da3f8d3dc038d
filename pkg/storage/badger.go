// Package storage - BadgerDB-backed implementation of Engine/Tx.
//
// BadgerEngine opens a BadgerDB instance and hands out *badgerTx values
// that wrap Badger's own *badger.Txn, so Commit/Rollback map directly onto
// Badger's native transaction commit/discard and inherit its ACID
// guarantees without the engine re-implementing a write-ahead log of its
// own (spec.md's Non-goal: durability guarantees beyond the backing
// engine's own).
package storage

import (
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerEngine is a persistent Engine backed by BadgerDB.
type BadgerEngine struct {
	db     *badger.DB
	logger *log.Logger
	closed bool
}

// NewBadgerEngine opens (creating if necessary) a BadgerDB instance rooted
// at dataDir.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	opts := badger.DefaultOptions(dataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", dataDir, err)
	}
	return &BadgerEngine{db: db, logger: log.New(os.Stderr, "storage: ", log.LstdFlags)}, nil
}

// NewBadgerEngineInMemory opens a BadgerDB instance that never touches
// disk, useful for tests that still want to exercise the Badger code
// path.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory badger: %w", err)
	}
	return &BadgerEngine{db: db, logger: log.New(os.Stderr, "storage: ", log.LstdFlags)}, nil
}

// Begin starts a new read-write transaction.
func (b *BadgerEngine) Begin() (Tx, error) {
	if b.closed {
		return nil, ErrClosed
	}
	return &badgerTx{txn: b.db.NewTransaction(true), logger: b.logger}, nil
}

// Close flushes and closes the underlying BadgerDB instance.
func (b *BadgerEngine) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.db.Close(); err != nil {
		b.logger.Printf("closing badger: %v", err)
		return err
	}
	return nil
}

// badgerTx adapts a *badger.Txn to the Tx interface using the key scheme
// in keys.go.
type badgerTx struct {
	txn    *badger.Txn
	logger *log.Logger
	done   bool
}

func (tx *badgerTx) CreateVertexWithType(typ string) (uuid.UUID, error) {
	id := uuid.New()
	if err := tx.CreateVertexWithID(id, typ); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (tx *badgerTx) CreateVertexWithID(id uuid.UUID, typ string) error {
	if tx.done {
		return ErrTxDone
	}
	key := vertexKey(id)
	if _, err := tx.txn.Get(key); err == nil {
		return ErrAlreadyExists
	} else if err != badger.ErrKeyNotFound {
		return fmt.Errorf("checking vertex existence: %w", err)
	}
	if err := tx.txn.Set(key, []byte(typ)); err != nil {
		return fmt.Errorf("writing vertex: %w", err)
	}
	if err := tx.txn.Set(vertexTypeKey(typ, id), nil); err != nil {
		return fmt.Errorf("writing vertex type index: %w", err)
	}
	return nil
}

func (tx *badgerTx) GetVertex(id uuid.UUID) (Vertex, bool, error) {
	item, err := tx.txn.Get(vertexKey(id))
	if err == badger.ErrKeyNotFound {
		return Vertex{}, false, nil
	}
	if err != nil {
		return Vertex{}, false, fmt.Errorf("reading vertex: %w", err)
	}
	var typ []byte
	if err := item.Value(func(v []byte) error { typ = append(typ, v...); return nil }); err != nil {
		return Vertex{}, false, fmt.Errorf("reading vertex type: %w", err)
	}
	return Vertex{ID: id, Type: string(typ)}, true, nil
}

func (tx *badgerTx) GetVerticesByType(typ string) ([]Vertex, error) {
	prefix := vertexTypePrefix(typ)
	var out []Vertex
	it := tx.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		idBytes := key[len(prefix):]
		var id uuid.UUID
		copy(id[:], idBytes)
		out = append(out, Vertex{ID: id, Type: typ})
	}
	return out, nil
}

func (tx *badgerTx) DeleteVertex(id uuid.UUID) error {
	v, ok, err := tx.GetVertex(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := tx.txn.Delete(vertexKey(id)); err != nil {
		return fmt.Errorf("deleting vertex: %w", err)
	}
	if err := tx.txn.Delete(vertexTypeKey(v.Type, id)); err != nil {
		return fmt.Errorf("deleting vertex type index: %w", err)
	}
	if err := tx.deleteByPrefix(vertexPropKeyPrefix(id)); err != nil {
		return fmt.Errorf("deleting vertex properties: %w", err)
	}
	return nil
}

func (tx *badgerTx) GetVertexProperty(id uuid.UUID, name string) ([]byte, error) {
	item, err := tx.txn.Get(vertexPropKey(id, name))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading vertex property: %w", err)
	}
	return item.ValueCopy(nil)
}

func (tx *badgerTx) SetVertexProperty(id uuid.UUID, name string, value []byte) error {
	if err := tx.txn.Set(vertexPropKey(id, name), value); err != nil {
		return fmt.Errorf("writing vertex property: %w", err)
	}
	return nil
}

func (tx *badgerTx) CreateEdge(from, to uuid.UUID, typ string) (bool, error) {
	key := edgeKey(from, to, typ)
	if _, err := tx.txn.Get(key); err == nil {
		return false, nil
	} else if err != badger.ErrKeyNotFound {
		return false, fmt.Errorf("checking edge existence: %w", err)
	}
	if _, ok, err := tx.GetVertex(from); err != nil {
		return false, err
	} else if !ok {
		return false, fmt.Errorf("%w: edge source %s", ErrNotFound, from)
	}
	if _, ok, err := tx.GetVertex(to); err != nil {
		return false, err
	} else if !ok {
		return false, fmt.Errorf("%w: edge target %s", ErrNotFound, to)
	}
	if err := tx.txn.Set(key, nil); err != nil {
		return false, fmt.Errorf("writing edge: %w", err)
	}
	if err := tx.txn.Set(edgeInboundKey(from, to, typ), nil); err != nil {
		return false, fmt.Errorf("writing edge inbound index: %w", err)
	}
	return true, nil
}

func (tx *badgerTx) GetEdgesOutbound(id uuid.UUID) ([]EdgeKey, error) {
	prefix := edgeOutboundPrefix(id)
	var out []EdgeKey
	it := tx.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		ek, err := parseEdgeOutboundKey(key, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ek)
	}
	return out, nil
}

func (tx *badgerTx) GetEdgesInbound(id uuid.UUID) ([]EdgeKey, error) {
	prefix := edgeInboundPrefix(id)
	var out []EdgeKey
	it := tx.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		ek, err := parseEdgeInboundKey(key, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ek)
	}
	return out, nil
}

func (tx *badgerTx) DeleteEdge(key EdgeKey) error {
	if _, err := tx.txn.Get(edgeKey(key.From, key.To, key.Type)); err == badger.ErrKeyNotFound {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("checking edge existence: %w", err)
	}
	if err := tx.txn.Delete(edgeKey(key.From, key.To, key.Type)); err != nil {
		return fmt.Errorf("deleting edge: %w", err)
	}
	if err := tx.txn.Delete(edgeInboundKey(key.From, key.To, key.Type)); err != nil {
		return fmt.Errorf("deleting edge inbound index: %w", err)
	}
	if err := tx.deleteByPrefix(edgePropKeyPrefix(key)); err != nil {
		return fmt.Errorf("deleting edge properties: %w", err)
	}
	return nil
}

func (tx *badgerTx) DeleteEdgesOutbound(id uuid.UUID) error {
	edges, err := tx.GetEdgesOutbound(id)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := tx.DeleteEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func (tx *badgerTx) DeleteEdgesInbound(id uuid.UUID) error {
	edges, err := tx.GetEdgesInbound(id)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := tx.DeleteEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func (tx *badgerTx) GetEdgeProperty(key EdgeKey, name string) ([]byte, error) {
	item, err := tx.txn.Get(edgePropKey(key, name))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading edge property: %w", err)
	}
	return item.ValueCopy(nil)
}

func (tx *badgerTx) SetEdgeProperty(key EdgeKey, name string, value []byte) error {
	if err := tx.txn.Set(edgePropKey(key, name), value); err != nil {
		return fmt.Errorf("writing edge property: %w", err)
	}
	return nil
}

func (tx *badgerTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	if err := tx.txn.Commit(); err != nil {
		tx.logger.Printf("commit failed: %v", err)
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (tx *badgerTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.txn.Discard()
	return nil
}

func (tx *badgerTx) deleteByPrefix(prefix []byte) error {
	it := tx.txn.NewIterator(badger.DefaultIteratorOptions)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, k := range keys {
		if err := tx.txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func vertexPropKeyPrefix(id uuid.UUID) []byte {
	b := make([]byte, 0, 1+16+1)
	b = append(b, prefixVertexProp)
	b = append(b, id[:]...)
	b = append(b, 0x00)
	return b
}

func edgePropKeyPrefix(key EdgeKey) []byte {
	b := make([]byte, 0, 1+16+16+1+len(key.Type)+1)
	b = append(b, prefixEdgeProp)
	b = append(b, key.From[:]...)
	b = append(b, key.To[:]...)
	b = append(b, 0x00)
	b = append(b, []byte(key.Type)...)
	b = append(b, 0x00)
	return b
}
