package graphstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/orneryd/graphstore/pkg/storage"
)

// opTag distinguishes a top-level mutation from one replayed by Undo or
// Redo, which determines which stack (if any) receives the freshly
// computed inverse.
type opTag int

const (
	tagPlain opTag = iota
	tagUndo
	tagRedo
)

// Store is the single synchronous entry point onto a graph collection. It
// owns no persistence of its own beyond the storage.Engine it is handed at
// construction; all durability comes from that engine.
type Store struct {
	mu     sync.Mutex
	engine storage.Engine

	// undo and redo hold inverse commands directly: a MutateState for an
	// inverted node/edge mutation, or a DeleteGraph for an inverted
	// CreateGraph/CreateGraphWithID. Executing a DeleteGraph never pushes
	// anything onto either stack — it has no inverse (spec.md §9's pinned
	// convention).
	undo    []Command
	redo    []Command
	history []Command
}

// NewStore wraps an already-open storage.Engine. The caller retains
// ownership of engine and must Close it itself.
func NewStore(engine storage.Engine) *Store {
	return &Store{engine: engine}
}

// UndoBuf returns a snapshot of the undo stack, most recent last.
func (s *Store) UndoBuf() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.undo))
	copy(out, s.undo)
	return out
}

// RedoBuf returns a snapshot of the redo stack, most recent last.
func (s *Store) RedoBuf() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.redo))
	copy(out, s.redo)
	return out
}

// HistoryBuf returns every command successfully dispatched through
// Execute, in order. It is append-only for the lifetime of the Store.
func (s *Store) HistoryBuf() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.history))
	copy(out, s.history)
	return out
}

// Execute is the store's single dispatch entry point: every Command,
// mutating or not, is submitted here and answered with a Reply. A command
// that fails is never appended to history — per spec.md §7, a failing
// command never executed, so it leaves no trace of having been attempted.
func (s *Store) Execute(cmd Command) (Reply, error) {
	reply, err := s.executeImpl(cmd, tagPlain)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.history = append(s.history, cmd)
	s.mu.Unlock()
	return reply, nil
}

// executeImpl is the recursive dispatcher. tag controls which stack (undo,
// redo, or neither) receives the inverse of a mutation; Undo and Redo
// recurse into it directly rather than through Execute, so the recursive
// call — not the Undo/Redo case itself — performs the stack push/pop.
func (s *Store) executeImpl(cmd Command, tag opTag) (Reply, error) {
	switch c := cmd.(type) {
	case CreateGraph:
		return s.runMutation(tag, func() (Reply, Command, error) {
			return s.doCreateGraph(uuid.New(), c.Properties)
		})
	case CreateGraphWithID:
		return s.runMutation(tag, func() (Reply, Command, error) {
			return s.doCreateGraph(c.GraphID, c.Properties)
		})
	case DeleteGraph:
		return s.runMutation(tag, func() (Reply, Command, error) {
			return s.doDeleteGraph(c.GraphID)
		})
	case MutateState:
		return s.runMutation(tag, func() (Reply, Command, error) {
			return s.doMutateState(c.GraphID, c.Kind)
		})
	case Query:
		return s.executeQuery(c.Kind)
	case Undo:
		return s.doUndo()
	case Redo:
		return s.doRedo()
	default:
		return nil, fmt.Errorf("graphstore: unknown command %T", cmd)
	}
}

// runMutation runs a single mutating handler and, on success, threads its
// inverse (if any) through the undo/redo stacks per tag. A Plain mutation
// always empties the redo stack (invariant I5), even one with no inverse
// of its own — DeleteGraph is a mutation too, just an irreversible one.
func (s *Store) runMutation(tag opTag, fn func() (Reply, Command, error)) (Reply, error) {
	reply, inverse, err := fn()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	switch tag {
	case tagPlain:
		s.redo = nil
		if inverse != nil {
			s.undo = append(s.undo, inverse)
		}
	case tagUndo:
		if inverse != nil {
			s.redo = append(s.redo, inverse)
		}
	case tagRedo:
		if inverse != nil {
			s.undo = append(s.undo, inverse)
		}
	}
	s.mu.Unlock()
	return reply, nil
}

func (s *Store) doUndo() (Reply, error) {
	s.mu.Lock()
	if len(s.undo) == 0 {
		s.mu.Unlock()
		return nil, ErrUndoBufferEmpty
	}
	cmd := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.mu.Unlock()
	return s.executeImpl(cmd, tagUndo)
}

func (s *Store) doRedo() (Reply, error) {
	s.mu.Lock()
	if len(s.redo) == 0 {
		s.mu.Unlock()
		return nil, ErrRedoBufferEmpty
	}
	cmd := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.mu.Unlock()
	return s.executeImpl(cmd, tagRedo)
}

// commandGraphID returns the graph a stacked inverse command applies to,
// for filtering the undo/redo stacks when that graph is deleted.
func commandGraphID(cmd Command) (GraphID, bool) {
	switch c := cmd.(type) {
	case MutateState:
		return c.GraphID, true
	case DeleteGraph:
		return c.GraphID, true
	default:
		return GraphID{}, false
	}
}

// dropGraph returns stack with every entry belonging to id removed,
// preserving order of the rest.
func dropGraph(stack []Command, id GraphID) []Command {
	out := make([]Command, 0, len(stack))
	for _, cmd := range stack {
		if gid, ok := commandGraphID(cmd); ok && gid == id {
			continue
		}
		out = append(out, cmd)
	}
	return out
}
