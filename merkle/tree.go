package merkle

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Tree is a thread-safe append-only commitment tree. It keeps the
// frontier for cheap appends and roots, plus the full leaf log so a
// witness can be rebuilt for any position after the fact.
type Tree struct {
	mu       sync.RWMutex
	depth    uint8
	frontier *Frontier
	leaves   []fr.Element
}

// NewTree creates an empty tree. The depth must be between 1 and Depth;
// chain state uses Depth, tests use shallower trees.
func NewTree(depth uint8) (*Tree, error) {
	if depth == 0 || depth > Depth {
		return nil, ErrInvalidDepth
	}
	return &Tree{depth: depth, frontier: NewFrontier()}, nil
}

// Append adds a note commitment and returns the position it occupies
func (t *Tree) Append(node fr.Element) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.frontier.appendInner(node, t.depth); err != nil {
		return 0, err
	}
	t.leaves = append(t.leaves, node)
	return uint64(len(t.leaves)) - 1, nil
}

// Size returns the number of appended leaves
func (t *Tree) Size() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.leaves))
}

// Root returns the current anchor
func (t *Tree) Root() fr.Element {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frontier.rootInner(t.depth, &pathFiller{})
}

// Frontier returns a copy of the current append state
func (t *Tree) Frontier() *Frontier {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frontier.Clone()
}

// WitnessFor rebuilds the witness of the leaf at position, caught up to
// the current tree state. Cost is linear in the number of leaves.
func (t *Tree) WitnessFor(position uint64) (*Witness, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if position >= uint64(len(t.leaves)) {
		return nil, ErrInvalidPosition
	}

	f := NewFrontier()
	for i := uint64(0); i <= position; i++ {
		if err := f.appendInner(t.leaves[i], t.depth); err != nil {
			return nil, err
		}
	}

	w := newWitnessAtDepth(f, t.depth)
	for i := position + 1; i < uint64(len(t.leaves)); i++ {
		if err := w.Append(t.leaves[i]); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// PathFor returns the authentication path of the leaf at position
// against the current root.
func (t *Tree) PathFor(position uint64) (*Path, error) {
	w, err := t.WitnessFor(position)
	if err != nil {
		return nil, err
	}
	return w.Path()
}
