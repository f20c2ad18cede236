package merkle

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Witness tracks the authentication path of one leaf as later leaves
// arrive. It freezes the frontier as of the leaf's append; each
// subsequent append either fills the next empty path slot directly or
// grows a cursor subtree whose root will fill it once complete.
type Witness struct {
	depth       uint8
	tree        *Frontier
	filled      []fr.Element
	cursor      *Frontier
	cursorDepth uint8
}

// NewWitness starts witnessing the most recently appended leaf of f at
// the protocol depth.
func NewWitness(f *Frontier) (*Witness, error) {
	if f.Size() == 0 {
		return nil, ErrEmptyTree
	}
	return newWitnessAtDepth(f, Depth), nil
}

func newWitnessAtDepth(f *Frontier, depth uint8) *Witness {
	return &Witness{depth: depth, tree: f.Clone()}
}

// Clone returns a deep copy of the witness
func (w *Witness) Clone() *Witness {
	c := &Witness{
		depth:       w.depth,
		tree:        w.tree.Clone(),
		cursorDepth: w.cursorDepth,
	}
	if len(w.filled) > 0 {
		c.filled = make([]fr.Element, len(w.filled))
		copy(c.filled, w.filled)
	}
	if w.cursor != nil {
		c.cursor = w.cursor.Clone()
	}
	return c
}

// Position returns the position of the witnessed leaf
func (w *Witness) Position() uint64 {
	return w.tree.Size() - 1
}

// filler queues the completed right-hand nodes, then the partial cursor
// root if one is growing.
func (w *Witness) filler() *pathFiller {
	queue := make([]fr.Element, 0, len(w.filled)+1)
	queue = append(queue, w.filled...)
	if w.cursor != nil {
		queue = append(queue, w.cursor.rootInner(w.cursorDepth, &pathFiller{}))
	}
	return &pathFiller{queue: queue}
}

// nextDepth returns the level of the next empty slot on the witnessed
// leaf's path, skipping slots already filled.
func (w *Witness) nextDepth() uint8 {
	skip := len(w.filled)

	if w.tree.left == nil {
		if skip > 0 {
			skip--
		} else {
			return 0
		}
	}
	if w.tree.right == nil {
		if skip > 0 {
			skip--
		} else {
			return 0
		}
	}

	d := uint8(1)
	for _, p := range w.tree.parents {
		if p == nil {
			if skip > 0 {
				skip--
			} else {
				return d
			}
		}
		d++
	}
	return d + uint8(skip)
}

// Append feeds the witness a leaf appended to the tree after the
// witnessed one.
func (w *Witness) Append(node fr.Element) error {
	if w.cursor != nil {
		if err := w.cursor.appendInner(node, w.depth); err != nil {
			return err
		}
		if w.cursor.isComplete(w.cursorDepth) {
			w.filled = append(w.filled, w.cursor.rootInner(w.cursorDepth, &pathFiller{}))
			w.cursor = nil
		}
		return nil
	}

	w.cursorDepth = w.nextDepth()
	if w.cursorDepth >= w.depth {
		return ErrTreeFull
	}

	if w.cursorDepth == 0 {
		w.filled = append(w.filled, node)
		return nil
	}

	cursor := NewFrontier()
	if err := cursor.appendInner(node, w.depth); err != nil {
		return err
	}
	w.cursor = cursor
	return nil
}

// Root returns the anchor the witness's path currently verifies against
func (w *Witness) Root() fr.Element {
	return w.tree.rootInner(w.depth, w.filler())
}

// Path returns the authentication path of the witnessed leaf
func (w *Witness) Path() (*Path, error) {
	if w.tree.left == nil {
		return nil, ErrEmptyTree
	}

	filler := w.filler()
	siblings := make([]fr.Element, 0, w.depth)

	// level 0: when the witnessed leaf is the right child its sibling is
	// the stored left leaf, otherwise padding
	if w.tree.right != nil {
		siblings = append(siblings, *w.tree.left)
	} else {
		siblings = append(siblings, filler.next(0))
	}

	for i, p := range w.tree.parents {
		if p != nil {
			siblings = append(siblings, *p)
		} else {
			siblings = append(siblings, filler.next(uint8(i+1)))
		}
	}

	for level := uint8(len(w.tree.parents)) + 1; level < w.depth; level++ {
		siblings = append(siblings, filler.next(level))
	}

	return &Path{Siblings: siblings, Position: w.Position()}, nil
}

// Path is an authentication path: the sibling at every level from leaf
// to root. Bit i of Position says which side the path node at level i is
// on; a set bit puts the sibling on the left.
type Path struct {
	Siblings []fr.Element
	Position uint64
}

// Root folds leaf up the path to the anchor it authenticates
func (p *Path) Root(leaf fr.Element) fr.Element {
	root := leaf
	for i := range p.Siblings {
		sib := p.Siblings[i]
		if (p.Position>>uint(i))&1 == 1 {
			root = combine(uint8(i), &sib, &root)
		} else {
			root = combine(uint8(i), &root, &sib)
		}
	}
	return root
}

// Verify reports whether the path proves leaf under root
func (p *Path) Verify(root, leaf fr.Element) bool {
	got := p.Root(leaf)
	return got.Equal(&root)
}
