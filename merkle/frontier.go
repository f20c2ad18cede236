package merkle

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// pathFiller hands out the nodes padding a partially filled tree. Queued
// known nodes are consumed first, then roots of empty subtrees at
// whatever level is asked for.
type pathFiller struct {
	queue []fr.Element
}

func (f *pathFiller) next(level uint8) fr.Element {
	if len(f.queue) > 0 {
		node := f.queue[0]
		f.queue = f.queue[1:]
		return node
	}
	return EmptyRoot(level)
}

// Frontier is the append state of the commitment tree: the rightmost
// leaf pair plus, per level above, the root of the completed left
// sibling subtree where the append path turns right. A nil entry means
// the path turns left at that level.
type Frontier struct {
	left    *fr.Element
	right   *fr.Element
	parents []*fr.Element
}

// NewFrontier returns the frontier of an empty tree
func NewFrontier() *Frontier {
	return &Frontier{}
}

// Clone returns a deep copy
func (f *Frontier) Clone() *Frontier {
	c := &Frontier{
		left:    copyNode(f.left),
		right:   copyNode(f.right),
		parents: make([]*fr.Element, len(f.parents)),
	}
	for i, p := range f.parents {
		c.parents[i] = copyNode(p)
	}
	return c
}

func copyNode(n *fr.Element) *fr.Element {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Size returns the number of leaves appended so far
func (f *Frontier) Size() uint64 {
	var n uint64
	switch {
	case f.left == nil:
		n = 0
	case f.right == nil:
		n = 1
	default:
		n = 2
	}
	for i, p := range f.parents {
		if p != nil {
			n += 2 << uint(i)
		}
	}
	return n
}

// isComplete reports whether a tree of the given depth holds 2^depth
// leaves
func (f *Frontier) isComplete(depth uint8) bool {
	if depth == 0 {
		return f.left != nil && f.right == nil && len(f.parents) == 0
	}
	if f.left == nil || f.right == nil || len(f.parents) != int(depth)-1 {
		return false
	}
	for _, p := range f.parents {
		if p == nil {
			return false
		}
	}
	return true
}

// appendInner adds a leaf to a tree of the given depth, carrying each
// newly completed subtree up to the first level whose left sibling slot
// is open.
func (f *Frontier) appendInner(node fr.Element, depth uint8) error {
	if f.isComplete(depth) {
		return ErrTreeFull
	}

	switch {
	case f.left == nil:
		f.left = &node
	case f.right == nil:
		f.right = &node
	default:
		combined := combine(0, f.left, f.right)
		f.left = &node
		f.right = nil

		for i := uint8(0); i < depth; i++ {
			if int(i) < len(f.parents) {
				if p := f.parents[i]; p != nil {
					combined = combine(i+1, p, &combined)
					f.parents[i] = nil
				} else {
					c := combined
					f.parents[i] = &c
					break
				}
			} else {
				c := combined
				f.parents = append(f.parents, &c)
				break
			}
		}
	}
	return nil
}

// rootInner folds the frontier into the root of a depth-height tree,
// drawing right-hand padding from filler.
func (f *Frontier) rootInner(depth uint8, filler *pathFiller) fr.Element {
	var root fr.Element
	switch {
	case f.left != nil && f.right != nil:
		root = combine(0, f.left, f.right)
	case f.left != nil:
		pad := filler.next(0)
		root = combine(0, f.left, &pad)
	default:
		l := filler.next(0)
		r := filler.next(0)
		root = combine(0, &l, &r)
	}

	for i, p := range f.parents {
		level := uint8(i + 1)
		if p != nil {
			root = combine(level, p, &root)
		} else {
			pad := filler.next(level)
			root = combine(level, &root, &pad)
		}
	}

	for level := uint8(len(f.parents)) + 1; level < depth; level++ {
		pad := filler.next(level)
		root = combine(level, &root, &pad)
	}
	return root
}

// Append adds a note commitment at the protocol depth
func (f *Frontier) Append(node fr.Element) error {
	return f.appendInner(node, Depth)
}

// Root returns the anchor at the protocol depth
func (f *Frontier) Root() fr.Element {
	return f.rootInner(Depth, &pathFiller{})
}
