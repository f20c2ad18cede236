package merkle

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

type frontierWire struct {
	Left    *[32]byte   `cbor:"left"`
	Right   *[32]byte   `cbor:"right"`
	Parents []*[32]byte `cbor:"parents"`
}

type witnessWire struct {
	Depth       uint8      `cbor:"depth"`
	Tree        *Frontier  `cbor:"tree"`
	Filled      [][32]byte `cbor:"filled"`
	Cursor      *Frontier  `cbor:"cursor"`
	CursorDepth uint8      `cbor:"cursorDepth"`
}

func nodeToWire(n *fr.Element) *[32]byte {
	if n == nil {
		return nil
	}
	b := n.Bytes()
	return &b
}

func nodeFromWire(w *[32]byte) (*fr.Element, error) {
	if w == nil {
		return nil, nil
	}
	var e fr.Element
	if err := e.SetBytesCanonical(w[:]); err != nil {
		return nil, ErrInvalidEncoding
	}
	return &e, nil
}

// MarshalCBOR encodes the frontier for storage
func (f *Frontier) MarshalCBOR() ([]byte, error) {
	w := frontierWire{
		Left:    nodeToWire(f.left),
		Right:   nodeToWire(f.right),
		Parents: make([]*[32]byte, len(f.parents)),
	}
	for i, p := range f.parents {
		w.Parents[i] = nodeToWire(p)
	}
	return encMode.Marshal(&w)
}

// UnmarshalCBOR decodes a stored frontier, rejecting non-canonical
// nodes
func (f *Frontier) UnmarshalCBOR(data []byte) error {
	var w frontierWire
	if err := decMode.Unmarshal(data, &w); err != nil {
		return err
	}

	left, err := nodeFromWire(w.Left)
	if err != nil {
		return err
	}
	right, err := nodeFromWire(w.Right)
	if err != nil {
		return err
	}
	parents := make([]*fr.Element, len(w.Parents))
	for i, p := range w.Parents {
		parents[i], err = nodeFromWire(p)
		if err != nil {
			return err
		}
	}

	f.left, f.right, f.parents = left, right, parents
	return nil
}

// MarshalCBOR encodes the witness for storage
func (w *Witness) MarshalCBOR() ([]byte, error) {
	wire := witnessWire{
		Depth:       w.depth,
		Tree:        w.tree,
		Cursor:      w.cursor,
		CursorDepth: w.cursorDepth,
		Filled:      make([][32]byte, len(w.filled)),
	}
	for i := range w.filled {
		wire.Filled[i] = w.filled[i].Bytes()
	}
	return encMode.Marshal(&wire)
}

// UnmarshalCBOR decodes a stored witness
func (w *Witness) UnmarshalCBOR(data []byte) error {
	var wire witnessWire
	if err := decMode.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Depth == 0 || wire.Depth > Depth {
		return ErrInvalidDepth
	}
	if wire.Tree == nil {
		return ErrInvalidEncoding
	}

	filled := make([]fr.Element, len(wire.Filled))
	for i := range wire.Filled {
		if err := filled[i].SetBytesCanonical(wire.Filled[i][:]); err != nil {
			return ErrInvalidEncoding
		}
	}

	w.depth = wire.Depth
	w.tree = wire.Tree
	w.filled = filled
	w.cursor = wire.Cursor
	w.cursorDepth = wire.CursorDepth
	return nil
}
