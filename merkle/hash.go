// Package merkle implements the note commitment tree: a fixed-depth
// append-only Merkle tree over the bls12-381 scalar field. The frontier
// keeps append state in O(log n), and incremental witnesses track the
// authentication path of a single leaf as later leaves arrive.
package merkle

import (
	"hash"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
)

// Depth is the protocol depth of the commitment tree
const Depth = 32

var (
	emptyOnce  sync.Once
	emptyRoots [Depth + 1]fr.Element
)

// Uncommitted is the leaf value standing in for unused positions
func Uncommitted() fr.Element {
	var e fr.Element
	e.SetOne()
	return e
}

// combine hashes a sibling pair into its parent. The level is hashed
// first, so equal children at different heights give distinct parents.
func combine(level uint8, l, r *fr.Element) fr.Element {
	var lv fr.Element
	lv.SetUint64(uint64(level))

	h := mimc.NewMiMC()
	writeNode(h, &lv)
	writeNode(h, l)
	writeNode(h, r)

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// Combine hashes a sibling pair into their parent at the given level
func Combine(level uint8, l, r *fr.Element) fr.Element {
	return combine(level, l, r)
}

// writeNode feeds one canonical field element block into the hash
func writeNode(h hash.Hash, e *fr.Element) {
	b := e.Bytes()
	h.Write(b[:])
}

func initEmptyRoots() {
	emptyRoots[0] = Uncommitted()
	for l := 1; l <= Depth; l++ {
		emptyRoots[l] = combine(uint8(l-1), &emptyRoots[l-1], &emptyRoots[l-1])
	}
}

// EmptyRoot returns the root of the all-empty subtree of the given
// height. The level must not exceed Depth.
func EmptyRoot(level uint8) fr.Element {
	emptyOnce.Do(initEmptyRoots)
	return emptyRoots[level]
}
