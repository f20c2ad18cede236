package sapling

import (
	"fmt"
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"

	"github.com/artemii235/librustzcash/internal/jubjub"
	"github.com/artemii235/librustzcash/pkg/common"
	"github.com/artemii235/librustzcash/pkg/types"
)

// Note plaintext lead bytes. Version 1 plaintexts carry the commitment
// randomness rcm directly; version 2 plaintexts carry a seed from which
// both rcm and the ephemeral secret derive.
const (
	NoteVersionRcm  byte = 0x01
	NoteVersionSeed byte = 0x02
)

// Domain separators for the field-native commitment and nullifier
// hashes. They are hashed as the first input block, standing in for the
// personalization the circuit-friendly hash has no parameter for.
var (
	commitDomain    = domainSeparator("Zcash_cm")
	nullifierDomain = domainSeparator("Zcash_nf")
)

func domainSeparator(tag string) fr.Element {
	var e fr.Element
	e.SetBytes([]byte(tag))
	return e
}

// Rseed carries a note's commitment randomness in one of its two wire
// representations.
type Rseed struct {
	seed    [32]byte
	rcm     fr.Element
	hasSeed bool
}

// RseedFromRcm builds the version 1 representation carrying rcm itself
func RseedFromRcm(rcm fr.Element) Rseed {
	return Rseed{rcm: rcm}
}

// RseedFromSeed builds the version 2 representation; rcm and the
// ephemeral secret both derive from the seed.
func RseedFromSeed(seed [32]byte) Rseed {
	return Rseed{seed: seed, hasSeed: true}
}

// NewRseed samples fresh seeded randomness
func NewRseed() (Rseed, error) {
	b, err := common.RandomBytes(32)
	if err != nil {
		return Rseed{}, err
	}
	var seed [32]byte
	copy(seed[:], b)
	return RseedFromSeed(seed), nil
}

// HasSeed reports whether this is the seeded (version 2) representation
func (r Rseed) HasSeed() bool {
	return r.hasSeed
}

// Seed returns the seed for seeded randomness
func (r Rseed) Seed() ([32]byte, bool) {
	return r.seed, r.hasSeed
}

// Rcm returns the commitment randomness, deriving it from the seed for
// the seeded representation.
func (r Rseed) Rcm() fr.Element {
	if !r.hasSeed {
		return r.rcm
	}
	wide := prfExpand(r.seed[:], prfRcm)
	return jubjub.WideFr(wide[:])
}

// EphemeralSecret derives the note's bound ephemeral secret. Only seeded
// notes bind one; version 1 notes use a caller-supplied secret.
func (r Rseed) EphemeralSecret() (*big.Int, bool) {
	if !r.hasSeed {
		return nil, false
	}
	wide := prfExpand(r.seed[:], prfEsk)
	return jubjub.WideScalar(wide[:]), true
}

func (r Rseed) noteVersion() byte {
	if r.hasSeed {
		return NoteVersionSeed
	}
	return NoteVersionRcm
}

func (r Rseed) wireBytes() [32]byte {
	if r.hasSeed {
		return r.seed
	}
	return r.rcm.Bytes()
}

// Note is one shielded note: a value bound to a payment address with
// commitment randomness.
type Note struct {
	// Value in base units
	Value uint64

	// Recipient is the address the note pays
	Recipient PaymentAddress

	// Rseed is the commitment randomness
	Rseed Rseed
}

// Commitment computes the note commitment over the base field:
//
//	cm = H(dsep, d, value, pk_d.x, pk_d.y, rcm)
//
// The hash is fixed-shape, so commitment time does not depend on the
// note contents.
func (n *Note) Commitment() (fr.Element, error) {
	var zero fr.Element
	if n.Value > types.MaxMoney {
		return zero, fmt.Errorf("%w: note value exceeds maximum", ErrMalformedInput)
	}
	pkd := n.Recipient.pkd
	if jubjub.IsSmallOrder(&pkd) {
		return zero, fmt.Errorf("%w: small order transmission key", ErrMalformedInput)
	}

	var dFr, vFr fr.Element
	dFr.SetBytes(n.Recipient.d[:])
	vFr.SetUint64(n.Value)
	rcm := n.Rseed.Rcm()

	h := mimc.NewMiMC()
	writeFr(h, &commitDomain)
	writeFr(h, &dFr)
	writeFr(h, &vFr)
	writeFr(h, &pkd.X)
	writeFr(h, &pkd.Y)
	writeFr(h, &rcm)

	var cm fr.Element
	cm.SetBytes(h.Sum(nil))
	return cm, nil
}

// CommitmentBytes returns the canonical 32-byte encoding of the note
// commitment
func (n *Note) CommitmentBytes() ([32]byte, error) {
	cm, err := n.Commitment()
	if err != nil {
		return [32]byte{}, err
	}
	return cm.Bytes(), nil
}

// Nullifier derives the note's spend tag at the given tree position
// using the holder's nullifier deriving key:
//
//	nf = H(dsep, nk.x, nk.y, cm, position)
//
// Binding the position makes nullifiers of identical notes distinct.
func (n *Note) Nullifier(nk *twistededwards.PointAffine, position uint64) (types.Nullifier, error) {
	var nf types.Nullifier
	if nk == nil || jubjub.IsSmallOrder(nk) {
		return nf, fmt.Errorf("%w: invalid nullifier deriving key", ErrMalformedInput)
	}

	cm, err := n.Commitment()
	if err != nil {
		return nf, err
	}

	var posFr fr.Element
	posFr.SetUint64(position)

	h := mimc.NewMiMC()
	writeFr(h, &nullifierDomain)
	writeFr(h, &nk.X)
	writeFr(h, &nk.Y)
	writeFr(h, &cm)
	writeFr(h, &posFr)

	copy(nf[:], h.Sum(nil))
	return nf, nil
}

// writeFr feeds one canonical field element block into the hash. The
// encoding is canonical by construction, so the write cannot fail.
func writeFr(h hash.Hash, e *fr.Element) {
	b := e.Bytes()
	h.Write(b[:])
}
