package sapling

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
	"golang.org/x/crypto/blake2b"

	"github.com/artemii235/librustzcash/internal/jubjub"
	"github.com/artemii235/librustzcash/pkg/common"
)

// Key material sizes in bytes
const (
	SpendingKeySize        = 32
	OutgoingViewingKeySize = 32
	FullViewingKeySize     = 96
)

// Fixed generators, derived once by group hash from their domain tags
var (
	basesOnce     sync.Once
	spendAuthBase twistededwards.PointAffine
	proofGenBase  twistededwards.PointAffine
	valueBase     twistededwards.PointAffine
	blindingBase  twistededwards.PointAffine
)

func initBases() {
	for _, g := range []struct {
		dst *twistededwards.PointAffine
		tag string
		msg string
	}{
		{&spendAuthBase, spendAuthTag, ""},
		{&proofGenBase, proofGenTag, ""},
		{&valueBase, valueCommitTag, "v"},
		{&blindingBase, valueCommitTag, "r"},
	} {
		p, err := jubjub.FindGroupHash(g.tag, []byte(g.msg))
		if err != nil {
			panic(fmt.Sprintf("sapling: generator derivation failed for %q: %v", g.tag, err))
		}
		g.dst.Set(p)
	}
}

// SpendingKey is the root secret from which all other key material
// derives
type SpendingKey [SpendingKeySize]byte

// OutgoingViewingKey lets the sender recover its own outputs from the
// outgoing ciphertext
type OutgoingViewingKey [OutgoingViewingKeySize]byte

// NewSpendingKey samples a fresh spending key
func NewSpendingKey() (SpendingKey, error) {
	var sk SpendingKey
	b, err := common.RandomBytes(SpendingKeySize)
	if err != nil {
		return sk, err
	}
	copy(sk[:], b)
	return sk, nil
}

// ExpandedSpendingKey holds the three secrets expanded from a spending
// key: the spend authorizing scalar, the nullifier private scalar, and
// the outgoing viewing key.
type ExpandedSpendingKey struct {
	Ask *big.Int
	Nsk *big.Int
	Ovk OutgoingViewingKey
}

// Expand derives (ask, nsk, ovk) from the spending key
func (sk SpendingKey) Expand() (*ExpandedSpendingKey, error) {
	askWide := prfExpand(sk[:], prfAsk)
	nskWide := prfExpand(sk[:], prfNsk)
	ovkWide := prfExpand(sk[:], prfOvk)

	ask := jubjub.WideScalar(askWide[:])
	nsk := jubjub.WideScalar(nskWide[:])
	if ask.Sign() == 0 || nsk.Sign() == 0 {
		return nil, fmt.Errorf("%w: spending key expands to zero scalar", ErrMalformedInput)
	}

	expsk := &ExpandedSpendingKey{Ask: ask, Nsk: nsk}
	copy(expsk.Ovk[:], ovkWide[:OutgoingViewingKeySize])
	return expsk, nil
}

// FullViewingKey reveals all incoming and outgoing notes of an account
// without granting spend authority.
type FullViewingKey struct {
	// Ak is the spend validating key [ask] G
	Ak twistededwards.PointAffine

	// Nk is the nullifier deriving key [nsk] H
	Nk twistededwards.PointAffine

	// Ovk is the outgoing viewing key
	Ovk OutgoingViewingKey
}

// FullViewingKey derives the viewing half of the expanded key
func (expsk *ExpandedSpendingKey) FullViewingKey() (*FullViewingKey, error) {
	basesOnce.Do(initBases)

	ak := jubjub.ScalarMulCT(&spendAuthBase, expsk.Ask)
	nk := jubjub.ScalarMulCT(&proofGenBase, expsk.Nsk)
	if jubjub.IsIdentity(ak) || jubjub.IsIdentity(nk) {
		return nil, fmt.Errorf("%w: viewing key component is the identity", ErrMalformedInput)
	}

	fvk := &FullViewingKey{Ak: *ak, Nk: *nk, Ovk: expsk.Ovk}
	return fvk, nil
}

// Bytes returns the 96-byte encoding ak || nk || ovk
func (fvk *FullViewingKey) Bytes() [FullViewingKeySize]byte {
	var out [FullViewingKeySize]byte
	ak := fvk.Ak.Bytes()
	nk := fvk.Nk.Bytes()
	copy(out[0:32], ak[:])
	copy(out[32:64], nk[:])
	copy(out[64:96], fvk.Ovk[:])
	return out
}

// FullViewingKeyFromBytes parses and validates a 96-byte viewing key
// encoding
func FullViewingKeyFromBytes(b []byte) (*FullViewingKey, error) {
	if len(b) != FullViewingKeySize {
		return nil, fmt.Errorf("%w: viewing key must be %d bytes", ErrMalformedInput, FullViewingKeySize)
	}

	ak, err := jubjub.Decode(b[0:32])
	if err != nil {
		return nil, fmt.Errorf("%w: bad spend validating key", ErrMalformedInput)
	}
	nk, err := jubjub.Decode(b[32:64])
	if err != nil {
		return nil, fmt.Errorf("%w: bad nullifier deriving key", ErrMalformedInput)
	}
	if jubjub.IsSmallOrder(ak) || jubjub.IsSmallOrder(nk) {
		return nil, fmt.Errorf("%w: small order viewing key component", ErrMalformedInput)
	}

	fvk := &FullViewingKey{Ak: *ak, Nk: *nk}
	copy(fvk.Ovk[:], b[64:96])
	return fvk, nil
}

// IncomingViewingKey detects and decrypts notes sent to the account
type IncomingViewingKey struct {
	ivk *big.Int
}

// IVK hashes ak and nk into the incoming viewing key scalar, truncated
// to 251 bits so it always lies below the subgroup order.
func (fvk *FullViewingKey) IVK() (*IncomingViewingKey, error) {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(ivkTag))
	ak := fvk.Ak.Bytes()
	h.Write(ak[:])
	nk := fvk.Nk.Bytes()
	h.Write(nk[:])

	digest := h.Sum(nil)
	digest[0] &= 0x07

	ivk := new(big.Int).SetBytes(digest)
	if ivk.Sign() == 0 {
		return nil, fmt.Errorf("%w: incoming viewing key is zero", ErrMalformedInput)
	}
	return &IncomingViewingKey{ivk: ivk}, nil
}
