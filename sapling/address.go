package sapling

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"

	"github.com/artemii235/librustzcash/internal/jubjub"
	"github.com/artemii235/librustzcash/pkg/types"
)

// PaymentAddressSize is the raw encoding length: diversifier || pk_d
const PaymentAddressSize = types.DiversifierSize + 32

// Diversifier selects one payment address out of an account's address
// family. Roughly half of all diversifiers are invalid: they have no
// base point on the curve.
type Diversifier [types.DiversifierSize]byte

// DiversifyHash maps a diversifier to its base point g_d, or fails for
// diversifiers with no valid base.
func DiversifyHash(d Diversifier) (*twistededwards.PointAffine, error) {
	p, err := jubjub.HashToPoint(diversifyTag, d[:])
	if err != nil {
		return nil, fmt.Errorf("%w: diversifier has no base point", ErrMalformedInput)
	}
	return p, nil
}

// PaymentAddress is a diversified shielded address: an 11-byte
// diversifier and the matching transmission key pk_d = [ivk] g_d.
type PaymentAddress struct {
	pkd twistededwards.PointAffine
	d   Diversifier
}

// Diversifier returns the address diversifier
func (a *PaymentAddress) Diversifier() Diversifier {
	return a.d
}

// PkD returns a copy of the transmission key
func (a *PaymentAddress) PkD() twistededwards.PointAffine {
	return a.pkd
}

// Bytes returns the raw 43-byte encoding d || pk_d
func (a *PaymentAddress) Bytes() [PaymentAddressSize]byte {
	var out [PaymentAddressSize]byte
	copy(out[:types.DiversifierSize], a.d[:])
	pkd := a.pkd.Bytes()
	copy(out[types.DiversifierSize:], pkd[:])
	return out
}

// PaymentAddressFromBytes parses and validates a raw address encoding.
// The diversifier must have a base point and the transmission key must
// be a canonical point outside the small-order subgroup.
func PaymentAddressFromBytes(b []byte) (*PaymentAddress, error) {
	if len(b) != PaymentAddressSize {
		return nil, fmt.Errorf("%w: address must be %d bytes", ErrMalformedInput, PaymentAddressSize)
	}

	var d Diversifier
	copy(d[:], b[:types.DiversifierSize])
	if _, err := DiversifyHash(d); err != nil {
		return nil, err
	}

	pkd, err := jubjub.Decode(b[types.DiversifierSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: bad transmission key", ErrMalformedInput)
	}
	if jubjub.IsSmallOrder(pkd) {
		return nil, fmt.Errorf("%w: small order transmission key", ErrMalformedInput)
	}

	return &PaymentAddress{pkd: *pkd, d: d}, nil
}

// Address derives the payment address for the given diversifier, or
// fails when the diversifier has no base point.
func (ivk *IncomingViewingKey) Address(d Diversifier) (*PaymentAddress, error) {
	gd, err := DiversifyHash(d)
	if err != nil {
		return nil, err
	}

	pkd := jubjub.ScalarMulCT(gd, ivk.ivk)
	if jubjub.IsIdentity(pkd) {
		return nil, fmt.Errorf("%w: transmission key is the identity", ErrMalformedInput)
	}
	return &PaymentAddress{pkd: *pkd, d: d}, nil
}

// DiversifierAt derives the account's diversifier at index i
func (sk SpendingKey) DiversifierAt(i uint64) Diversifier {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], i)
	wide := prfExpand(sk[:], append([]byte{prfDiversifier}, idx[:]...)...)

	var d Diversifier
	copy(d[:], wide[:types.DiversifierSize])
	return d
}

// DefaultAddress walks diversifier indexes from zero and returns the
// first valid payment address together with the index that produced it.
func (sk SpendingKey) DefaultAddress() (uint64, *PaymentAddress, error) {
	expsk, err := sk.Expand()
	if err != nil {
		return 0, nil, err
	}
	fvk, err := expsk.FullViewingKey()
	if err != nil {
		return 0, nil, err
	}
	ivk, err := fvk.IVK()
	if err != nil {
		return 0, nil, err
	}

	for i := uint64(0); i < 256; i++ {
		addr, err := ivk.Address(sk.DiversifierAt(i))
		if err != nil {
			continue
		}
		return i, addr, nil
	}
	return 0, nil, fmt.Errorf("%w: no valid diversifier in first 256 indexes", ErrMalformedInput)
}
