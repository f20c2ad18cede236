// Package jubjub wraps the Edwards curve embedded in the bls12-381 scalar
// field with the group operations the shielded protocol needs: canonical
// point (de)serialization, cofactor handling, and constant-time scalar
// multiplication for secret scalars.
package jubjub

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
)

// Point errors
var (
	ErrInvalidPoint = errors.New("jubjub: invalid point encoding")
	ErrGroupHash    = errors.New("jubjub: group hash found no valid point")
)

// PointSize is the length of a compressed point encoding in bytes
const PointSize = 32

// Order returns the order of the prime subgroup
func Order() *big.Int {
	curve := twistededwards.GetEdwardsCurve()
	return new(big.Int).Set(&curve.Order)
}

// Identity returns the group identity element (0, 1)
func Identity() *twistededwards.PointAffine {
	var p twistededwards.PointAffine
	p.X.SetZero()
	p.Y.SetOne()
	return &p
}

// IsIdentity reports whether p is the group identity
func IsIdentity(p *twistededwards.PointAffine) bool {
	return p.X.IsZero() && p.Y.IsOne()
}

// MulByCofactor sets dst to [8]p, mapping p into the prime-order subgroup
func MulByCofactor(dst, p *twistededwards.PointAffine) *twistededwards.PointAffine {
	dst.Double(p).Double(dst).Double(dst)
	return dst
}

// IsSmallOrder reports whether p lies in the 8-torsion. Such points
// collapse to the identity under cofactor clearing and must be rejected
// wherever they would zero out a shared secret.
func IsSmallOrder(p *twistededwards.PointAffine) bool {
	var t twistededwards.PointAffine
	MulByCofactor(&t, p)
	return IsIdentity(&t)
}

// Decode parses a compressed point. It rejects anything that is not the
// canonical encoding of a point on the curve.
func Decode(b []byte) (*twistededwards.PointAffine, error) {
	if len(b) != PointSize {
		return nil, ErrInvalidPoint
	}
	var p twistededwards.PointAffine
	if _, err := p.SetBytes(b); err != nil {
		return nil, ErrInvalidPoint
	}
	if !p.IsOnCurve() {
		return nil, ErrInvalidPoint
	}
	enc := p.Bytes()
	if !bytes.Equal(enc[:], b) {
		return nil, ErrInvalidPoint
	}
	return &p, nil
}

// Encode returns the canonical compressed encoding of p
func Encode(p *twistededwards.PointAffine) [PointSize]byte {
	return p.Bytes()
}
