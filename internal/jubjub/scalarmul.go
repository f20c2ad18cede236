package jubjub

import (
	"crypto/rand"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
)

// ScalarMulCT computes [k]p with a fixed-shape ladder: one doubling and
// one addition per scalar bit, the result selected branchlessly. The
// generic ScalarMultiplication walks a secret-dependent addition chain,
// so every multiplication by a secret scalar goes through here instead.
func ScalarMulCT(p *twistededwards.PointAffine, k *big.Int) *twistededwards.PointAffine {
	curve := twistededwards.GetEdwardsCurve()

	var kr big.Int
	kr.Mod(k, &curve.Order)
	var kb [32]byte
	kr.FillBytes(kb[:])

	var acc, sum twistededwards.PointProj
	acc.X.SetZero()
	acc.Y.SetOne()
	acc.Z.SetOne()

	for i := 0; i < 8*len(kb); i++ {
		acc.Double(&acc)
		sum.MixedAdd(&acc, p)
		bit := int((kb[i/8] >> (7 - i%8)) & 1)
		acc.X.Select(bit, &acc.X, &sum.X)
		acc.Y.Select(bit, &acc.Y, &sum.Y)
		acc.Z.Select(bit, &acc.Z, &sum.Z)
	}

	var out twistededwards.PointAffine
	out.FromProj(&acc)
	return &out
}

// WideScalar reduces a wide hash output to a subgroup scalar
func WideScalar(wide []byte) *big.Int {
	curve := twistededwards.GetEdwardsCurve()
	n := new(big.Int).SetBytes(wide)
	return n.Mod(n, &curve.Order)
}

// WideFr reduces a wide hash output to a base field element
func WideFr(wide []byte) fr.Element {
	var e fr.Element
	e.SetBigInt(new(big.Int).SetBytes(wide))
	return e
}

// RandomScalar samples a uniform nonzero subgroup scalar
func RandomScalar() (*big.Int, error) {
	order := Order()
	for {
		k, err := rand.Int(rand.Reader, order)
		if err != nil {
			return nil, err
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}
