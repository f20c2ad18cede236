package sapling

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"

	"github.com/artemii235/librustzcash/internal/jubjub"
	"github.com/artemii235/librustzcash/pkg/types"
)

// ValueCommitment is a homomorphic commitment to a note value:
//
//	cv = [value] V + [rcv] R
//
// with V and R independent generators derived by group hash, so no
// discrete log relation between them is known.
type ValueCommitment struct {
	Point twistededwards.PointAffine
}

// NewValueCommitment commits to value with blinding factor rcv. Both
// scalar multiplications run in constant time; the value is as secret as
// the blinder.
func NewValueCommitment(value uint64, rcv *big.Int) (*ValueCommitment, error) {
	basesOnce.Do(initBases)

	if value > types.MaxMoney {
		return nil, fmt.Errorf("%w: value exceeds maximum", ErrMalformedInput)
	}
	if rcv == nil {
		return nil, fmt.Errorf("%w: nil blinding factor", ErrMalformedInput)
	}

	vPart := jubjub.ScalarMulCT(&valueBase, new(big.Int).SetUint64(value))
	rPart := jubjub.ScalarMulCT(&blindingBase, rcv)

	var cv ValueCommitment
	cv.Point.Add(vPart, rPart)
	return &cv, nil
}

// RandomValueCommitment commits to value with a fresh blinder and
// returns both
func RandomValueCommitment(value uint64) (*ValueCommitment, *big.Int, error) {
	rcv, err := jubjub.RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	cv, err := NewValueCommitment(value, rcv)
	if err != nil {
		return nil, nil, err
	}
	return cv, rcv, nil
}

// Add adds two commitments: the sum commits to the sum of values under
// the sum of blinders
func (c *ValueCommitment) Add(other *ValueCommitment) *ValueCommitment {
	var out ValueCommitment
	out.Point.Add(&c.Point, &other.Point)
	return &out
}

// Sub subtracts two commitments
func (c *ValueCommitment) Sub(other *ValueCommitment) *ValueCommitment {
	var neg twistededwards.PointAffine
	neg.Neg(&other.Point)

	var out ValueCommitment
	out.Point.Add(&c.Point, &neg)
	return &out
}

// Bytes returns the compressed encoding of the commitment
func (c *ValueCommitment) Bytes() [32]byte {
	return c.Point.Bytes()
}

// ValueCommitmentFromBytes parses a compressed value commitment
func ValueCommitmentFromBytes(b []byte) (*ValueCommitment, error) {
	p, err := jubjub.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: bad value commitment", ErrMalformedInput)
	}
	return &ValueCommitment{Point: *p}, nil
}

// VerifyValueConservation checks that input commitments equal output
// commitments plus an unblinded fee term. It holds exactly when the
// values balance and the blinders cancel.
func VerifyValueConservation(inputs, outputs []*ValueCommitment, fee uint64) bool {
	basesOnce.Do(initBases)

	inSum := jubjub.Identity()
	for _, c := range inputs {
		inSum.Add(inSum, &c.Point)
	}

	outSum := jubjub.Identity()
	for _, c := range outputs {
		outSum.Add(outSum, &c.Point)
	}

	// The fee is public, so a variable-time multiplication is fine here.
	var feePart twistededwards.PointAffine
	feePart.ScalarMultiplication(&valueBase, new(big.Int).SetUint64(fee))
	outSum.Add(outSum, &feePart)

	return inSum.Equal(outSum)
}
