package sapling

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemii235/librustzcash/pkg/types"
)

func TestValueCommitmentHomomorphism(t *testing.T) {
	r1 := big.NewInt(11)
	r2 := big.NewInt(31)

	cv1, err := NewValueCommitment(100, r1)
	require.NoError(t, err)
	cv2, err := NewValueCommitment(50, r2)
	require.NoError(t, err)

	sum, err := NewValueCommitment(150, new(big.Int).Add(r1, r2))
	require.NoError(t, err)

	assert.Equal(t, sum.Bytes(), cv1.Add(cv2).Bytes())
	assert.Equal(t, cv1.Bytes(), sum.Sub(cv2).Bytes())
}

func TestValueCommitmentHiding(t *testing.T) {
	r1 := big.NewInt(11)
	r2 := big.NewInt(12)

	cv1, err := NewValueCommitment(100, r1)
	require.NoError(t, err)
	cv2, err := NewValueCommitment(100, r2)
	require.NoError(t, err)
	assert.NotEqual(t, cv1.Bytes(), cv2.Bytes())
}

func TestValueCommitmentValidation(t *testing.T) {
	_, err := NewValueCommitment(types.MaxMoney+1, big.NewInt(1))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = NewValueCommitment(100, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValueCommitmentBytesRoundTrip(t *testing.T) {
	cv, _, err := RandomValueCommitment(42_000)
	require.NoError(t, err)

	enc := cv.Bytes()
	back, err := ValueCommitmentFromBytes(enc[:])
	require.NoError(t, err)
	assert.Equal(t, cv.Bytes(), back.Bytes())

	garbage := make([]byte, 32)
	for i := range garbage {
		garbage[i] = 0xff
	}
	_, err = ValueCommitmentFromBytes(garbage)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValueConservation(t *testing.T) {
	// one input paying one output plus an unblinded fee; the same
	// blinder on both sides cancels
	rcv := big.NewInt(977)

	in, err := NewValueCommitment(70_000, rcv)
	require.NoError(t, err)
	out, err := NewValueCommitment(60_000, rcv)
	require.NoError(t, err)

	assert.True(t, VerifyValueConservation(
		[]*ValueCommitment{in}, []*ValueCommitment{out}, 10_000))
	assert.False(t, VerifyValueConservation(
		[]*ValueCommitment{in}, []*ValueCommitment{out}, 9_999))
}

func TestValueConservationMultiParty(t *testing.T) {
	rIn1 := big.NewInt(101)
	rIn2 := big.NewInt(202)
	rOut := new(big.Int).Add(rIn1, rIn2)

	in1, err := NewValueCommitment(30_000, rIn1)
	require.NoError(t, err)
	in2, err := NewValueCommitment(20_000, rIn2)
	require.NoError(t, err)
	out, err := NewValueCommitment(49_000, rOut)
	require.NoError(t, err)

	inputs := []*ValueCommitment{in1, in2}
	outputs := []*ValueCommitment{out}
	assert.True(t, VerifyValueConservation(inputs, outputs, 1_000))

	// stealing a unit breaks the balance even with matching blinders
	badOut, err := NewValueCommitment(49_001, rOut)
	require.NoError(t, err)
	assert.False(t, VerifyValueConservation(inputs, []*ValueCommitment{badOut}, 1_000))
}
