package sapling

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemii235/librustzcash/pkg/types"
)

func testNote(t *testing.T, value uint64, seeded bool) *Note {
	t.Helper()

	_, _, _, _, addr := testAccount(t, 0x42)

	var rseed Rseed
	if seeded {
		var seed [32]byte
		seed[0] = 0x5a
		rseed = RseedFromSeed(seed)
	} else {
		var rcm fr.Element
		rcm.SetUint64(7)
		rseed = RseedFromRcm(rcm)
	}
	return &Note{Value: value, Recipient: *addr, Rseed: rseed}
}

func TestNoteCommitmentDeterministic(t *testing.T) {
	note := testNote(t, 100_000, true)

	cm1, err := note.Commitment()
	require.NoError(t, err)
	cm2, err := note.Commitment()
	require.NoError(t, err)
	assert.True(t, cm1.Equal(&cm2))
}

func TestNoteCommitmentBindsContents(t *testing.T) {
	base := testNote(t, 100_000, true)
	cm, err := base.Commitment()
	require.NoError(t, err)

	valueChanged := *base
	valueChanged.Value = 100_001
	cmValue, err := valueChanged.Commitment()
	require.NoError(t, err)
	assert.False(t, cm.Equal(&cmValue))

	var otherSeed [32]byte
	otherSeed[0] = 0x5b
	rseedChanged := *base
	rseedChanged.Rseed = RseedFromSeed(otherSeed)
	cmRseed, err := rseedChanged.Commitment()
	require.NoError(t, err)
	assert.False(t, cm.Equal(&cmRseed))

	_, _, _, _, otherAddr := testAccount(t, 0x43)
	recipientChanged := *base
	recipientChanged.Recipient = *otherAddr
	cmRecipient, err := recipientChanged.Commitment()
	require.NoError(t, err)
	assert.False(t, cm.Equal(&cmRecipient))
}

func TestNoteCommitmentRejectsOverMaxValue(t *testing.T) {
	note := testNote(t, types.MaxMoney+1, true)
	_, err := note.Commitment()
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestNullifierDependsOnPosition(t *testing.T) {
	_, _, fvk, _, _ := testAccount(t, 0x42)
	note := testNote(t, 100_000, true)

	nf0, err := note.Nullifier(&fvk.Nk, 0)
	require.NoError(t, err)
	nf0Again, err := note.Nullifier(&fvk.Nk, 0)
	require.NoError(t, err)
	nf1, err := note.Nullifier(&fvk.Nk, 1)
	require.NoError(t, err)

	assert.Equal(t, nf0, nf0Again)
	assert.NotEqual(t, nf0, nf1)
}

func TestNullifierDependsOnKey(t *testing.T) {
	_, _, fvkA, _, _ := testAccount(t, 0x42)
	_, _, fvkB, _, _ := testAccount(t, 0x43)
	note := testNote(t, 100_000, true)

	nfA, err := note.Nullifier(&fvkA.Nk, 5)
	require.NoError(t, err)
	nfB, err := note.Nullifier(&fvkB.Nk, 5)
	require.NoError(t, err)
	assert.NotEqual(t, nfA, nfB)
}

func TestNullifierRejectsBadKey(t *testing.T) {
	note := testNote(t, 100_000, true)

	_, err := note.Nullifier(nil, 0)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestRseedRepresentations(t *testing.T) {
	var rcm fr.Element
	rcm.SetUint64(99)
	v1 := RseedFromRcm(rcm)
	assert.False(t, v1.HasSeed())
	assert.Equal(t, NoteVersionRcm, v1.noteVersion())
	got := v1.Rcm()
	assert.True(t, rcm.Equal(&got))
	assert.Equal(t, rcm.Bytes(), v1.wireBytes())
	_, ok := v1.EphemeralSecret()
	assert.False(t, ok)

	var seed [32]byte
	seed[31] = 0x01
	v2 := RseedFromSeed(seed)
	assert.True(t, v2.HasSeed())
	assert.Equal(t, NoteVersionSeed, v2.noteVersion())
	assert.Equal(t, seed, v2.wireBytes())

	first := v2.Rcm()
	second := v2.Rcm()
	assert.True(t, first.Equal(&second))
	assert.False(t, first.Equal(&rcm))

	esk1, ok := v2.EphemeralSecret()
	require.True(t, ok)
	esk2, ok := v2.EphemeralSecret()
	require.True(t, ok)
	assert.Zero(t, esk1.Cmp(esk2))
	assert.True(t, esk1.Sign() > 0)
}

func TestNewRseedIsSeeded(t *testing.T) {
	r1, err := NewRseed()
	require.NoError(t, err)
	r2, err := NewRseed()
	require.NoError(t, err)

	assert.True(t, r1.HasSeed())
	assert.NotEqual(t, r1.wireBytes(), r2.wireBytes())
}
