package sapling

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/types"
)

// encryptTestOutput builds one fully encrypted output paying the default
// address of the 0x42 account.
func encryptTestOutput(t *testing.T, value uint64, seeded bool) (*Note, types.Memo, *OutgoingViewingKey, *IncomingViewingKey, *types.OutputDescription) {
	t.Helper()

	_, expsk, _, ivk, addr := testAccount(t, 0x42)

	var rseed Rseed
	if seeded {
		var err error
		rseed, err = NewRseed()
		require.NoError(t, err)
	} else {
		var rcm fr.Element
		_, err := rcm.SetRandom()
		require.NoError(t, err)
		rseed = RseedFromRcm(rcm)
	}
	note := &Note{Value: value, Recipient: *addr, Rseed: rseed}

	memo := types.DefaultMemo()
	copy(memo[:], "thanks for lunch")

	ne, err := NewNoteEncryption(note, memo, &expsk.Ovk)
	require.NoError(t, err)
	od, _, err := ne.EncryptOutput()
	require.NoError(t, err)

	return note, memo, &expsk.Ovk, ivk, od
}

func TestNoteDecryptionRoundTripSeeded(t *testing.T) {
	note, memo, _, ivk, od := encryptTestOutput(t, 50_000, true)

	got, gotMemo, err := TryNoteDecryption(ivk, od)
	require.NoError(t, err)
	assert.Equal(t, note.Value, got.Value)
	assert.Equal(t, note.Recipient.Bytes(), got.Recipient.Bytes())
	assert.Equal(t, memo, gotMemo)
	assert.True(t, got.Rseed.HasSeed())

	wantCmu, err := note.CommitmentBytes()
	require.NoError(t, err)
	assert.Equal(t, wantCmu, od.CMU)
}

func TestNoteDecryptionRoundTripRcm(t *testing.T) {
	note, memo, _, ivk, od := encryptTestOutput(t, 123, false)

	got, gotMemo, err := TryNoteDecryption(ivk, od)
	require.NoError(t, err)
	assert.Equal(t, note.Value, got.Value)
	assert.Equal(t, memo, gotMemo)
	assert.False(t, got.Rseed.HasSeed())

	wantRcm := note.Rseed.Rcm()
	gotRcm := got.Rseed.Rcm()
	assert.True(t, wantRcm.Equal(&gotRcm))
}

func TestNoteDecryptionWrongKey(t *testing.T) {
	_, _, _, _, od := encryptTestOutput(t, 50_000, true)
	_, _, _, otherIvk, _ := testAccount(t, 0x43)

	_, _, err := TryNoteDecryption(otherIvk, od)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNoteDecryptionRejectsTampering(t *testing.T) {
	_, _, _, ivk, od := encryptTestOutput(t, 50_000, true)

	cases := []struct {
		name   string
		mutate func(od *types.OutputDescription)
	}{
		{"ciphertext body", func(od *types.OutputDescription) { od.EncCiphertext[0] ^= 0x01 }},
		{"auth tag", func(od *types.OutputDescription) { od.EncCiphertext[types.EncCiphertextSize-1] ^= 0x01 }},
		{"commitment", func(od *types.OutputDescription) { od.CMU[0] ^= 0x01 }},
		{"ephemeral key", func(od *types.OutputDescription) {
			for i := range od.EphemeralKey {
				od.EphemeralKey[i] = 0xff
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := *od
			tc.mutate(&bad)
			_, _, err := TryNoteDecryption(ivk, &bad)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestCompactNoteDecryption(t *testing.T) {
	note, _, _, ivk, od := encryptTestOutput(t, 50_000, true)

	compact := od.ToCompact()
	got, err := TryCompactNoteDecryption(ivk, compact)
	require.NoError(t, err)
	assert.Equal(t, note.Value, got.Value)
	assert.Equal(t, note.Recipient.Bytes(), got.Recipient.Bytes())

	gotCmu, err := got.CommitmentBytes()
	require.NoError(t, err)
	assert.Equal(t, od.CMU, gotCmu)
}

func TestCompactNoteDecryptionRejectsTampering(t *testing.T) {
	_, _, _, ivk, od := encryptTestOutput(t, 50_000, true)

	compact := od.ToCompact()
	compact.Ciphertext[13] ^= 0x01
	_, err := TryCompactNoteDecryption(ivk, compact)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, _, _, otherIvk, _ := testAccount(t, 0x43)
	_, err = TryCompactNoteDecryption(otherIvk, od.ToCompact())
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestOutputRecovery(t *testing.T) {
	note, memo, ovk, _, od := encryptTestOutput(t, 50_000, true)

	rec, err := TryOutputRecovery(ovk, od)
	require.NoError(t, err)
	assert.Equal(t, note.Value, rec.Value)
	assert.Equal(t, note.Recipient.Diversifier(), rec.Diversifier)
	assert.Equal(t, memo, rec.Memo)
	assert.Equal(t, note.Rseed.wireBytes(), rec.Rseed.wireBytes())
}

func TestOutputRecoveryWrongKey(t *testing.T) {
	_, _, _, _, od := encryptTestOutput(t, 50_000, true)

	var wrong OutgoingViewingKey
	wrong[0] = 0xaa
	_, err := TryOutputRecovery(&wrong, od)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestOutputRecoveryRejectsTampering(t *testing.T) {
	_, _, ovk, _, od := encryptTestOutput(t, 50_000, true)

	cases := []struct {
		name   string
		mutate func(od *types.OutputDescription)
	}{
		{"value commitment", func(od *types.OutputDescription) { od.CV[0] ^= 0x01 }},
		{"commitment", func(od *types.OutputDescription) { od.CMU[0] ^= 0x01 }},
		{"ephemeral key", func(od *types.OutputDescription) { od.EphemeralKey[0] ^= 0x01 }},
		{"out ciphertext", func(od *types.OutputDescription) { od.OutCiphertext[0] ^= 0x01 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := *od
			tc.mutate(&bad)
			_, err := TryOutputRecovery(ovk, &bad)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestOutputWithoutOvkIsUnrecoverable(t *testing.T) {
	_, expsk, _, ivk, addr := testAccount(t, 0x42)

	rseed, err := NewRseed()
	require.NoError(t, err)
	note := &Note{Value: 777, Recipient: *addr, Rseed: rseed}

	ne, err := NewNoteEncryption(note, types.DefaultMemo(), nil)
	require.NoError(t, err)
	od, _, err := ne.EncryptOutput()
	require.NoError(t, err)

	// the recipient still decrypts
	got, _, err := TryNoteDecryption(ivk, od)
	require.NoError(t, err)
	assert.Equal(t, note.Value, got.Value)

	// but not even the sender's own ovk opens the outgoing ciphertext
	_, err = TryOutputRecovery(&expsk.Ovk, od)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestSeededEphemeralKeyIsBound(t *testing.T) {
	_, expsk, _, _, addr := testAccount(t, 0x42)

	rseed, err := NewRseed()
	require.NoError(t, err)
	note := &Note{Value: 1000, Recipient: *addr, Rseed: rseed}

	ne1, err := NewNoteEncryption(note, types.DefaultMemo(), &expsk.Ovk)
	require.NoError(t, err)
	ne2, err := NewNoteEncryption(note, types.DefaultMemo(), &expsk.Ovk)
	require.NoError(t, err)
	assert.Equal(t, ne1.EphemeralKey(), ne2.EphemeralKey())
}

func TestShieldedOutputPipeline(t *testing.T) {
	_, expsk, fvk, ivk, addr := testAccount(t, 0x42)

	rseed, err := NewRseed()
	require.NoError(t, err)
	note := &Note{Value: 1000, Recipient: *addr, Rseed: rseed}

	memo, err := types.MemoFromBytes([]byte("tuition, week 3"))
	require.NoError(t, err)

	ne, err := NewNoteEncryption(note, memo, &expsk.Ovk)
	require.NoError(t, err)
	od, rcv, err := ne.EncryptOutput()
	require.NoError(t, err)
	require.NotNil(t, rcv)

	// recipient side: detect, decrypt, derive the spend tag
	got, gotMemo, err := TryNoteDecryption(ivk, od)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got.Value)
	assert.Equal(t, memo, gotMemo)

	nfWant, err := note.Nullifier(&fvk.Nk, 3)
	require.NoError(t, err)
	nfGot, err := got.Nullifier(&fvk.Nk, 3)
	require.NoError(t, err)
	assert.Equal(t, nfWant, nfGot)

	// sender side: the outgoing ciphertext opens to the same payment
	rec, err := TryOutputRecovery(&expsk.Ovk, od)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), rec.Value)
	assert.Equal(t, gotMemo, rec.Memo)

	// an unrelated account sees nothing
	_, _, _, otherIvk, _ := testAccount(t, 0x43)
	_, _, err = TryNoteDecryption(otherIvk, od)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	assert.Len(t, od.EncCiphertext[:], types.EncCiphertextSize)
	assert.Len(t, od.OutCiphertext[:], types.OutCiphertextSize)

	// the commitment enters an empty tree at position zero; the anchor
	// must match an independent fold of the commitment against the
	// empty subtree roots
	tree, err := merkle.NewTree(merkle.Depth)
	require.NoError(t, err)
	var cm fr.Element
	require.NoError(t, cm.SetBytesCanonical(od.CMU[:]))
	pos, err := tree.Append(cm)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pos)

	anchor := tree.Root()
	path, err := tree.PathFor(0)
	require.NoError(t, err)
	assert.True(t, path.Verify(anchor, cm))

	// reference fold: every sibling of position zero is an empty
	// subtree root
	want := cm
	for level := uint8(0); level < merkle.Depth; level++ {
		sibling := merkle.EmptyRoot(level)
		want = merkle.Combine(level, &want, &sibling)
	}
	assert.True(t, anchor.Equal(&want))
}
