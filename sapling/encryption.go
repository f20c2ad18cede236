package sapling

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/artemii235/librustzcash/internal/jubjub"
	"github.com/artemii235/librustzcash/pkg/common"
	"github.com/artemii235/librustzcash/pkg/types"
)

// Note plaintext layout. All offsets are fixed so the compact form is a
// prefix of the full form.
const (
	ptVersionOffset     = 0
	ptDiversifierOffset = 1
	ptValueOffset       = ptDiversifierOffset + types.DiversifierSize
	ptRseedOffset       = ptValueOffset + 8
	ptMemoOffset        = ptRseedOffset + 32
)

// NoteEncryption holds the ephemeral state for encrypting one output.
// Each value must be used for a single output only; reusing the
// ephemeral secret across outputs links them.
type NoteEncryption struct {
	epk  twistededwards.PointAffine
	esk  *big.Int
	note *Note
	memo types.Memo
	ovk  *OutgoingViewingKey
}

// NewNoteEncryption prepares encryption of note to its recipient. For
// seeded notes the ephemeral secret is derived from the seed, otherwise
// it is sampled fresh. Pass a nil ovk to make the output unrecoverable
// by the sender.
func NewNoteEncryption(note *Note, memo types.Memo, ovk *OutgoingViewingKey) (*NoteEncryption, error) {
	if note == nil {
		return nil, fmt.Errorf("%w: nil note", ErrMalformedInput)
	}

	esk, ok := note.Rseed.EphemeralSecret()
	if !ok {
		var err error
		esk, err = jubjub.RandomScalar()
		if err != nil {
			return nil, err
		}
	}

	d := note.Recipient.Diversifier()
	gd, err := DiversifyHash(d)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid diversifier", ErrMalformedInput)
	}

	epk := jubjub.ScalarMulCT(gd, esk)
	if jubjub.IsIdentity(epk) {
		return nil, fmt.Errorf("%w: degenerate ephemeral key", ErrMalformedInput)
	}

	return &NoteEncryption{
		epk:  *epk,
		esk:  esk,
		note: note,
		memo: memo,
		ovk:  ovk,
	}, nil
}

// EphemeralKey returns the encoded ephemeral public key epk for the
// output description.
func (ne *NoteEncryption) EphemeralKey() [32]byte {
	return ne.epk.Bytes()
}

// symmetricKey derives the shared note encryption key from the sender
// side: KDF(cofactor * [esk] pk_d, epk).
func (ne *NoteEncryption) symmetricKey() ([32]byte, error) {
	pkd := ne.note.Recipient.PkD()
	shared := jubjub.ScalarMulCT(&pkd, ne.esk)
	jubjub.MulByCofactor(shared, shared)
	if jubjub.IsIdentity(shared) {
		return [32]byte{}, fmt.Errorf("%w: degenerate shared secret", ErrMalformedInput)
	}

	return kdf(shared.Bytes(), ne.epk.Bytes()), nil
}

// notePlaintext assembles the 564 byte note plaintext:
// version, diversifier, value, rcm or rseed, memo.
func (ne *NoteEncryption) notePlaintext() [types.NotePlaintextSize]byte {
	var pt [types.NotePlaintextSize]byte
	pt[ptVersionOffset] = ne.note.Rseed.noteVersion()

	d := ne.note.Recipient.Diversifier()
	copy(pt[ptDiversifierOffset:], d[:])
	binary.LittleEndian.PutUint64(pt[ptValueOffset:], ne.note.Value)

	rseed := ne.note.Rseed.wireBytes()
	copy(pt[ptRseedOffset:], rseed[:])
	copy(pt[ptMemoOffset:], ne.memo[:])
	return pt
}

// EncryptNotePlaintext produces the 580 byte enc_ciphertext for the
// recipient.
func (ne *NoteEncryption) EncryptNotePlaintext() ([types.EncCiphertextSize]byte, error) {
	var out [types.EncCiphertextSize]byte

	key, err := ne.symmetricKey()
	if err != nil {
		return out, err
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return out, err
	}

	pt := ne.notePlaintext()
	nonce := make([]byte, chacha20poly1305.NonceSize)
	ct := aead.Seal(nil, nonce, pt[:], nil)
	copy(out[:], ct)
	return out, nil
}

// EncryptOutgoingPlaintext produces the 80 byte out_ciphertext binding
// the ephemeral secret and the note encryption key to this output. With
// a nil ovk the ciphertext is filled from fresh randomness and nobody
// can open it.
func (ne *NoteEncryption) EncryptOutgoingPlaintext(cv, cmu [32]byte) ([types.OutCiphertextSize]byte, error) {
	var out [types.OutCiphertextSize]byte

	var ock [32]byte
	var outPt [types.OutPlaintextSize]byte

	epkBytes := ne.epk.Bytes()
	if ne.ovk != nil {
		ock = deriveOck(*ne.ovk, cv, cmu, epkBytes)

		key, err := ne.symmetricKey()
		if err != nil {
			return out, err
		}
		ne.esk.FillBytes(outPt[:32])
		copy(outPt[32:], key[:])
	} else {
		rnd, err := common.RandomBytes(32 + types.OutPlaintextSize)
		if err != nil {
			return out, err
		}
		copy(ock[:], rnd[:32])
		copy(outPt[:], rnd[32:])
	}

	aead, err := chacha20poly1305.New(ock[:])
	if err != nil {
		return out, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	ct := aead.Seal(nil, nonce, outPt[:], nil)
	copy(out[:], ct)
	return out, nil
}

// EncryptOutput runs the full output pipeline: commit to the value,
// commit to the note, encrypt both ciphertexts. The returned blinding
// factor is needed for value conservation checks across the
// transaction.
func (ne *NoteEncryption) EncryptOutput() (*types.OutputDescription, *big.Int, error) {
	cv, rcv, err := RandomValueCommitment(ne.note.Value)
	if err != nil {
		return nil, nil, err
	}

	cmu, err := ne.note.CommitmentBytes()
	if err != nil {
		return nil, nil, err
	}

	encCiphertext, err := ne.EncryptNotePlaintext()
	if err != nil {
		return nil, nil, err
	}

	cvBytes := cv.Bytes()
	outCiphertext, err := ne.EncryptOutgoingPlaintext(cvBytes, cmu)
	if err != nil {
		return nil, nil, err
	}

	return &types.OutputDescription{
		CV:            cvBytes,
		CMU:           cmu,
		EphemeralKey:  ne.EphemeralKey(),
		EncCiphertext: encCiphertext,
		OutCiphertext: outCiphertext,
	}, rcv, nil
}
