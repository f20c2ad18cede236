package sapling

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/artemii235/librustzcash/internal/jubjub"
	"github.com/artemii235/librustzcash/pkg/types"
)

// parsedNote is the decoded plaintext prefix shared by the full and
// compact forms
type parsedNote struct {
	version byte
	d       Diversifier
	value   uint64
	rseed   [32]byte
}

func parseNotePrefix(pt []byte) parsedNote {
	var p parsedNote
	p.version = pt[ptVersionOffset]
	copy(p.d[:], pt[ptDiversifierOffset:ptValueOffset])
	p.value = binary.LittleEndian.Uint64(pt[ptValueOffset:ptRseedOffset])
	copy(p.rseed[:], pt[ptRseedOffset:ptMemoOffset])
	return p
}

// noteFromPlaintext rebuilds and authenticates the note a decrypted
// plaintext claims, deriving the transmission key from ivk. For seeded
// plaintexts the ephemeral key must equal the one the seed derives.
// Every failure maps to ErrDecryptionFailed.
func (ivk *IncomingViewingKey) noteFromPlaintext(p parsedNote, ephemeralKey, cmu [32]byte) (*Note, error) {
	gd, err := DiversifyHash(p.d)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	var rseed Rseed
	switch p.version {
	case NoteVersionRcm:
		var rcm fr.Element
		if err := rcm.SetBytesCanonical(p.rseed[:]); err != nil {
			return nil, ErrDecryptionFailed
		}
		rseed = RseedFromRcm(rcm)
	case NoteVersionSeed:
		rseed = RseedFromSeed(p.rseed)
		esk, _ := rseed.EphemeralSecret()
		derived := jubjub.ScalarMulCT(gd, esk)
		derivedBytes := derived.Bytes()
		if subtle.ConstantTimeCompare(derivedBytes[:], ephemeralKey[:]) != 1 {
			return nil, ErrDecryptionFailed
		}
	default:
		return nil, ErrDecryptionFailed
	}

	pkd := jubjub.ScalarMulCT(gd, ivk.ivk)
	if jubjub.IsIdentity(pkd) {
		return nil, ErrDecryptionFailed
	}

	note := &Note{
		Value:     p.value,
		Recipient: PaymentAddress{pkd: *pkd, d: p.d},
		Rseed:     rseed,
	}

	gotCmu, err := note.CommitmentBytes()
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if subtle.ConstantTimeCompare(gotCmu[:], cmu[:]) != 1 {
		return nil, ErrDecryptionFailed
	}
	return note, nil
}

// TryNoteDecryption attempts to decrypt one full output with an incoming
// viewing key. On success it returns the note and its memo. Any failure,
// from a malformed ephemeral key to a commitment mismatch, returns
// ErrDecryptionFailed without further detail.
func TryNoteDecryption(ivk *IncomingViewingKey, od *types.OutputDescription) (*Note, types.Memo, error) {
	var memo types.Memo
	if ivk == nil || od == nil {
		return nil, memo, fmt.Errorf("%w: nil argument", ErrMalformedInput)
	}

	epk, err := jubjub.Decode(od.EphemeralKey[:])
	if err != nil || jubjub.IsSmallOrder(epk) {
		return nil, memo, ErrDecryptionFailed
	}

	shared := jubjub.ScalarMulCT(epk, ivk.ivk)
	jubjub.MulByCofactor(shared, shared)
	if jubjub.IsIdentity(shared) {
		return nil, memo, ErrDecryptionFailed
	}
	key := kdf(shared.Bytes(), od.EphemeralKey)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, memo, ErrDecryptionFailed
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	pt, err := aead.Open(nil, nonce, od.EncCiphertext[:], nil)
	if err != nil {
		return nil, memo, ErrDecryptionFailed
	}

	note, err := ivk.noteFromPlaintext(parseNotePrefix(pt), od.EphemeralKey, od.CMU)
	if err != nil {
		return nil, memo, err
	}

	copy(memo[:], pt[ptMemoOffset:])
	return note, memo, nil
}

// TryCompactNoteDecryption attempts to decrypt a compact output. Compact
// ciphertexts carry no authentication tag; recomputing the note
// commitment and matching it against cmu authenticates the result
// instead. There is no memo in the compact form.
func TryCompactNoteDecryption(ivk *IncomingViewingKey, co *types.CompactOutput) (*Note, error) {
	if ivk == nil || co == nil {
		return nil, fmt.Errorf("%w: nil argument", ErrMalformedInput)
	}

	epk, err := jubjub.Decode(co.EphemeralKey[:])
	if err != nil || jubjub.IsSmallOrder(epk) {
		return nil, ErrDecryptionFailed
	}

	shared := jubjub.ScalarMulCT(epk, ivk.ivk)
	jubjub.MulByCofactor(shared, shared)
	if jubjub.IsIdentity(shared) {
		return nil, ErrDecryptionFailed
	}
	key := kdf(shared.Bytes(), co.EphemeralKey)

	// The AEAD spends keystream block zero on its authentication key, so
	// the plaintext stream starts at block one.
	nonce := make([]byte, chacha20.NonceSize)
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	stream.SetCounter(1)

	var pt [types.CompactNoteSize]byte
	stream.XORKeyStream(pt[:], co.Ciphertext[:])

	return ivk.noteFromPlaintext(parseNotePrefix(pt[:]), co.EphemeralKey, co.CMU)
}

// RecoveredOutput is what a sender gets back from one of its own
// outputs. The outgoing plaintext carries the ephemeral secret and the
// note encryption key but not the transmission key, so the note itself
// cannot be rebuilt; the recovered fields identify the payment.
type RecoveredOutput struct {
	Value       uint64
	Diversifier Diversifier
	Rseed       Rseed
	Memo        types.Memo
}

// TryOutputRecovery attempts to open an output with the sender's
// outgoing viewing key. cv, cmu and epk all feed the outgoing cipher
// key, so tampering with any of them fails the first open. Failures
// return ErrDecryptionFailed.
func TryOutputRecovery(ovk *OutgoingViewingKey, od *types.OutputDescription) (*RecoveredOutput, error) {
	if ovk == nil || od == nil {
		return nil, fmt.Errorf("%w: nil argument", ErrMalformedInput)
	}

	ock := deriveOck(*ovk, od.CV, od.CMU, od.EphemeralKey)
	outer, err := chacha20poly1305.New(ock[:])
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	outPt, err := outer.Open(nil, nonce, od.OutCiphertext[:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	esk := new(big.Int).SetBytes(outPt[:32])
	if esk.Sign() == 0 || esk.Cmp(jubjub.Order()) >= 0 {
		return nil, ErrDecryptionFailed
	}

	var key [32]byte
	copy(key[:], outPt[32:])
	inner, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	pt, err := inner.Open(nil, nonce, od.EncCiphertext[:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	p := parseNotePrefix(pt)
	gd, err := DiversifyHash(p.d)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	// epk must be the key this esk produces for this diversifier
	derived := jubjub.ScalarMulCT(gd, esk)
	derivedBytes := derived.Bytes()
	if subtle.ConstantTimeCompare(derivedBytes[:], od.EphemeralKey[:]) != 1 {
		return nil, ErrDecryptionFailed
	}

	var rseed Rseed
	switch p.version {
	case NoteVersionRcm:
		var rcm fr.Element
		if err := rcm.SetBytesCanonical(p.rseed[:]); err != nil {
			return nil, ErrDecryptionFailed
		}
		rseed = RseedFromRcm(rcm)
	case NoteVersionSeed:
		rseed = RseedFromSeed(p.rseed)
		boundEsk, _ := rseed.EphemeralSecret()
		if boundEsk.Cmp(esk) != 0 {
			return nil, ErrDecryptionFailed
		}
	default:
		return nil, ErrDecryptionFailed
	}

	if p.value > types.MaxMoney {
		return nil, ErrDecryptionFailed
	}

	out := &RecoveredOutput{
		Value:       p.value,
		Diversifier: p.d,
		Rseed:       rseed,
	}
	copy(out.Memo[:], pt[ptMemoOffset:])
	return out, nil
}
