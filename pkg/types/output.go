package types

import "errors"

// Sizes of the shielded output fields in bytes. The note plaintext is a
// fixed 564-byte layout:
//
//	version(1) || diversifier(11) || value(8, little-endian) || rseed(32) || memo(512)
//
// Sealing it with ChaCha20-Poly1305 adds a 16-byte tag. The outgoing
// plaintext carries the ephemeral secret and the note ciphertext key.
const (
	// DiversifierSize is the length of an address diversifier
	DiversifierSize = 11

	// MemoSize is the length of the memo field
	MemoSize = 512

	// AEADTagSize is the authentication tag overhead of the note cipher
	AEADTagSize = 16

	// NotePlaintextSize is the length of the full note plaintext
	NotePlaintextSize = 1 + DiversifierSize + 8 + 32 + MemoSize

	// EncCiphertextSize is the length of the sealed note ciphertext
	EncCiphertextSize = NotePlaintextSize + AEADTagSize

	// CompactNoteSize is the length of the compact note prefix: the
	// plaintext without the memo, as carried in compact blocks
	CompactNoteSize = 1 + DiversifierSize + 8 + 32

	// OutPlaintextSize is the length of the outgoing plaintext:
	// ephemeral secret(32) || note cipher key(32)
	OutPlaintextSize = 32 + 32

	// OutCiphertextSize is the length of the sealed outgoing ciphertext
	OutCiphertextSize = OutPlaintextSize + AEADTagSize
)

// ErrInvalidMemoLength is returned when constructing a memo from data
// longer than MemoSize
var ErrInvalidMemoLength = errors.New("memo exceeds 512 bytes")

// Nullifier is the spend tag revealed when a note is consumed. Observing
// the same nullifier twice is a double spend.
type Nullifier [32]byte

// Bytes returns the nullifier as a byte slice
func (n Nullifier) Bytes() []byte {
	return n[:]
}

// NullifierFromBytes creates a Nullifier from a byte slice
func NullifierFromBytes(b []byte) Nullifier {
	var n Nullifier
	if len(b) >= len(n) {
		copy(n[:], b[:len(n)])
	}
	return n
}

// Memo is the opaque 512-byte memo field of a note plaintext
type Memo [MemoSize]byte

// DefaultMemo returns the conventional "no memo" value: a single 0xf6
// byte followed by zeros.
func DefaultMemo() Memo {
	var m Memo
	m[0] = 0xf6
	return m
}

// MemoFromBytes builds a memo from b, zero-padded to the full width
func MemoFromBytes(b []byte) (Memo, error) {
	var m Memo
	if len(b) > MemoSize {
		return m, ErrInvalidMemoLength
	}
	copy(m[:], b)
	return m, nil
}

// OutputDescription carries one shielded output of a transaction
type OutputDescription struct {
	// CV is the value commitment to the output value
	CV [32]byte

	// CMU is the note commitment
	CMU [32]byte

	// EphemeralKey is the encoded ephemeral public key for key agreement
	EphemeralKey [32]byte

	// EncCiphertext is the sealed note plaintext, decryptable by the
	// recipient's incoming viewing key
	EncCiphertext [EncCiphertextSize]byte

	// OutCiphertext is the sealed outgoing plaintext, decryptable by the
	// sender's outgoing viewing key
	OutCiphertext [OutCiphertextSize]byte
}

// ToCompact reduces the output to its compact form: the commitment, the
// ephemeral key, and the memo-less ciphertext prefix.
func (o *OutputDescription) ToCompact() *CompactOutput {
	c := &CompactOutput{
		CMU:          o.CMU,
		EphemeralKey: o.EphemeralKey,
	}
	copy(c.Ciphertext[:], o.EncCiphertext[:CompactNoteSize])
	return c
}
