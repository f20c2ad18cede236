package types

// CompactBlock is the trial-decryption view of a block: header linkage
// plus just enough of each shielded transaction to detect spends and
// incoming notes.
type CompactBlock struct {
	// Height is the block height
	Height uint64

	// Hash is the block hash
	Hash Hash

	// PrevHash is the hash of the preceding block
	PrevHash Hash

	// Time is the block timestamp
	Time uint32

	// Vtx lists the shielded transactions in block order
	Vtx []*CompactTx
}

// CompactTx is the compact form of one shielded transaction
type CompactTx struct {
	// Index is the transaction's position within its block
	Index uint64

	// Hash is the transaction id
	Hash Hash

	// Spends lists the revealed nullifiers
	Spends []*CompactSpend

	// Outputs lists the compact shielded outputs
	Outputs []*CompactOutput
}

// CompactSpend is the compact form of a spend: just its nullifier
type CompactSpend struct {
	// NF is the nullifier of the spent note
	NF Nullifier
}

// CompactOutput is the compact form of a shielded output
type CompactOutput struct {
	// CMU is the note commitment
	CMU [32]byte

	// EphemeralKey is the encoded ephemeral public key
	EphemeralKey [32]byte

	// Ciphertext is the leading CompactNoteSize bytes of the note
	// ciphertext, enough to recover everything but the memo
	Ciphertext [CompactNoteSize]byte
}

// OutputCount returns the number of shielded outputs in the block
func (b *CompactBlock) OutputCount() int {
	n := 0
	for _, tx := range b.Vtx {
		n += len(tx.Outputs)
	}
	return n
}
