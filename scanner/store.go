// Package scanner walks compact blocks, trial-decrypts every shielded
// output against the wallet's viewing keys, and maintains the note
// commitment tree and per-note witnesses as it goes. Detected notes and
// spends are handed to a WalletStore for persistence.
package scanner

import (
	"context"

	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/types"
)

// NoteID identifies a received note in the wallet store
type NoteID int64

// NoteWitness pairs a stored note with its incremental witness
type NoteWitness struct {
	Note    NoteID
	Witness *merkle.Witness
}

// PrunedBlock is the scan result of one block in the form the wallet
// store persists: header linkage, the commitment tree after the block,
// and the wallet-relevant transactions.
type PrunedBlock struct {
	Height         uint64
	Hash           types.Hash
	Time           uint32
	CommitmentTree *merkle.Frontier
	Transactions   []*WalletTx
}

// WalletStore is the persistence boundary of the scanner. Implementations
// must make AdvanceByBlock atomic: either the block's notes, spends and
// witnesses are all recorded or none are.
type WalletStore interface {
	// GetScanningKeys returns the viewing keys of all tracked accounts
	GetScanningKeys(ctx context.Context) ([]*ScanningKey, error)

	// BlockHeightExtrema returns the lowest and highest scanned block
	// heights. ok is false when no block has been scanned yet.
	BlockHeightExtrema(ctx context.Context) (min, max uint64, ok bool, err error)

	// GetBlockHash returns the hash of the scanned block at height
	GetBlockHash(ctx context.Context, height uint64) (types.Hash, error)

	// GetCommitmentTree returns the commitment tree frontier as of the
	// end of the block at height.
	GetCommitmentTree(ctx context.Context, height uint64) (*merkle.Frontier, error)

	// GetWitnesses returns the witnesses of all tracked notes as of the
	// end of the block at height.
	GetWitnesses(ctx context.Context, height uint64) ([]NoteWitness, error)

	// GetNullifiers returns the nullifiers of all unspent notes
	GetNullifiers(ctx context.Context) ([]AccountNullifier, error)

	// AdvanceByBlock records one scanned block together with the
	// witnesses updated while scanning it, and returns the witnesses of
	// the block's newly received notes keyed by their assigned ids.
	AdvanceByBlock(ctx context.Context, block *PrunedBlock, updatedWitnesses []NoteWitness) ([]NoteWitness, error)

	// RewindToHeight drops all state above the given height
	RewindToHeight(ctx context.Context, height uint64) error
}

// BlockSource serves compact blocks to scan, ordered by height
type BlockSource interface {
	// GetCompactBlocks returns up to limit consecutive blocks starting
	// at fromHeight. An empty slice means the source is exhausted.
	GetCompactBlocks(ctx context.Context, fromHeight uint64, limit int) ([]*types.CompactBlock, error)
}
