package scanner

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/types"
	"github.com/artemii235/librustzcash/sapling"
)

// AccountID numbers a tracked account
type AccountID uint32

// ScanningKey is the per-account key material the scanner needs: the
// full viewing key for nullifier derivation and the incoming viewing key
// for trial decryption.
type ScanningKey struct {
	Account AccountID
	FVK     *sapling.FullViewingKey
	IVK     *sapling.IncomingViewingKey
}

// NewScanningKey derives the scanning form of a full viewing key
func NewScanningKey(account AccountID, fvk *sapling.FullViewingKey) (*ScanningKey, error) {
	ivk, err := fvk.IVK()
	if err != nil {
		return nil, err
	}
	return &ScanningKey{Account: account, FVK: fvk, IVK: ivk}, nil
}

// AccountNullifier ties a nullifier to the account whose note it spends
type AccountNullifier struct {
	Account AccountID
	NF      types.Nullifier
}

// WalletSpend is a spend of one of the wallet's notes
type WalletSpend struct {
	// Index is the spend's position within its transaction
	Index int

	// NF is the matched nullifier
	NF types.Nullifier

	// Account is the account whose note was spent
	Account AccountID
}

// WalletOutput is a detected incoming note
type WalletOutput struct {
	// Index is the output's position within its transaction
	Index int

	// CMU is the note commitment appended to the tree
	CMU fr.Element

	// Account is the receiving account
	Account AccountID

	// Note is the decrypted note
	Note *sapling.Note

	// IsChange is set when the receiving account also spent notes in
	// the same transaction.
	IsChange bool

	// Position is the commitment's leaf position in the tree
	Position uint64

	// Witness witnesses the commitment, caught up to the end of the
	// scanned block.
	Witness *merkle.Witness

	// NF is the nullifier that will spend this note
	NF types.Nullifier
}

// WalletTx is one transaction touching the wallet
type WalletTx struct {
	// Index is the transaction's position within its block
	Index uint64

	// Hash is the transaction id
	Hash types.Hash

	// Spends lists spends of the wallet's notes
	Spends []*WalletSpend

	// Outputs lists detected incoming notes
	Outputs []*WalletOutput
}

// outputHit is one successful trial decryption
type outputHit struct {
	key  *ScanningKey
	note *sapling.Note
}

// trialDecryptAll runs trial decryption of every output against every
// key, fanned out over all CPUs. Hits are indexed by the output's
// position in the flattened block.
func trialDecryptAll(block *types.CompactBlock, keys []*ScanningKey) []*outputHit {
	var outputs []*types.CompactOutput
	for _, tx := range block.Vtx {
		outputs = append(outputs, tx.Outputs...)
	}

	hits := make([]*outputHit, len(outputs))
	if len(outputs) == 0 || len(keys) == 0 {
		return hits
	}

	workers := runtime.NumCPU()
	if workers > len(outputs) {
		workers = len(outputs)
	}

	var wg sync.WaitGroup
	var offset uint32
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				idx := int(atomic.AddUint32(&offset, 1)) - 1
				if idx >= len(outputs) {
					break
				}
				for _, key := range keys {
					note, err := sapling.TryCompactNoteDecryption(key.IVK, outputs[idx])
					if err == nil {
						hits[idx] = &outputHit{key: key, note: note}
						break
					}
				}
			}
		}()
	}
	wg.Wait()
	return hits
}

// ScanBlock scans one compact block. Every output commitment is
// appended to tree and past the supplied witnesses, in block order; each
// detected output gets a fresh witness caught up to the end of the
// block, its tree position, and its nullifier. Returned are the
// transactions that spend from or pay into the wallet.
func ScanBlock(block *types.CompactBlock, keys []*ScanningKey, nullifiers []AccountNullifier, tree *merkle.Frontier, witnesses []*merkle.Witness) ([]*WalletTx, error) {
	if block == nil || tree == nil {
		return nil, fmt.Errorf("scanner: nil block or tree")
	}

	hits := trialDecryptAll(block, keys)

	var walletTxs []*WalletTx
	var blockWitnesses []*merkle.Witness
	flat := 0

	for _, tx := range block.Vtx {
		var spends []*WalletSpend
		spentFrom := make(map[AccountID]bool)
		for i, spend := range tx.Spends {
			for _, an := range nullifiers {
				if spend.NF == an.NF {
					spends = append(spends, &WalletSpend{Index: i, NF: spend.NF, Account: an.Account})
					spentFrom[an.Account] = true
					break
				}
			}
		}

		var outputs []*WalletOutput
		for i, co := range tx.Outputs {
			var node fr.Element
			if err := node.SetBytesCanonical(co.CMU[:]); err != nil {
				return nil, fmt.Errorf("scanner: block %d tx %d output %d: %w", block.Height, tx.Index, i, sapling.ErrMalformedInput)
			}

			for _, w := range witnesses {
				if err := w.Append(node); err != nil {
					return nil, fmt.Errorf("scanner: advancing witness: %w", err)
				}
			}
			for _, w := range blockWitnesses {
				if err := w.Append(node); err != nil {
					return nil, fmt.Errorf("scanner: advancing witness: %w", err)
				}
			}
			if err := tree.Append(node); err != nil {
				return nil, fmt.Errorf("scanner: appending to tree: %w", err)
			}

			hit := hits[flat]
			flat++
			if hit == nil {
				continue
			}

			witness, err := merkle.NewWitness(tree)
			if err != nil {
				return nil, fmt.Errorf("scanner: witnessing output: %w", err)
			}
			position := witness.Position()

			nf, err := hit.note.Nullifier(&hit.key.FVK.Nk, position)
			if err != nil {
				return nil, fmt.Errorf("scanner: deriving nullifier: %w", err)
			}

			outputs = append(outputs, &WalletOutput{
				Index:    i,
				CMU:      node,
				Account:  hit.key.Account,
				Note:     hit.note,
				IsChange: spentFrom[hit.key.Account],
				Position: position,
				Witness:  witness,
				NF:       nf,
			})
			blockWitnesses = append(blockWitnesses, witness)
		}

		if len(spends) > 0 || len(outputs) > 0 {
			walletTxs = append(walletTxs, &WalletTx{
				Index:   tx.Index,
				Hash:    tx.Hash,
				Spends:  spends,
				Outputs: outputs,
			})
		}
	}

	return walletTxs, nil
}
