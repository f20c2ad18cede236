package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/artemii235/librustzcash"
	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/types"
)

// Chain continuity errors. Both indicate that the cached chain does not
// extend the wallet's view and a rewind or refetch is needed.
var (
	ErrBlockHeightDiscontinuity = errors.New("scanner: block height is not sequential")
	ErrPrevHashMismatch         = errors.New("scanner: block does not extend the previous block")
)

// DefaultBatchSize is how many compact blocks are pulled from the
// source per round
const DefaultBatchSize = 100

// Scanner drives chain scanning: it pulls compact blocks from a source,
// scans them against the wallet's keys, and persists the results block
// by block.
type Scanner struct {
	store  WalletStore
	source BlockSource
	batch  int
	log    *logrus.Logger
}

// New creates a scanner over a wallet store and a block source
func New(store WalletStore, source BlockSource) *Scanner {
	return &Scanner{
		store:  store,
		source: source,
		batch:  DefaultBatchSize,
		log:    librustzcash.Logger,
	}
}

// SetBatchSize adjusts how many blocks are pulled per round
func (s *Scanner) SetBatchSize(n int) {
	if n > 0 {
		s.batch = n
	}
}

// ValidateChain checks that blocks form a hash chain continuing at
// (tipHeight, tipHash).
func ValidateChain(blocks []*types.CompactBlock, tipHeight uint64, tipHash types.Hash) error {
	prevHeight, prevHash := tipHeight, tipHash
	for _, b := range blocks {
		if b.Height != prevHeight+1 {
			return fmt.Errorf("%w: got %d after %d", ErrBlockHeightDiscontinuity, b.Height, prevHeight)
		}
		if b.PrevHash != prevHash {
			return fmt.Errorf("%w: at height %d", ErrPrevHashMismatch, b.Height)
		}
		prevHeight, prevHash = b.Height, b.Hash
	}
	return nil
}

// ScanCachedBlocks scans every block the source has beyond the wallet's
// synced height and returns how many were scanned. The commitment tree
// and witnesses are picked up where the last scan left off; each block
// is persisted before the next one is read, so an error leaves the
// wallet consistent at the last completed block.
func (s *Scanner) ScanCachedBlocks(ctx context.Context) (int, error) {
	keys, err := s.store.GetScanningKeys(ctx)
	if err != nil {
		return 0, err
	}

	var (
		tree       *merkle.Frontier
		witnesses  []NoteWitness
		prevHeight uint64
		prevHash   types.Hash
		from       uint64
		haveTip    bool
	)

	_, maxHeight, ok, err := s.store.BlockHeightExtrema(ctx)
	if err != nil {
		return 0, err
	}
	if ok {
		haveTip = true
		prevHeight = maxHeight
		from = maxHeight + 1
		if prevHash, err = s.store.GetBlockHash(ctx, maxHeight); err != nil {
			return 0, err
		}
		if tree, err = s.store.GetCommitmentTree(ctx, maxHeight); err != nil {
			return 0, err
		}
		if witnesses, err = s.store.GetWitnesses(ctx, maxHeight); err != nil {
			return 0, err
		}
	} else {
		// fresh wallet: scanning starts wherever the cache starts, with
		// an empty tree
		tree = merkle.NewFrontier()
	}

	scanned := 0
	for {
		if err := ctx.Err(); err != nil {
			return scanned, err
		}

		blocks, err := s.source.GetCompactBlocks(ctx, from, s.batch)
		if err != nil {
			return scanned, err
		}
		if len(blocks) == 0 {
			return scanned, nil
		}

		for _, block := range blocks {
			if haveTip {
				if block.Height != prevHeight+1 {
					return scanned, fmt.Errorf("%w: got %d after %d", ErrBlockHeightDiscontinuity, block.Height, prevHeight)
				}
				if block.PrevHash != prevHash {
					return scanned, fmt.Errorf("%w: at height %d", ErrPrevHashMismatch, block.Height)
				}
			}

			nullifiers, err := s.store.GetNullifiers(ctx)
			if err != nil {
				return scanned, err
			}

			witnessPtrs := make([]*merkle.Witness, len(witnesses))
			for i, nw := range witnesses {
				witnessPtrs[i] = nw.Witness
			}

			txs, err := ScanBlock(block, keys, nullifiers, tree, witnessPtrs)
			if err != nil {
				return scanned, fmt.Errorf("scanning block %d: %w", block.Height, err)
			}

			pruned := &PrunedBlock{
				Height:         block.Height,
				Hash:           block.Hash,
				Time:           block.Time,
				CommitmentTree: tree,
				Transactions:   txs,
			}
			newWitnesses, err := s.store.AdvanceByBlock(ctx, pruned, witnesses)
			if err != nil {
				return scanned, fmt.Errorf("persisting block %d: %w", block.Height, err)
			}
			witnesses = append(witnesses, newWitnesses...)

			s.log.WithFields(logrus.Fields{
				"height":  block.Height,
				"txs":     len(txs),
				"outputs": block.OutputCount(),
			}).Debug("scanned block")

			prevHeight, prevHash, haveTip = block.Height, block.Hash, true
			scanned++
		}

		from = prevHeight + 1
	}
}
