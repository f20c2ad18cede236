package walletdb

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/artemii235/librustzcash/pkg/types"
)

var (
	cacheEnc cbor.EncMode
	cacheDec cbor.DecMode
)

func init() {
	var err error
	cacheEnc, err = cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(err)
	}
	cacheDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Cache wire form of a compact block. Kept separate from the in-memory
// types so the stored encoding survives refactors of those.
type compactBlockWire struct {
	Height   uint64          `cbor:"height"`
	Hash     [32]byte        `cbor:"hash"`
	PrevHash [32]byte        `cbor:"prevHash"`
	Time     uint32          `cbor:"time"`
	Vtx      []compactTxWire `cbor:"vtx,omitempty"`
}

type compactTxWire struct {
	Index   uint64              `cbor:"index"`
	Hash    [32]byte            `cbor:"hash"`
	Spends  []compactSpendWire  `cbor:"spends,omitempty"`
	Outputs []compactOutputWire `cbor:"outputs,omitempty"`
}

type compactSpendWire struct {
	NF [32]byte `cbor:"nf"`
}

type compactOutputWire struct {
	CMU          [32]byte                    `cbor:"cmu"`
	EphemeralKey [32]byte                    `cbor:"epk"`
	Ciphertext   [types.CompactNoteSize]byte `cbor:"ct"`
}

func compactBlockToWire(b *types.CompactBlock) *compactBlockWire {
	w := &compactBlockWire{
		Height:   b.Height,
		Hash:     b.Hash,
		PrevHash: b.PrevHash,
		Time:     b.Time,
	}
	for _, tx := range b.Vtx {
		wtx := compactTxWire{Index: tx.Index, Hash: tx.Hash}
		for _, spend := range tx.Spends {
			wtx.Spends = append(wtx.Spends, compactSpendWire{NF: spend.NF})
		}
		for _, out := range tx.Outputs {
			wtx.Outputs = append(wtx.Outputs, compactOutputWire{
				CMU:          out.CMU,
				EphemeralKey: out.EphemeralKey,
				Ciphertext:   out.Ciphertext,
			})
		}
		w.Vtx = append(w.Vtx, wtx)
	}
	return w
}

func compactBlockFromWire(w *compactBlockWire) *types.CompactBlock {
	b := &types.CompactBlock{
		Height:   w.Height,
		Hash:     w.Hash,
		PrevHash: w.PrevHash,
		Time:     w.Time,
	}
	for _, wtx := range w.Vtx {
		tx := &types.CompactTx{Index: wtx.Index, Hash: wtx.Hash}
		for _, spend := range wtx.Spends {
			tx.Spends = append(tx.Spends, &types.CompactSpend{NF: spend.NF})
		}
		for _, out := range wtx.Outputs {
			tx.Outputs = append(tx.Outputs, &types.CompactOutput{
				CMU:          out.CMU,
				EphemeralKey: out.EphemeralKey,
				Ciphertext:   out.Ciphertext,
			})
		}
		b.Vtx = append(b.Vtx, tx)
	}
	return b
}

// ============================================
// Compact Block Cache
// ============================================

// PutCompactBlock stores a downloaded compact block, replacing any
// previous block at the same height.
func (db *DB) PutCompactBlock(ctx context.Context, block *types.CompactBlock) error {
	if block == nil {
		return fmt.Errorf("%w: nil block", ErrInvalidData)
	}

	data, err := cacheEnc.Marshal(compactBlockToWire(block))
	if err != nil {
		return fmt.Errorf("%w: compact block %d: %v", ErrInvalidData, block.Height, err)
	}

	query := `
		INSERT INTO compact_blocks (height, data)
		VALUES ($1, $2)
		ON CONFLICT (height) DO UPDATE SET data = $2
	`
	if _, err := db.pool.Exec(ctx, query, int64(block.Height), data); err != nil {
		return fmt.Errorf("failed to put compact block %d: %w", block.Height, err)
	}
	return nil
}

// GetCompactBlocks returns up to limit consecutive cached blocks
// starting at fromHeight, in height order.
func (db *DB) GetCompactBlocks(ctx context.Context, fromHeight uint64, limit int) ([]*types.CompactBlock, error) {
	query := `
		SELECT data FROM compact_blocks
		WHERE height >= $1
		ORDER BY height ASC
		LIMIT $2
	`

	rows, err := db.pool.Query(ctx, query, int64(fromHeight), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*types.CompactBlock
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var wire compactBlockWire
		if err := cacheDec.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: cached block: %v", ErrInvalidData, err)
		}
		blocks = append(blocks, compactBlockFromWire(&wire))
	}
	return blocks, rows.Err()
}

// CacheTip returns the height of the highest cached compact block.
// ok is false when the cache is empty.
func (db *DB) CacheTip(ctx context.Context) (uint64, bool, error) {
	query := `SELECT MAX(height) FROM compact_blocks`

	var tip *int64
	if err := db.pool.QueryRow(ctx, query).Scan(&tip); err != nil {
		return 0, false, fmt.Errorf("failed to get cache tip: %w", err)
	}
	if tip == nil {
		return 0, false, nil
	}
	return uint64(*tip), true, nil
}
