package walletdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/types"
	"github.com/artemii235/librustzcash/scanner"
)

// ============================================
// Chain View Operations
// ============================================

// BlockHeightExtrema returns the lowest and highest scanned block
// heights. ok is false when no block has been scanned yet.
func (db *DB) BlockHeightExtrema(ctx context.Context) (min, max uint64, ok bool, err error) {
	query := `SELECT MIN(height), MAX(height) FROM blocks`

	var lo, hi *int64
	if err := db.pool.QueryRow(ctx, query).Scan(&lo, &hi); err != nil {
		return 0, 0, false, fmt.Errorf("failed to get block extrema: %w", err)
	}
	if lo == nil || hi == nil {
		return 0, 0, false, nil
	}
	return uint64(*lo), uint64(*hi), true, nil
}

// GetBlockHash returns the hash of the scanned block at height
func (db *DB) GetBlockHash(ctx context.Context, height uint64) (types.Hash, error) {
	query := `SELECT hash FROM blocks WHERE height = $1`

	var hashBytes []byte
	err := db.pool.QueryRow(ctx, query, int64(height)).Scan(&hashBytes)
	if err == pgx.ErrNoRows {
		return types.EmptyHash, ErrNotFound
	}
	if err != nil {
		return types.EmptyHash, fmt.Errorf("failed to get block hash: %w", err)
	}
	return types.HashFromBytes(hashBytes), nil
}

// GetCommitmentTree returns the commitment tree frontier as of the end
// of the block at height.
func (db *DB) GetCommitmentTree(ctx context.Context, height uint64) (*merkle.Frontier, error) {
	query := `SELECT sapling_tree FROM blocks WHERE height = $1`

	var treeBytes []byte
	err := db.pool.QueryRow(ctx, query, int64(height)).Scan(&treeBytes)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commitment tree: %w", err)
	}

	frontier := merkle.NewFrontier()
	if err := frontier.UnmarshalCBOR(treeBytes); err != nil {
		return nil, fmt.Errorf("%w: commitment tree at %d: %v", ErrInvalidData, height, err)
	}
	return frontier, nil
}

// GetWitnesses returns the witnesses of all tracked notes as of the end
// of the block at height.
func (db *DB) GetWitnesses(ctx context.Context, height uint64) ([]scanner.NoteWitness, error) {
	query := `
		SELECT note, witness FROM sapling_witnesses
		WHERE block = $1
		ORDER BY note ASC
	`

	rows, err := db.pool.Query(ctx, query, int64(height))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var witnesses []scanner.NoteWitness
	for rows.Next() {
		var note int64
		var witnessBytes []byte
		if err := rows.Scan(&note, &witnessBytes); err != nil {
			return nil, err
		}

		var w merkle.Witness
		if err := w.UnmarshalCBOR(witnessBytes); err != nil {
			return nil, fmt.Errorf("%w: witness of note %d: %v", ErrInvalidData, note, err)
		}
		witnesses = append(witnesses, scanner.NoteWitness{
			Note:    scanner.NoteID(note),
			Witness: &w,
		})
	}
	return witnesses, rows.Err()
}

// GetNullifiers returns the nullifiers of all unspent notes from mined
// transactions.
func (db *DB) GetNullifiers(ctx context.Context) ([]scanner.AccountNullifier, error) {
	query := `
		SELECT rn.account, rn.nf
		FROM received_notes rn
		INNER JOIN transactions tx ON tx.id_tx = rn.tx
		WHERE rn.spent IS NULL AND tx.block IS NOT NULL
		ORDER BY rn.id_note ASC
	`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nullifiers []scanner.AccountNullifier
	for rows.Next() {
		var account int64
		var nf []byte
		if err := rows.Scan(&account, &nf); err != nil {
			return nil, err
		}
		nullifiers = append(nullifiers, scanner.AccountNullifier{
			Account: scanner.AccountID(account),
			NF:      types.NullifierFromBytes(nf),
		})
	}
	return nullifiers, rows.Err()
}

// TargetAndAnchorHeights returns the height a new transaction would
// enter the chain at and the anchor height its spends should reference,
// the target lowered by the configured confirmation offset but never
// below the wallet's birthday block. ok is false when no block has been
// scanned yet.
func (db *DB) TargetAndAnchorHeights(ctx context.Context) (target, anchor uint64, ok bool, err error) {
	min, max, ok, err := db.BlockHeightExtrema(ctx)
	if err != nil || !ok {
		return 0, 0, false, err
	}

	target = max + 1
	offset := uint64(db.params.AnchorOffset)
	if target > offset {
		anchor = target - offset
	}
	if anchor < min {
		anchor = min
	}
	return target, anchor, true, nil
}

// ============================================
// Balance Operations
// ============================================

// GetBalance returns the total value of an account's unspent notes from
// mined transactions.
func (db *DB) GetBalance(ctx context.Context, account scanner.AccountID) (types.Amount, error) {
	query := `
		SELECT COALESCE(SUM(rn.value), 0)
		FROM received_notes rn
		INNER JOIN transactions tx ON tx.id_tx = rn.tx
		WHERE rn.account = $1 AND rn.spent IS NULL AND tx.block IS NOT NULL
	`

	var sum int64
	if err := db.pool.QueryRow(ctx, query, int64(account)).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return types.AmountFromInt64(sum)
}

// GetBalanceAt returns the total value of an account's unspent notes
// from transactions mined at or below maxHeight. With the anchor height
// this gives the balance usable in a new transaction.
func (db *DB) GetBalanceAt(ctx context.Context, account scanner.AccountID, maxHeight uint64) (types.Amount, error) {
	query := `
		SELECT COALESCE(SUM(rn.value), 0)
		FROM received_notes rn
		INNER JOIN transactions tx ON tx.id_tx = rn.tx
		WHERE rn.account = $1 AND rn.spent IS NULL AND tx.block <= $2
	`

	var sum int64
	if err := db.pool.QueryRow(ctx, query, int64(account), int64(maxHeight)).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return types.AmountFromInt64(sum)
}
