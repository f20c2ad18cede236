package walletdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/artemii235/librustzcash"
	"github.com/artemii235/librustzcash/scanner"
)

// witnessPruneDepth is how many blocks of witness history are kept.
// Witnesses older than this cannot anchor a new transaction anyway.
const witnessPruneDepth = 100

// ============================================
// Scan Write Path
// ============================================

// AdvanceByBlock records one scanned block atomically: the block row
// with its commitment tree snapshot, transaction metadata, spends,
// received notes, and the witness set as of this height. It returns the
// witnesses of the block's newly received notes keyed by their assigned
// note ids.
func (db *DB) AdvanceByBlock(ctx context.Context, block *scanner.PrunedBlock, updatedWitnesses []scanner.NoteWitness) ([]scanner.NoteWitness, error) {
	if block == nil || block.CommitmentTree == nil {
		return nil, fmt.Errorf("%w: nil block", ErrInvalidData)
	}

	treeBytes, err := block.CommitmentTree.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("%w: commitment tree: %v", ErrInvalidData, err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertBlock := `
		INSERT INTO blocks (height, hash, time, sapling_tree)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, insertBlock,
		int64(block.Height), block.Hash[:], int64(block.Time), treeBytes,
	); err != nil {
		return nil, fmt.Errorf("failed to insert block %d: %w", block.Height, err)
	}

	var fresh []scanner.NoteWitness
	for _, wtx := range block.Transactions {
		idTx, err := db.upsertTransaction(ctx, tx, wtx, block.Height)
		if err != nil {
			return nil, err
		}

		for _, spend := range wtx.Spends {
			if err := db.markSpent(ctx, tx, idTx, spend); err != nil {
				return nil, err
			}
		}

		for _, output := range wtx.Outputs {
			id, err := db.putReceivedNote(ctx, tx, idTx, output)
			if err != nil {
				return nil, err
			}
			fresh = append(fresh, scanner.NoteWitness{Note: id, Witness: output.Witness})
		}
	}

	insertWitness := `
		INSERT INTO sapling_witnesses (note, block, witness)
		VALUES ($1, $2, $3)
		ON CONFLICT (note, block) DO UPDATE SET witness = $3
	`
	for _, set := range [][]scanner.NoteWitness{updatedWitnesses, fresh} {
		for _, nw := range set {
			witnessBytes, err := nw.Witness.MarshalCBOR()
			if err != nil {
				return nil, fmt.Errorf("%w: witness of note %d: %v", ErrInvalidData, nw.Note, err)
			}
			if _, err := tx.Exec(ctx, insertWitness,
				int64(nw.Note), int64(block.Height), witnessBytes,
			); err != nil {
				return nil, fmt.Errorf("failed to insert witness of note %d: %w", nw.Note, err)
			}
		}
	}

	if block.Height > witnessPruneDepth {
		pruneWitnesses := `DELETE FROM sapling_witnesses WHERE block < $1`
		if _, err := tx.Exec(ctx, pruneWitnesses, int64(block.Height-witnessPruneDepth)); err != nil {
			return nil, fmt.Errorf("failed to prune witnesses: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit block %d: %w", block.Height, err)
	}
	return fresh, nil
}

func (db *DB) upsertTransaction(ctx context.Context, tx pgx.Tx, wtx *scanner.WalletTx, height uint64) (int64, error) {
	query := `
		INSERT INTO transactions (txid, block, tx_index)
		VALUES ($1, $2, $3)
		ON CONFLICT (txid) DO UPDATE SET block = $2, tx_index = $3
		RETURNING id_tx
	`

	var idTx int64
	if err := tx.QueryRow(ctx, query,
		wtx.Hash[:], int64(height), int64(wtx.Index),
	).Scan(&idTx); err != nil {
		return 0, fmt.Errorf("failed to upsert transaction %s: %w", wtx.Hash, err)
	}
	return idTx, nil
}

func (db *DB) markSpent(ctx context.Context, tx pgx.Tx, idTx int64, spend *scanner.WalletSpend) error {
	query := `UPDATE received_notes SET spent = $1 WHERE nf = $2`

	if _, err := tx.Exec(ctx, query, idTx, spend.NF[:]); err != nil {
		return fmt.Errorf("failed to mark note spent: %w", err)
	}
	return nil
}

func (db *DB) putReceivedNote(ctx context.Context, tx pgx.Tx, idTx int64, output *scanner.WalletOutput) (scanner.NoteID, error) {
	query := `
		INSERT INTO received_notes
			(tx, output_index, account, diversifier, value,
			 rseed_version, rseed, nf, is_change, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx, output_index) DO UPDATE SET
			account = $3, diversifier = $4, value = $5,
			rseed_version = $6, rseed = $7, nf = $8,
			is_change = $9, position = $10
		RETURNING id_note
	`

	rseedVersion, rseedBytes := rseedColumns(output.Note.Rseed)
	diversifier := output.Note.Recipient.Diversifier()

	var id int64
	if err := tx.QueryRow(ctx, query,
		idTx,
		int64(output.Index),
		int64(output.Account),
		diversifier[:],
		int64(output.Note.Value),
		rseedVersion,
		rseedBytes,
		output.NF[:],
		output.IsChange,
		int64(output.Position),
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to put received note: %w", err)
	}
	return scanner.NoteID(id), nil
}

// RewindToHeight drops all wallet state above the given height: blocks,
// witnesses, and spend marks from unmined transactions. Received notes
// are kept but detached from the chain until a rescan re-mines them.
// The compact-block cache is left untouched.
func (db *DB) RewindToHeight(ctx context.Context, height uint64) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	unmineTxs := `UPDATE transactions SET block = NULL, tx_index = NULL WHERE block > $1`
	if _, err := tx.Exec(ctx, unmineTxs, int64(height)); err != nil {
		return fmt.Errorf("failed to unmine transactions: %w", err)
	}

	dropWitnesses := `DELETE FROM sapling_witnesses WHERE block > $1`
	if _, err := tx.Exec(ctx, dropWitnesses, int64(height)); err != nil {
		return fmt.Errorf("failed to drop witnesses: %w", err)
	}

	unspendNotes := `
		UPDATE received_notes SET spent = NULL
		WHERE spent IN (SELECT id_tx FROM transactions WHERE block IS NULL)
	`
	if _, err := tx.Exec(ctx, unspendNotes); err != nil {
		return fmt.Errorf("failed to unspend notes: %w", err)
	}

	dropBlocks := `DELETE FROM blocks WHERE height > $1`
	if _, err := tx.Exec(ctx, dropBlocks, int64(height)); err != nil {
		return fmt.Errorf("failed to drop blocks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rewind: %w", err)
	}

	librustzcash.Logger.WithFields(logrus.Fields{
		"height": height,
	}).Info("wallet rewound")
	return nil
}
