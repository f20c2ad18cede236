package walletdb

import (
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/types"
	"github.com/artemii235/librustzcash/sapling"
	"github.com/artemii235/librustzcash/scanner"
)

// Storage versions of the note randomness column. Version 1 notes carry
// the commitment trapdoor itself, version 2 notes carry the seed it
// derives from.
const (
	rseedVersionRcm  = 1
	rseedVersionSeed = 2
)

func rseedColumns(rs sapling.Rseed) (int16, []byte) {
	if seed, ok := rs.Seed(); ok {
		return rseedVersionSeed, seed[:]
	}
	rcm := rs.Rcm()
	b := rcm.Bytes()
	return rseedVersionRcm, b[:]
}

func rseedFromColumns(version int16, data []byte) (sapling.Rseed, error) {
	if len(data) != 32 {
		return sapling.Rseed{}, fmt.Errorf("%w: rseed must be 32 bytes", ErrInvalidData)
	}
	switch version {
	case rseedVersionSeed:
		var seed [32]byte
		copy(seed[:], data)
		return sapling.RseedFromSeed(seed), nil
	case rseedVersionRcm:
		var rcm fr.Element
		if err := rcm.SetBytesCanonical(data); err != nil {
			return sapling.Rseed{}, fmt.Errorf("%w: rcm: %v", ErrInvalidData, err)
		}
		return sapling.RseedFromRcm(rcm), nil
	default:
		return sapling.Rseed{}, fmt.Errorf("%w: unknown rseed version %d", ErrInvalidData, version)
	}
}

// ============================================
// Note Selection
// ============================================

// SpendableNote is a note selected to fund a transaction, together with
// the witness anchored at the selection height.
type SpendableNote struct {
	ID          scanner.NoteID
	Diversifier sapling.Diversifier
	Value       uint64
	Rseed       sapling.Rseed
	Witness     *merkle.Witness
}

// SelectSpendableNotes picks an account's oldest unspent notes whose
// values sum to at least target, witnessed as of anchorHeight. The
// window sum keeps exactly the notes whose predecessors do not yet
// cover the target, so the last selected note is the one crossing it.
func (db *DB) SelectSpendableNotes(ctx context.Context, account scanner.AccountID, target types.Amount, anchorHeight uint64) ([]*SpendableNote, error) {
	query := `
		WITH selected AS (
			SELECT rn.id_note, rn.diversifier, rn.value, rn.rseed_version, rn.rseed,
				   SUM(rn.value) OVER (PARTITION BY rn.account ORDER BY rn.id_note) AS so_far
			FROM received_notes rn
			INNER JOIN transactions tx ON tx.id_tx = rn.tx
			WHERE rn.account = $1 AND rn.spent IS NULL AND rn.value > 0
			  AND tx.block <= $2
		)
		SELECT selected.id_note, selected.diversifier, selected.value,
			   selected.rseed_version, selected.rseed, sw.witness
		FROM selected
		INNER JOIN sapling_witnesses sw ON sw.note = selected.id_note
		WHERE selected.so_far < $3 + selected.value
		  AND sw.block = $2
		ORDER BY selected.id_note ASC
	`

	rows, err := db.pool.Query(ctx, query, int64(account), int64(anchorHeight), target.Int64())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*SpendableNote
	var total int64
	for rows.Next() {
		var (
			id           int64
			diversifier  []byte
			value        int64
			rseedVersion int16
			rseedBytes   []byte
			witnessBytes []byte
		)
		if err := rows.Scan(&id, &diversifier, &value, &rseedVersion, &rseedBytes, &witnessBytes); err != nil {
			return nil, err
		}

		rseed, err := rseedFromColumns(rseedVersion, rseedBytes)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", id, err)
		}
		if len(diversifier) != types.DiversifierSize {
			return nil, fmt.Errorf("%w: note %d diversifier", ErrInvalidData, id)
		}
		var w merkle.Witness
		if err := w.UnmarshalCBOR(witnessBytes); err != nil {
			return nil, fmt.Errorf("%w: witness of note %d: %v", ErrInvalidData, id, err)
		}

		note := &SpendableNote{
			ID:      scanner.NoteID(id),
			Value:   uint64(value),
			Rseed:   rseed,
			Witness: &w,
		}
		copy(note.Diversifier[:], diversifier)
		notes = append(notes, note)
		total += value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if total < target.Int64() {
		return nil, fmt.Errorf("%w: have %d of %d", ErrInsufficientFunds, total, target.Int64())
	}
	return notes, nil
}

// ============================================
// Sent Notes
// ============================================

// SentNote records one outgoing payment of a transaction
type SentNote struct {
	OutputIndex int
	From        scanner.AccountID
	To          *sapling.PaymentAddress
	Value       types.Amount
	Memo        *types.Memo
}

// PutSentNote records an outgoing payment made from an account. The
// transaction row is created unmined when the wallet has not scanned it
// yet; a later scan attaches it to its block. Pass a nil memo to store
// none.
func (db *DB) PutSentNote(ctx context.Context, txid types.Hash, outputIndex int, from scanner.AccountID, to *sapling.PaymentAddress, value types.Amount, memo *types.Memo) error {
	if to == nil {
		return fmt.Errorf("%w: nil address", ErrInvalidData)
	}
	if !value.IsNonNegative() {
		return fmt.Errorf("%w: negative sent value", ErrInvalidData)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// ensure the transaction row exists without touching its mined state
	ensureTx := `
		INSERT INTO transactions (txid) VALUES ($1)
		ON CONFLICT (txid) DO UPDATE SET txid = EXCLUDED.txid
		RETURNING id_tx
	`
	var idTx int64
	if err := tx.QueryRow(ctx, ensureTx, txid[:]).Scan(&idTx); err != nil {
		return fmt.Errorf("failed to ensure transaction %s: %w", txid, err)
	}

	var memoBytes []byte
	if memo != nil {
		memoBytes = memo[:]
	}
	addrBytes := to.Bytes()

	insert := `
		INSERT INTO sent_notes (tx, output_index, from_account, address, value, memo)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx, output_index) DO UPDATE SET
			from_account = $3, address = $4, value = $5, memo = $6
	`
	if _, err := tx.Exec(ctx, insert,
		idTx, int64(outputIndex), int64(from), addrBytes[:], value.Int64(), memoBytes,
	); err != nil {
		return fmt.Errorf("failed to put sent note: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sent note: %w", err)
	}
	return nil
}

// GetSentNotes returns the recorded outgoing payments of a transaction,
// in output order.
func (db *DB) GetSentNotes(ctx context.Context, txid types.Hash) ([]*SentNote, error) {
	query := `
		SELECT sn.output_index, sn.from_account, sn.address, sn.value, sn.memo
		FROM sent_notes sn
		INNER JOIN transactions tx ON tx.id_tx = sn.tx
		WHERE tx.txid = $1
		ORDER BY sn.output_index ASC
	`

	rows, err := db.pool.Query(ctx, query, txid[:])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*SentNote
	for rows.Next() {
		var (
			outputIndex int64
			from        int64
			addrBytes   []byte
			value       int64
			memoBytes   []byte
		)
		if err := rows.Scan(&outputIndex, &from, &addrBytes, &value, &memoBytes); err != nil {
			return nil, err
		}

		addr, err := sapling.PaymentAddressFromBytes(addrBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: sent note address: %v", ErrInvalidData, err)
		}
		amount, err := types.AmountFromInt64(value)
		if err != nil {
			return nil, fmt.Errorf("%w: sent note value %d", ErrInvalidData, value)
		}

		note := &SentNote{
			OutputIndex: int(outputIndex),
			From:        scanner.AccountID(from),
			To:          addr,
			Value:       amount,
		}
		if memoBytes != nil {
			memo, err := types.MemoFromBytes(memoBytes)
			if err != nil {
				return nil, fmt.Errorf("%w: sent note memo: %v", ErrInvalidData, err)
			}
			note.Memo = &memo
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}
