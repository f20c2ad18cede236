package walletdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artemii235/librustzcash/sapling"
	"github.com/artemii235/librustzcash/scanner"
)

// ============================================
// Account Operations
// ============================================

// ImportAccount registers a full viewing key under an account number.
// The default payment address is stored alongside it for display.
func (db *DB) ImportAccount(ctx context.Context, account scanner.AccountID, fvk *sapling.FullViewingKey, address *sapling.PaymentAddress) error {
	if fvk == nil || address == nil {
		return fmt.Errorf("%w: nil key material", ErrInvalidData)
	}

	query := `
		INSERT INTO accounts (account, fvk, address)
		VALUES ($1, $2, $3)
		ON CONFLICT (account) DO NOTHING
	`

	fvkBytes := fvk.Bytes()
	addrBytes := address.Bytes()

	tag, err := db.pool.Exec(ctx, query, int64(account), fvkBytes[:], addrBytes[:])
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", ErrDuplicate, account)
	}
	return nil
}

// GetScanningKeys returns the scanning keys of all tracked accounts
func (db *DB) GetScanningKeys(ctx context.Context) ([]*scanner.ScanningKey, error) {
	query := `SELECT account, fvk FROM accounts ORDER BY account ASC`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*scanner.ScanningKey
	for rows.Next() {
		var account int64
		var fvkBytes []byte
		if err := rows.Scan(&account, &fvkBytes); err != nil {
			return nil, err
		}

		fvk, err := sapling.FullViewingKeyFromBytes(fvkBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: account %d viewing key: %v", ErrInvalidData, account, err)
		}
		key, err := scanner.NewScanningKey(scanner.AccountID(account), fvk)
		if err != nil {
			return nil, fmt.Errorf("%w: account %d viewing key: %v", ErrInvalidData, account, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetAddress returns the stored default address of an account
func (db *DB) GetAddress(ctx context.Context, account scanner.AccountID) (*sapling.PaymentAddress, error) {
	query := `SELECT address FROM accounts WHERE account = $1`

	var addrBytes []byte
	err := db.pool.QueryRow(ctx, query, int64(account)).Scan(&addrBytes)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	addr, err := sapling.PaymentAddressFromBytes(addrBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: account %d address: %v", ErrInvalidData, account, err)
	}
	return addr, nil
}
