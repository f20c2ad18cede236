package walletdb

import (
	"context"
	"fmt"

	"github.com/artemii235/librustzcash"
)

// schemaStatements creates the wallet tables. Statements are idempotent
// and ordered so that every referenced table exists before its
// dependents.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account BIGINT PRIMARY KEY,
		fvk BYTEA NOT NULL,
		address BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		height BIGINT PRIMARY KEY,
		hash BYTEA NOT NULL,
		time BIGINT NOT NULL,
		sapling_tree BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id_tx BIGSERIAL PRIMARY KEY,
		txid BYTEA NOT NULL UNIQUE,
		block BIGINT REFERENCES blocks(height),
		tx_index BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS received_notes (
		id_note BIGSERIAL PRIMARY KEY,
		tx BIGINT NOT NULL REFERENCES transactions(id_tx),
		output_index BIGINT NOT NULL,
		account BIGINT NOT NULL REFERENCES accounts(account),
		diversifier BYTEA NOT NULL,
		value BIGINT NOT NULL,
		rseed_version SMALLINT NOT NULL,
		rseed BYTEA NOT NULL,
		nf BYTEA NOT NULL UNIQUE,
		is_change BOOLEAN NOT NULL,
		memo BYTEA,
		position BIGINT NOT NULL,
		spent BIGINT REFERENCES transactions(id_tx),
		CONSTRAINT tx_output UNIQUE (tx, output_index)
	)`,
	`CREATE TABLE IF NOT EXISTS sapling_witnesses (
		id_witness BIGSERIAL PRIMARY KEY,
		note BIGINT NOT NULL REFERENCES received_notes(id_note) ON DELETE CASCADE,
		block BIGINT NOT NULL REFERENCES blocks(height) ON DELETE CASCADE,
		witness BYTEA NOT NULL,
		CONSTRAINT witness_height UNIQUE (note, block)
	)`,
	`CREATE TABLE IF NOT EXISTS sent_notes (
		id_note BIGSERIAL PRIMARY KEY,
		tx BIGINT NOT NULL REFERENCES transactions(id_tx),
		output_index BIGINT NOT NULL,
		from_account BIGINT NOT NULL REFERENCES accounts(account),
		address BYTEA NOT NULL,
		value BIGINT NOT NULL,
		memo BYTEA,
		CONSTRAINT sent_output UNIQUE (tx, output_index)
	)`,
	`CREATE TABLE IF NOT EXISTS compact_blocks (
		height BIGINT PRIMARY KEY,
		data BYTEA NOT NULL
	)`,
}

// EnsureSchema creates all wallet tables that do not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	librustzcash.Logger.Debug("wallet schema ensured")
	return nil
}
