// Package librustzcash implements the Sapling shielded pool primitives:
// spending and viewing keys, diversified payment addresses, note
// commitments and nullifiers, authenticated note encryption, and the
// incremental note commitment tree. On top of those it provides
// wallet-side chain scanning over compact blocks and a PostgreSQL
// wallet store.
//
// The root package carries only shared wiring. The functionality lives
// in the subpackages sapling, merkle, scanner and walletdb.
package librustzcash
