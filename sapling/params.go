// Package sapling implements the shielded value pipeline: diversified
// payment addresses, note commitments and nullifiers, ephemeral key
// agreement, and authenticated note encryption with sender recovery.
package sapling

// Params carries deployment-specific protocol constants. Functions that
// depend on them take a Params value explicitly; nothing in this package
// reads network configuration from mutable globals.
type Params struct {
	// Name tags log output and has no consensus meaning
	Name string

	// CoinType is the BIP-44 coin type used by derivation tooling
	CoinType uint32

	// MerkleDepth is the depth of the note commitment tree
	MerkleDepth uint8

	// AnchorOffset is the number of confirmations below the chain tip at
	// which spend anchors are selected
	AnchorOffset uint32
}

// MainNetwork returns the production parameter set
func MainNetwork() Params {
	return Params{
		Name:         "main",
		CoinType:     133,
		MerkleDepth:  32,
		AnchorOffset: 10,
	}
}

// TestNetwork returns the test parameter set
func TestNetwork() Params {
	return Params{
		Name:         "test",
		CoinType:     1,
		MerkleDepth:  32,
		AnchorOffset: 10,
	}
}
