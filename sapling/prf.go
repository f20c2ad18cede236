package sapling

import (
	"golang.org/x/crypto/blake2b"
)

// BLAKE2b personalization tags. The x/crypto implementation exposes no
// personalization parameter, so each tag prefixes the hashed input
// instead; the tags themselves are the protocol's published strings.
const (
	prfExpandTag   = "Zcash_ExpandSeed"
	kdfTag         = "Zcash_SaplingKDF"
	ockTag         = "Zcash_Derive_ock"
	ivkTag         = "Zcashivk"
	diversifyTag   = "Zcash_gd"
	valueCommitTag = "Zcash_cv"
	spendAuthTag   = "Zcash_G_"
	proofGenTag    = "Zcash_H_"
)

// Domain bytes for prfExpand
const (
	prfAsk         = 0x00
	prfNsk         = 0x01
	prfOvk         = 0x02
	prfDiversifier = 0x03
	prfRcm         = 0x04
	prfEsk         = 0x05
)

// prfExpand computes the 64-byte expansion PRF of key under domain t
func prfExpand(key []byte, t ...byte) [64]byte {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(prfExpandTag))
	h.Write(key)
	h.Write(t)

	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// kdf derives the symmetric key for one shielded output from the shared
// secret and the encoded ephemeral key
func kdf(sharedSecret, ephemeralKey [32]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(kdfTag))
	h.Write(sharedSecret[:])
	h.Write(ephemeralKey[:])

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// deriveOck derives the outgoing cipher key, binding the outgoing viewing
// key to this specific output
func deriveOck(ovk OutgoingViewingKey, cv, cmu, ephemeralKey [32]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(ockTag))
	h.Write(ovk[:])
	h.Write(cv[:])
	h.Write(cmu[:])
	h.Write(ephemeralKey[:])

	var ock [32]byte
	copy(ock[:], h.Sum(nil))
	return ock
}
