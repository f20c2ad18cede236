package sapling

import "errors"

// Error classes of the shielded pipeline. MalformedInput means a caller
// handed over structurally invalid data and the operation refused to
// start. DecryptionFailed is the routine outcome of trial decryption
// with a key the output was not addressed to; every failure mode maps to
// it so that callers cannot distinguish why an output did not decrypt.
var (
	ErrMalformedInput   = errors.New("sapling: malformed input")
	ErrDecryptionFailed = errors.New("sapling: decryption failed")
)
