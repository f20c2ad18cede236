package jubjub

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/twistededwards"
	"golang.org/x/crypto/blake2b"
)

// HashToPoint hashes a domain tag and message to a prime-order point in a
// single attempt. Roughly half of all inputs fail to decompress onto the
// curve; those return ErrInvalidPoint and the caller decides whether to
// retry with a different message.
func HashToPoint(tag string, msg []byte) (*twistededwards.PointAffine, error) {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(tag))
	h.Write(msg)
	digest := h.Sum(nil)

	var p twistededwards.PointAffine
	if _, err := p.SetBytes(digest[:PointSize]); err != nil {
		return nil, ErrInvalidPoint
	}
	MulByCofactor(&p, &p)
	if IsIdentity(&p) {
		return nil, ErrInvalidPoint
	}
	return &p, nil
}

// FindGroupHash derives a generator from a domain tag and message by
// appending an index byte and retrying HashToPoint until a candidate
// lands on the curve. The search depends only on public inputs, so its
// variable timing reveals nothing.
func FindGroupHash(tag string, msg []byte) (*twistededwards.PointAffine, error) {
	buf := make([]byte, len(msg)+1)
	copy(buf, msg)
	for i := 0; i < 256; i++ {
		buf[len(msg)] = byte(i)
		p, err := HashToPoint(tag, buf)
		if err != nil {
			continue
		}
		return p, nil
	}
	return nil, ErrGroupHash
}
