package utils

import (
	"hash"
	"hash/fnv"
)

// Fingerprint accumulates the shape of a query plan into a 64-bit key.
// Values never go in, only structure, so plans differing by argument
// values share a fingerprint.
type Fingerprint struct {
	h   hash.Hash64
	buf [8]byte
}

func NewFingerprint() *Fingerprint {
	return &Fingerprint{h: fnv.New64a()}
}

func (f *Fingerprint) String(s string) *Fingerprint {
	_, _ = f.h.Write([]byte(s))
	// separator so ("ab","c") and ("a","bc") differ
	_, _ = f.h.Write([]byte{0})
	return f
}

func (f *Fingerprint) Uint64(u uint64) *Fingerprint {
	putU64(f.buf[:], u)
	_, _ = f.h.Write(f.buf[:])
	return f
}

func (f *Fingerprint) Bool(b bool) *Fingerprint {
	if b {
		return f.Uint64(1)
	}
	return f.Uint64(0)
}

func (f *Fingerprint) Sum() uint64 {
	return f.h.Sum64()
}

func putU64(b []byte, u uint64) {
	b[0], b[1], b[2], b[3] = byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32)
	b[4], b[5], b[6], b[7] = byte(u>>24), byte(u>>16), byte(u>>8), byte(u)
}
