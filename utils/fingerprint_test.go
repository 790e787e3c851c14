package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintSeparatesFields(t *testing.T) {
	ab := NewFingerprint().String("ab").String("c").Sum()
	abc := NewFingerprint().String("a").String("bc").Sum()
	assert.NotEqual(t, ab, abc)

	assert.Equal(t,
		NewFingerprint().String("t").Uint64(7).Bool(true).Sum(),
		NewFingerprint().String("t").Uint64(7).Bool(true).Sum(),
	)
	assert.NotEqual(t,
		NewFingerprint().Bool(true).Sum(),
		NewFingerprint().Bool(false).Sum(),
	)
	assert.NotEqual(t,
		NewFingerprint().Uint64(1).Uint64(2).Sum(),
		NewFingerprint().Uint64(2).Uint64(1).Sum(),
	)
}

func TestPutU64(t *testing.T) {
	b := make([]byte, 8)
	putU64(b, 0x0102)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, b)
}
