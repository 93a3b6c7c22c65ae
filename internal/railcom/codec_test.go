package railcom

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTable_IsFourOfEight(t *testing.T) {
	seen := make(map[byte]bool)
	for v, b := range EncodeTable {
		assert.Equal(t, 4, bits.OnesCount8(b), "code for %d must have four bits set", v)
		assert.False(t, seen[b], "code 0x%02X used twice", b)
		seen[b] = true
	}
}

func TestDecode6of8_InverseOfEncode(t *testing.T) {
	for v := uint8(0); v < 64; v++ {
		b, err := Encode6of8(v)
		require.NoError(t, err)
		got, ok := Decode6of8(b)
		require.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestDecode6of8_RejectsNonCodeBytes(t *testing.T) {
	valid := 0
	for i := 0; i < 256; i++ {
		if _, ok := Decode6of8(byte(i)); ok {
			valid++
		}
	}
	assert.Equal(t, 64, valid)

	for _, b := range []byte{0x00, 0xFF, 0x0F, 0xF0, 0x93 ^ 0x01} {
		_, ok := Decode6of8(b)
		assert.False(t, ok, "0x%02X", b)
	}
}

func TestEncode6of8_OutOfRange(t *testing.T) {
	_, err := Encode6of8(64)
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestKnownCodes(t *testing.T) {
	cases := map[byte]uint8{0x74: 19, 0x72: 20, 0x6C: 21, 0x2E: 55, 0x93: 10, 0x78: 50, 0xE4: 39, 0xB4: 17, 0xAC: 0, 0x33: 63}
	for b, want := range cases {
		got, ok := Decode6of8(b)
		require.True(t, ok, "0x%02X", b)
		assert.Equal(t, want, got, "0x%02X", b)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		b    byte
		want WordKind
	}{
		{0xF0, WordACK},
		{0x0F, WordACK},
		{0x3C, WordNACK},
		{0xAC, WordData},
		{0x33, WordData},
		{0x00, WordInvalid},
		{0xFF, WordInvalid},
		{0x92, WordInvalid},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.b), "0x%02X", tc.b)
	}

	counts := make(map[WordKind]int)
	for i := 0; i < 256; i++ {
		counts[Classify(byte(i))]++
	}
	assert.Equal(t, 64, counts[WordData])
	assert.Equal(t, 2, counts[WordACK])
	assert.Equal(t, 1, counts[WordNACK])
	assert.Equal(t, 256-67, counts[WordInvalid])
}

func TestWordKindString(t *testing.T) {
	assert.Equal(t, "ack", WordACK.String())
	assert.Equal(t, "nack", WordNACK.String())
	assert.Equal(t, "data", WordData.String())
	assert.Equal(t, "invalid", WordKind(9).String())
}
