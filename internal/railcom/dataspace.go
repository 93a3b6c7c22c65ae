package railcom

import (
	"errors"
	"fmt"
)

// MaxDataSpaceLen is the largest payload a data space header can announce.
const MaxDataSpaceLen = 0x1F

// ErrDataSpaceCRC is returned when a received data space fails its checksum.
var ErrDataSpaceCRC = errors.New("railcom: data space crc mismatch")

// CRC8 is the Dallas/Maxim CRC-8 (x^8+x^5+x^4+1, reflected) used by RCN-218.
// init seeds the register; data spaces pass their number.
func CRC8(data []byte, init byte) byte {
	crc := init
	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0x8C
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// FrameDataSpace builds the byte sequence of data space num: a length header,
// the data and a CRC-8 seeded with num over header and data.
func FrameDataSpace(num uint8, data []byte) ([]byte, error) {
	if len(data) > MaxDataSpaceLen {
		return nil, fmt.Errorf("railcom: data space holds at most %d bytes, got %d", MaxDataSpaceLen, len(data))
	}
	out := make([]byte, 0, len(data)+2)
	out = append(out, byte(len(data)))
	out = append(out, data...)
	return append(out, CRC8(out, num)), nil
}

// EncodeDataSpace frames data space num and returns it as 4-of-8 code bytes.
// The framed bytes are cut into 6-bit chunks MSB first; the last chunk is
// padded with zero bits.
func EncodeDataSpace(num uint8, data []byte) ([]byte, error) {
	framed, err := FrameDataSpace(num, data)
	if err != nil {
		return nil, err
	}
	chunks := packChunks(framed)
	return Message{Chunks: chunks}.Bytes()
}

// DecodeDataSpace reassembles bytes from 6-bit chunks, checks the header
// length and the CRC, and returns the data.
func DecodeDataSpace(num uint8, chunks []uint8) ([]byte, error) {
	framed := unpackChunks(chunks)
	if len(framed) < 2 {
		return nil, fmt.Errorf("railcom: data space needs at least 2 bytes, got %d", len(framed))
	}
	n := int(framed[0] & MaxDataSpaceLen)
	if len(framed) < n+2 {
		return nil, fmt.Errorf("railcom: data space announces %d bytes, only %d present", n, len(framed)-2)
	}
	if got, want := framed[n+1], CRC8(framed[:n+1], num); got != want {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrDataSpaceCRC, got, want)
	}
	return append([]byte(nil), framed[1:n+1]...), nil
}

func packChunks(data []byte) []uint8 {
	var (
		chunks []uint8
		acc    uint
		nbits  uint
	)
	for _, b := range data {
		acc = acc<<8 | uint(b)
		nbits += 8
		for nbits >= 6 {
			nbits -= 6
			chunks = append(chunks, uint8(acc>>nbits&0x3F))
		}
		acc &= 1<<nbits - 1
	}
	if nbits > 0 {
		chunks = append(chunks, uint8(acc<<(6-nbits)&0x3F))
	}
	return chunks
}

// unpackChunks drops trailing bits that do not make up a whole byte.
func unpackChunks(chunks []uint8) []byte {
	var (
		out   []byte
		acc   uint
		nbits uint
	)
	for _, c := range chunks {
		acc = acc<<6 | uint(c&0x3F)
		nbits += 6
		if nbits >= 8 {
			nbits -= 8
			out = append(out, byte(acc>>nbits))
		}
		acc &= 1<<nbits - 1
	}
	return out
}
