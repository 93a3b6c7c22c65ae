package railcom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Token
	}{
		{"prefixed", "0x74 0x72", []Token{{"74", 0x74}, {"72", 0x72}}},
		{"bare pairs", "2e93", []Token{{"2E", 0x2E}, {"93", 0x93}}},
		{"odd digit count", "ABC", []Token{{"AB", 0xAB}, {"C", 0x0C}}},
		{"blank lines skipped", "\n  \n74\n", []Token{{"74", 0x74}}},
		{"binary prefix stripped", "0b12", []Token{{"12", 0x12}}},
		{"lone prefix dropped", "0x", nil},
		{"prefixes inside a word", "0x740x720x6C", []Token{{"74", 0x74}, {"72", 0x72}, {"6C", 0x6C}}},
		{"binary marker mid-word", "AC0bB1", []Token{{"AC", 0xAC}, {"B1", 0xB1}}},
		{"uppercase marker is data", "0B8E", []Token{{"0B", 0x0B}, {"8E", 0x8E}}},
		{"uppercase hex marker is data", "0X74", []Token{{"0X", 0x00}, {"74", 0x74}}},
		{"partial group", "7g", []Token{{"7G", 0x07}}},
		{"garbage group skipped", "zz74", []Token{{"74", 0x74}}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseHex(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseHex(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestFrame(t *testing.T) {
	t.Run("info message with leftover", func(t *testing.T) {
		msgs, left := Frame([]uint8{19, 20, 21})
		require.Len(t, msgs, 1)
		assert.Equal(t, []uint8{19, 20}, msgs[0].Chunks)
		assert.Equal(t, []uint8{21}, left)
	})

	t.Run("incomplete message stays in buffer", func(t *testing.T) {
		// ID 13 needs four chunks.
		msgs, left := Frame([]uint8{55, 10, 10})
		assert.Empty(t, msgs)
		assert.Equal(t, []uint8{55, 10, 10}, left)
	})

	t.Run("single chunk is never framed", func(t *testing.T) {
		msgs, left := Frame([]uint8{19})
		assert.Empty(t, msgs)
		assert.Equal(t, []uint8{19}, left)
	})

	t.Run("back to back messages", func(t *testing.T) {
		msgs, left := Frame([]uint8{19, 20, 19, 20})
		assert.Len(t, msgs, 2)
		assert.Empty(t, left)
	})
}

func TestDecode_InfoScenario(t *testing.T) {
	r := Decode("0x74 0x72 0x6C")

	assert.Equal(t, []uint8{19, 20, 21}, r.Chunks())
	assert.Equal(t,
		"0x74 (0b0111_0100) -> 19\n    (0b0100_11)\n"+
			"0x72 (0b0111_0010) -> 20\n    (0b0101_00)\n"+
			"0x6C (0b0110_1100) -> 21\n    (0b0101_01)\n",
		r.ByteListing())
	assert.Equal(t, "ID: INFO/STAT1 (4)\nPayload: 0xD4", r.RawIDs())
	assert.Equal(t,
		"ID: INFO/STAT1 (4)\nStatus: 212\n(Note: Meaning is application-specific)"+
			"\n\nWarning: 1 leftover 6-bit chunk(s): 0b010101",
		r.Payloads())
}

func TestDecode_DecoderStateScenario(t *testing.T) {
	r := Decode("2E 93 93 78 E4 B4")

	require.Len(t, r.Messages, 1)
	m := r.Messages[0]
	assert.Equal(t, IDDecoderState, m.ID())
	assert.Equal(t, uint64(828082), m.Payload())
	assert.Equal(t, "ID: DECODER_STATE (13)\nPayload: 0x0C_A2_B2", r.RawIDs())
	assert.Contains(t, r.Payloads(), "State: 828082")
	assert.Equal(t, []uint8{39, 17}, r.Leftover)
	assert.Equal(t, "Warning: 2 leftover 6-bit chunk(s): 0b100111 0b010001", r.LeftoverWarning())
}

func TestDecode_InvalidByte(t *testing.T) {
	r := Decode("FF 74 72")

	require.Len(t, r.Bytes, 3)
	assert.False(t, r.Bytes[0].Valid)
	assert.Contains(t, r.ByteListing(), "0xFF (0b1111_1111) -> Error: Invalid byte\n")
	// The invalid byte contributes nothing to framing.
	require.Len(t, r.Messages, 1)
	assert.Equal(t, IDInfo, r.Messages[0].ID())
	assert.Empty(t, r.LeftoverWarning())
}

func TestDecode_AckNack(t *testing.T) {
	r := Decode("F0 74 0F 72 3C")

	require.Len(t, r.Bytes, 5)
	assert.Equal(t, WordACK, r.Bytes[0].Kind)
	assert.Equal(t, WordACK, r.Bytes[2].Kind)
	assert.Equal(t, WordNACK, r.Bytes[4].Kind)
	assert.False(t, r.Bytes[0].Valid)
	listing := r.ByteListing()
	assert.Contains(t, listing, "0xF0 (0b1111_0000) -> ACK\n")
	assert.Contains(t, listing, "0x0F (0b0000_1111) -> ACK\n")
	assert.Contains(t, listing, "0x3C (0b0011_1100) -> NACK\n")
	assert.NotContains(t, listing, "Invalid")
	// Acknowledgements are not data, framing sees only 74 72.
	assert.Equal(t, []uint8{19, 20}, r.Chunks())
	require.Len(t, r.Messages, 1)
	assert.Equal(t, IDInfo, r.Messages[0].ID())
}

func TestDecode_PrefixRules(t *testing.T) {
	r := Decode("0x740x720x6C")
	assert.Equal(t, []uint8{19, 20, 21}, r.Chunks())

	// Only lowercase markers are stripped, 0B is the byte 0x0B.
	r = Decode("0B8E")
	require.Len(t, r.Bytes, 2)
	assert.Contains(t, r.ByteListing(), "0x0B (0b0000_1011) -> Error: Invalid byte\n")
	assert.Contains(t, r.ByteListing(), "0x8E (0b1000_1110) -> 12\n")
}

func TestDecode_Empty(t *testing.T) {
	r := Decode("")
	assert.Empty(t, r.ByteListing())
	assert.Empty(t, r.RawIDs())
	assert.Empty(t, r.Payloads())
}

func TestInterpret_PerID(t *testing.T) {
	tests := []struct {
		id      ID
		payload uint64
		bits    int
		want    string
	}{
		{IDPOM, 0x01F_2A, 20, "ID: POM (0)\nCV: 31 (0x1F)\nValue: 42"},
		{IDAdrHigh, 0x05, 8, "ID: ADR_HIGH (1)\nAddress part: 5 (0b00000101)"},
		{IDExt, 0b01101100, 8, "ID: EXT/STAT4 (3)\nPort 1: 1\nPort 2: 2\nPort 3: 3\nPort 4: 0\n(Note: 00=Off, 01=On, 10=Short, 11=Overload)"},
		{IDTime, 1234, 20, "ID: TIME (5)\nTime: 1234 ms"},
		{IDError, 2, 8, "ID: ERROR (6)\nError code: 2\n(Note: 1=DCC, 2=Motor, 3=Function, etc.)"},
		{IDDyn, 100<<6 | 2, 14, "ID: DYN (7)\nValue: 100\nSubindex: 2 (Temperature)"},
		{IDDyn, 7<<6 | 40, 14, "ID: DYN (7)\nValue: 7\nSubindex: 40 (Manufacturer specific)"},
		{IDXPOM1, 2<<24 | 1025<<8 | 9, 32, "ID: XPOM_1 (9)\nSequence: 2 of 3\nCV: 1025\nValue: 9"},
		{IDCVAuto, 8<<8 | 3, 20, "ID: CV_AUTO (12)\nCV: 8\nValue: 3"},
		{IDRerail, 4, 8, "ID: RERAIL (14)\nRerail counter: 4"},
		{IDDecoderUnique, 0xDEADBEEF, 32, "ID: DECODER_UNIQUE (15)\nUnique ID part: 3735928559"},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			m, err := NewMessage(tt.id, tt.payload, tt.bits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Interpret())
		})
	}
}

func TestMessage_Empty(t *testing.T) {
	var m Message
	assert.Empty(t, m.Interpret())
	assert.Empty(t, m.RawString())
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "XPOM_0/STAT2", IDXPOM0.String())
	assert.Equal(t, "Unknown ID", ID(16).String())
	assert.Equal(t, 4, ID(16).Chunks())
	assert.Len(t, IDs(), 16)
}
