package railcom

import (
	"fmt"
	"strings"
)

const messageSeparator = "\n\n---\n\n"

// DecodedByte is one input byte and its 6-bit value, if it is a data code word.
type DecodedByte struct {
	Token
	Kind  WordKind
	Chunk uint8
	Valid bool
}

// Report is the complete decoding of a piece of user input.
type Report struct {
	Bytes    []DecodedByte
	Messages []Message
	Leftover []uint8
}

// Decode parses hex text, decodes every byte through the 4-of-8 table, and
// frames the valid chunks into messages. ACK, NACK and invalid bytes are
// listed but do not contribute chunks.
func Decode(text string) Report {
	var r Report
	var chunks []uint8
	for _, tok := range ParseHex(text) {
		db := DecodedByte{Token: tok, Kind: Classify(tok.Value)}
		if db.Kind == WordData {
			db.Chunk, _ = Decode6of8(tok.Value)
			db.Valid = true
			chunks = append(chunks, db.Chunk)
		}
		r.Bytes = append(r.Bytes, db)
	}
	r.Messages, r.Leftover = Frame(chunks)
	return r
}

// Chunks returns the 6-bit values of all valid bytes, in input order.
func (r Report) Chunks() []uint8 {
	var out []uint8
	for _, b := range r.Bytes {
		if b.Valid {
			out = append(out, b.Chunk)
		}
	}
	return out
}

// ByteListing renders one entry per input byte with its binary form and decoded value.
func (r Report) ByteListing() string {
	var b strings.Builder
	for _, db := range r.Bytes {
		fmt.Fprintf(&b, "0x%s (0b%s) -> ", db.Hex, groupBinary(fmt.Sprintf("%08b", db.Value)))
		switch db.Kind {
		case WordACK:
			b.WriteString("ACK\n")
			continue
		case WordNACK:
			b.WriteString("NACK\n")
			continue
		case WordInvalid:
			b.WriteString("Error: Invalid byte\n")
			continue
		}
		fmt.Fprintf(&b, "%02d\n", db.Chunk)
		fmt.Fprintf(&b, "    (0b%s)\n", groupBinary(fmt.Sprintf("%06b", db.Chunk)))
	}
	return b.String()
}

// RawIDs renders the ID and raw payload of every message.
func (r Report) RawIDs() string {
	parts := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		parts[i] = m.RawString()
	}
	return strings.Join(parts, messageSeparator)
}

// Payloads renders the interpretation of every message, followed by a warning
// about chunks that could not be framed.
func (r Report) Payloads() string {
	parts := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		parts[i] = m.Interpret()
	}
	out := strings.Join(parts, messageSeparator)
	if len(r.Leftover) > 0 {
		out += "\n\n" + r.LeftoverWarning()
	}
	return out
}

// LeftoverWarning describes the chunks left after framing, or "" if there are none.
func (r Report) LeftoverWarning() string {
	if len(r.Leftover) == 0 {
		return ""
	}
	bits := make([]string, len(r.Leftover))
	for i, c := range r.Leftover {
		bits[i] = fmt.Sprintf("0b%06b", c)
	}
	return fmt.Sprintf("Warning: %d leftover 6-bit chunk(s): %s", len(r.Leftover), strings.Join(bits, " "))
}
