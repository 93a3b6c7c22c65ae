package railcom

import (
	"fmt"
	"strings"
)

// dynSubindexNames labels the well-known DYN variables.
var dynSubindexNames = map[uint64]string{
	0: "Speed",
	1: "Quality of Service",
	2: "Temperature",
	3: "Track Voltage",
	4: "Distance Traveled",
	5: "Fuel Level",
	6: "Water Level",
}

func header(m Message) string {
	id := m.ID()
	return fmt.Sprintf("ID: %s (%d)", id, uint8(id))
}

// RawString renders the message ID and its payload as underscore separated hex bytes.
func (m Message) RawString() string {
	if len(m.Chunks) == 0 {
		return ""
	}
	if m.Bits() < 4 {
		return "Error: Not enough bits for an ID."
	}
	payloadBytes := (m.PayloadBits() + 7) / 8
	hex := fmt.Sprintf("%0*X", payloadBytes*2, m.Payload())
	return fmt.Sprintf("%s\nPayload: 0x%s", header(m), groupHex(hex))
}

// Interpret renders the message fields according to its ID.
func (m Message) Interpret() string {
	if len(m.Chunks) == 0 {
		return ""
	}
	if m.Bits() < 4 {
		return "Error: Not enough bits for an ID."
	}

	p := m.Payload()
	var body string
	switch m.ID() {
	case IDPOM:
		cv := p >> 8 & 0xFFF
		body = fmt.Sprintf("CV: %d (0x%X)\nValue: %d", cv, cv, p&0xFF)
	case IDAdrHigh, IDAdrLow:
		body = fmt.Sprintf("Address part: %d (0b%08b)", p, p)
	case IDExt:
		body = fmt.Sprintf("Port 1: %d\nPort 2: %d\nPort 3: %d\nPort 4: %d\n(Note: 00=Off, 01=On, 10=Short, 11=Overload)",
			p>>6&0b11, p>>4&0b11, p>>2&0b11, p&0b11)
	case IDInfo:
		body = fmt.Sprintf("Status: %d\n(Note: Meaning is application-specific)", p)
	case IDTime:
		body = fmt.Sprintf("Time: %d ms", p)
	case IDError:
		body = fmt.Sprintf("Error code: %d\n(Note: 1=DCC, 2=Motor, 3=Function, etc.)", p)
	case IDDyn:
		sub := p & 0x3F
		name, ok := dynSubindexNames[sub]
		if !ok {
			name = "Manufacturer specific"
		}
		body = fmt.Sprintf("Value: %d\nSubindex: %d (%s)", p>>6&0xFF, sub, name)
	case IDXPOM0, IDXPOM1, IDXPOM2, IDXPOM3:
		body = fmt.Sprintf("Sequence: %d of 3\nCV: %d\nValue: %d", p>>24&0b11, p>>8&0xFFFF, p&0xFF)
	case IDCVAuto:
		body = fmt.Sprintf("CV: %d\nValue: %d", p>>8&0xFFF, p&0xFF)
	case IDDecoderState:
		body = fmt.Sprintf("State: %d\n(Note: Meaning is application-specific, e.g., motor status, function state)", p)
	case IDRerail:
		body = fmt.Sprintf("Rerail counter: %d", p)
	case IDDecoderUnique:
		body = fmt.Sprintf("Unique ID part: %d", p)
	default:
		body = fmt.Sprintf("Payload: %d", p)
	}
	return header(m) + "\n" + body
}

// groupHex separates a hex string into underscore joined pairs: "0CA2B2" -> "0C_A2_B2".
func groupHex(s string) string {
	var parts []string
	for i := 0; i < len(s); i += 2 {
		end := i + 2
		if end > len(s) {
			end = len(s)
		}
		parts = append(parts, s[i:end])
	}
	return strings.Join(parts, "_")
}

// groupBinary separates a bit string into underscore joined nibbles from the left.
func groupBinary(s string) string {
	var parts []string
	for i := 0; i < len(s); i += 4 {
		end := i + 4
		if end > len(s) {
			end = len(s)
		}
		parts = append(parts, s[i:end])
	}
	return strings.Join(parts, "_")
}
