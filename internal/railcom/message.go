package railcom

import "fmt"

// ID identifies a RailCom message type. It occupies the top 4 bits of a message.
type ID uint8

const (
	IDPOM ID = iota
	IDAdrHigh
	IDAdrLow
	IDExt
	IDInfo
	IDTime
	IDError
	IDDyn
	IDXPOM0
	IDXPOM1
	IDXPOM2
	IDXPOM3
	IDCVAuto
	IDDecoderState
	IDRerail
	IDDecoderUnique
)

var idNames = [16]string{
	"POM", "ADR_HIGH", "ADR_LOW", "EXT/STAT4",
	"INFO/STAT1", "TIME", "ERROR", "DYN",
	"XPOM_0/STAT2", "XPOM_1", "XPOM_2", "XPOM_3",
	"CV_AUTO", "DECODER_STATE", "RERAIL", "DECODER_UNIQUE",
}

// messageChunks is the number of 6-bit chunks each message type spans on the wire.
var messageChunks = [16]int{
	IDPOM:           4,
	IDAdrHigh:       2,
	IDAdrLow:        2,
	IDExt:           2,
	IDInfo:          2,
	IDTime:          4,
	IDError:         2,
	IDDyn:           3,
	IDXPOM0:         6,
	IDXPOM1:         6,
	IDXPOM2:         6,
	IDXPOM3:         6,
	IDCVAuto:        4,
	IDDecoderState:  4,
	IDRerail:        2,
	IDDecoderUnique: 6,
}

func (id ID) String() string {
	if int(id) < len(idNames) {
		return idNames[id]
	}
	return "Unknown ID"
}

// Chunks returns how many 6-bit chunks a message with this ID spans.
func (id ID) Chunks() int {
	if int(id) < len(messageChunks) {
		return messageChunks[id]
	}
	return 4
}

// IDs returns all message IDs in ascending order.
func IDs() []ID {
	ids := make([]ID, len(idNames))
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// Message is one framed RailCom datagram.
type Message struct {
	Chunks []uint8
}

// Bits is the total number of bits carried by the message chunks.
func (m Message) Bits() int { return len(m.Chunks) * 6 }

// combined packs the chunks MSB first. Messages never exceed 6 chunks, so 36 bits fit.
func (m Message) combined() uint64 {
	var v uint64
	for _, c := range m.Chunks {
		v = v<<6 | uint64(c&0x3F)
	}
	return v
}

// ID returns the 4-bit message ID.
func (m Message) ID() ID {
	if m.Bits() < 4 {
		return 0
	}
	return ID(m.combined() >> (m.Bits() - 4) & 0xF)
}

// PayloadBits is the number of bits following the ID.
func (m Message) PayloadBits() int {
	if m.Bits() < 4 {
		return 0
	}
	return m.Bits() - 4
}

// Payload returns the bits following the ID.
func (m Message) Payload() uint64 {
	bits := m.PayloadBits()
	return m.combined() & (1<<bits - 1)
}

// Frame splits a stream of 6-bit chunks into messages. The first chunk of each
// message carries the ID in its top four bits, which fixes the message length.
// Framing stops when fewer than two chunks remain or the next message would be
// incomplete; those chunks are returned as leftover.
func Frame(chunks []uint8) (messages []Message, leftover []uint8) {
	buf := chunks
	for len(buf) >= 2 {
		n := ID(buf[0] >> 2).Chunks()
		if len(buf) < n {
			break
		}
		msg := make([]uint8, n)
		copy(msg, buf[:n])
		messages = append(messages, Message{Chunks: msg})
		buf = buf[n:]
	}
	if len(buf) > 0 {
		leftover = append([]uint8(nil), buf...)
	}
	return messages, leftover
}

// NewMessage builds a message from an ID and a payload of the given width.
func NewMessage(id ID, payload uint64, payloadBits int) (Message, error) {
	if id > 15 {
		return Message{}, fmt.Errorf("railcom: message id %d out of range", id)
	}
	if payloadBits < 0 || payloadBits > 60 {
		return Message{}, fmt.Errorf("railcom: payload width %d out of range", payloadBits)
	}
	if payload >= 1<<payloadBits {
		return Message{}, fmt.Errorf("railcom: payload 0x%X does not fit in %d bits", payload, payloadBits)
	}
	combined := uint64(id)<<payloadBits | payload
	return Message{Chunks: splitChunks(combined, 4+payloadBits)}, nil
}

// splitChunks cuts the low totalBits of v into 6-bit groups, most significant first.
// A final group shorter than 6 bits keeps its own value, it is not shifted.
func splitChunks(v uint64, totalBits int) []uint8 {
	var chunks []uint8
	for start := 0; start < totalBits; start += 6 {
		width := 6
		if totalBits-start < 6 {
			width = totalBits - start
		}
		shift := totalBits - start - width
		chunks = append(chunks, uint8(v>>shift&(1<<width-1)))
	}
	return chunks
}

// Bytes returns the 4-of-8 encoded form of the message.
func (m Message) Bytes() ([]byte, error) {
	out := make([]byte, 0, len(m.Chunks))
	for _, c := range m.Chunks {
		b, err := Encode6of8(c)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
