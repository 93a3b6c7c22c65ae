// Package dcc classifies the DCC packets that trigger RailCom answers: the
// mobile decoder instructions of RCN-211/212/214, basic and extended
// accessory packets (RCN-213) and the DCC-A logon commands of RCN-218.
package dcc

import (
	"errors"
	"fmt"
	"strings"
)

// Addresses with a fixed meaning in the first packet byte.
const (
	DCCAAddress = 0xFE
	IdleAddress = 0xFF
)

// RCN-218 command bytes, the second byte of a DCC-A packet.
const (
	CmdGetDataStart = 0x00
	CmdGetDataCont  = 0x01
	CmdSetData      = 0x02
	CmdSetDataEnd   = 0x03
	CmdSelect       = 0xD0 // 1101_MMMM
	CmdLogonAssign  = 0xE0 // 1110_MMMM
	CmdLogonEnable  = 0xFC // 1111_11GG
)

var (
	// ErrShortPacket is returned for packets below the three byte minimum.
	ErrShortPacket = errors.New("dcc: packet too short")
	// ErrChecksum is returned when the trailing XOR byte does not match.
	ErrChecksum = errors.New("dcc: checksum mismatch")
)

// Kind names the instruction a packet carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindIdle
	KindSpeed
	KindFunction
	KindPOMRead
	KindPOMWrite
	KindPOMWriteBit
	KindAccessory
	KindExtAccessory
	KindLogonEnable
	KindSelect
	KindLogonAssign
	KindGetDataStart
	KindGetDataCont
	KindSetData
	KindSetDataEnd
)

var kindNames = map[Kind]string{
	KindUnknown:      "UNKNOWN",
	KindIdle:         "IDLE",
	KindSpeed:        "SPEED",
	KindFunction:     "FUNCTION",
	KindPOMRead:      "POM_READ",
	KindPOMWrite:     "POM_WRITE",
	KindPOMWriteBit:  "POM_WRITE_BIT",
	KindAccessory:    "ACCESSORY",
	KindExtAccessory: "EXT_ACCESSORY",
	KindLogonEnable:  "LOGON_ENABLE",
	KindSelect:       "SELECT",
	KindLogonAssign:  "LOGON_ASSIGN",
	KindGetDataStart: "GET_DATA_START",
	KindGetDataCont:  "GET_DATA_CONT",
	KindSetData:      "SET_DATA",
	KindSetDataEnd:   "SET_DATA_END",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Function is the state of one numbered function output.
type Function struct {
	Num uint8
	On  bool
}

// Packet is a classified DCC packet. Only the fields relevant to Kind are set.
type Packet struct {
	Kind Kind
	// Address is the locomotive address, or the accessory decoder address.
	Address  uint16
	Long     bool
	Forward  bool
	Step     uint8 // 0 stop, 1..28 or 1..126 depending on Steps
	Steps    uint8
	Estop    bool
	Funcs    []Function
	CV       uint16 // 1-based
	Value    uint8
	Bit      uint8
	Port     uint8 // accessory output pair 0..3
	Activate bool
	Output   uint8 // accessory output within the pair

	// DCC-A
	Group        uint8
	ZID          uint16
	Session      uint8
	Manufacturer uint16
	Product      uint32
	SubCmd       uint8
	AssignedAddr uint16
	Data         []byte
}

// Parse checks the trailing XOR checksum of raw and classifies the packet.
// Instructions it does not recognise yield KindUnknown without an error.
func Parse(raw []byte) (Packet, error) {
	if len(raw) < 3 {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(raw))
	}
	body, sum := raw[:len(raw)-1], raw[len(raw)-1]
	if x := xor(body); x != sum {
		return Packet{}, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, sum, x)
	}

	switch b0 := body[0]; {
	case b0 == IdleAddress:
		return Packet{Kind: KindIdle}, nil
	case b0 == DCCAAddress:
		return parseDCCA(body[1:]), nil
	case b0 <= 127:
		p := Packet{Address: uint16(b0)}
		parseMobile(&p, body[1:])
		return p, nil
	case b0 <= 191:
		return parseAccessory(body), nil
	case b0 <= 231:
		p := Packet{Address: uint16(b0&0x3F)<<8 | uint16(body[1]), Long: true}
		parseMobile(&p, body[2:])
		return p, nil
	}
	return Packet{}, nil
}

func xor(b []byte) byte {
	var x byte
	for _, c := range b {
		x ^= c
	}
	return x
}

// parseMobile decodes the instruction bytes following a locomotive address.
func parseMobile(p *Packet, in []byte) {
	if len(in) == 0 {
		return
	}
	instr, rest := in[0], in[1:]
	switch {
	case instr == 0x3F && len(rest) >= 1:
		p.Kind, p.Steps = KindSpeed, 126
		p.Forward = rest[0]&0x80 != 0
		switch s := rest[0] & 0x7F; s {
		case 0:
		case 1:
			p.Estop = true
		default:
			p.Step = s - 1
		}
	case instr&0xC0 == 0x40:
		p.Kind, p.Steps = KindSpeed, 28
		p.Forward = instr&0x20 != 0
		switch s := (instr&0x0F)<<1 | (instr>>4)&1; {
		case s < 2:
		case s < 4:
			p.Estop = true
		default:
			p.Step = s - 3
		}
	case instr&0xE0 == 0x80:
		p.Kind = KindFunction
		p.Funcs = append(p.Funcs, Function{Num: 0, On: instr&0x10 != 0})
		p.Funcs = append(p.Funcs, functionBits(1, instr, 4)...)
	case instr&0xF0 == 0xB0:
		p.Kind, p.Funcs = KindFunction, functionBits(5, instr, 4)
	case instr&0xF0 == 0xA0:
		p.Kind, p.Funcs = KindFunction, functionBits(9, instr, 4)
	case instr == 0xDE && len(rest) >= 1:
		p.Kind, p.Funcs = KindFunction, functionBits(13, rest[0], 8)
	case instr == 0xDF && len(rest) >= 1:
		p.Kind, p.Funcs = KindFunction, functionBits(21, rest[0], 8)
	case instr&0xF0 == 0xE0 && len(rest) >= 2:
		p.CV = uint16(instr&0x03)<<8 | uint16(rest[0]) + 1
		switch (instr >> 2) & 0x03 {
		case 0x01:
			p.Kind, p.Value = KindPOMRead, rest[1]
		case 0x03:
			p.Kind, p.Value = KindPOMWrite, rest[1]
		case 0x02:
			p.Kind = KindPOMWriteBit
			p.Bit = rest[1] & 0x07
			p.Value = (rest[1] >> 3) & 0x01
		}
	}
}

func functionBits(first uint8, b byte, n int) []Function {
	out := make([]Function, n)
	for i := range n {
		out[i] = Function{Num: first + uint8(i), On: b&(1<<i) != 0}
	}
	return out
}

// parseAccessory decodes RCN-213 basic and extended accessory packets. The
// three high address bits travel inverted in the second byte.
func parseAccessory(body []byte) Packet {
	if len(body) < 2 {
		return Packet{}
	}
	b0, b1 := body[0], body[1]
	addr := uint16((^b1>>4)&0x07)<<6 | uint16(b0&0x3F)
	if b1&0x80 != 0 {
		return Packet{
			Kind:     KindAccessory,
			Address:  addr,
			Port:     (b1 >> 1) & 0x03,
			Activate: b1&0x08 != 0,
			Output:   b1 & 0x01,
		}
	}
	if len(body) < 3 {
		return Packet{}
	}
	// Extended packets address single outputs: 11 bits with the port in A1..A0.
	return Packet{
		Kind:    KindExtAccessory,
		Address: addr<<2 | uint16(b1>>1)&0x03,
		Value:   body[2],
	}
}

// parseDCCA decodes the command and arguments following the DCC-A address.
func parseDCCA(in []byte) Packet {
	if len(in) == 0 {
		return Packet{}
	}
	cmd, args := in[0], in[1:]
	switch {
	case cmd&0xFC == CmdLogonEnable:
		if len(args) < 3 {
			return Packet{}
		}
		return Packet{
			Kind:    KindLogonEnable,
			Group:   cmd & 0x03,
			ZID:     uint16(args[0])<<8 | uint16(args[1]),
			Session: args[2],
		}
	case cmd&0xF0 == CmdSelect:
		if len(args) < 6 {
			return Packet{}
		}
		return Packet{
			Kind:         KindSelect,
			Manufacturer: uint16(cmd&0x0F)<<8 | uint16(args[0]),
			Product:      be32(args[1:5]),
			SubCmd:       args[5],
			Data:         append([]byte(nil), args[6:]...),
		}
	case cmd&0xF0 == CmdLogonAssign:
		if len(args) < 7 {
			return Packet{}
		}
		return Packet{
			Kind:         KindLogonAssign,
			Manufacturer: uint16(cmd&0x0F)<<8 | uint16(args[0]),
			Product:      be32(args[1:5]),
			AssignedAddr: uint16(args[5])<<8 | uint16(args[6]),
		}
	case cmd == CmdGetDataStart:
		return Packet{Kind: KindGetDataStart}
	case cmd == CmdGetDataCont:
		return Packet{Kind: KindGetDataCont}
	case cmd == CmdSetData:
		return Packet{Kind: KindSetData, Data: append([]byte(nil), args...)}
	case cmd == CmdSetDataEnd:
		return Packet{Kind: KindSetDataEnd, Data: append([]byte(nil), args...)}
	}
	return Packet{}
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// String renders the packet on one line for the CLI.
func (p Packet) String() string {
	var b strings.Builder
	b.WriteString(p.Kind.String())
	switch p.Kind {
	case KindSpeed:
		dir := "reverse"
		if p.Forward {
			dir = "forward"
		}
		fmt.Fprintf(&b, " addr=%d %s", p.Address, dir)
		if p.Estop {
			b.WriteString(" estop")
		} else {
			fmt.Fprintf(&b, " step=%d/%d", p.Step, p.Steps)
		}
	case KindFunction:
		fmt.Fprintf(&b, " addr=%d", p.Address)
		for _, f := range p.Funcs {
			state := "off"
			if f.On {
				state = "on"
			}
			fmt.Fprintf(&b, " F%d=%s", f.Num, state)
		}
	case KindPOMRead:
		fmt.Fprintf(&b, " addr=%d cv=%d", p.Address, p.CV)
	case KindPOMWrite:
		fmt.Fprintf(&b, " addr=%d cv=%d value=%d", p.Address, p.CV, p.Value)
	case KindPOMWriteBit:
		fmt.Fprintf(&b, " addr=%d cv=%d bit=%d value=%d", p.Address, p.CV, p.Bit, p.Value)
	case KindAccessory:
		fmt.Fprintf(&b, " addr=%d port=%d output=%d activate=%t", p.Address, p.Port, p.Output, p.Activate)
	case KindExtAccessory:
		fmt.Fprintf(&b, " addr=%d aspect=%d", p.Address, p.Value)
	case KindLogonEnable:
		fmt.Fprintf(&b, " group=%d zid=0x%04X session=%d", p.Group, p.ZID, p.Session)
	case KindSelect:
		fmt.Fprintf(&b, " manufacturer=%d product=0x%08X subcmd=0x%02X", p.Manufacturer, p.Product, p.SubCmd)
	case KindLogonAssign:
		fmt.Fprintf(&b, " manufacturer=%d product=0x%08X address=%d", p.Manufacturer, p.Product, p.AssignedAddr)
	case KindSetData, KindSetDataEnd:
		if len(p.Data) > 0 {
			fmt.Fprintf(&b, " data=0x%X", p.Data)
		}
	}
	if p.Long {
		b.WriteString(" (long address)")
	}
	return b.String()
}
