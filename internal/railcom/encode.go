package railcom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldKind controls how a field value is entered and validated.
type FieldKind int

const (
	KindNumber FieldKind = iota
	KindSelect
	// KindHidden fields are never entered; they always carry Fixed.
	KindHidden
	KindSlider
	// KindTime carries minutes since midnight.
	KindTime
)

// Option is one allowed value of a select field.
type Option struct {
	Value uint64
	Text  string
}

// Condition makes a field active only when the Source field holds Value.
type Condition struct {
	Source uint64
}

// Field describes one packed payload field.
type Field struct {
	Name      string
	Bits      int
	Kind      FieldKind
	Options   []Option
	Fixed     uint64
	Condition *Condition
}

// Max is the largest value the field can hold.
func (f Field) Max() uint64 { return 1<<f.Bits - 1 }

const sourceField = "Source"

var (
	// ErrUnknownField is returned when a value is supplied for a field the layout does not have.
	ErrUnknownField = errors.New("railcom: unknown field")
	// ErrFieldRange is returned when a value does not fit its field.
	ErrFieldRange = errors.New("railcom: field value out of range")
)

func xpomLayout() []Field {
	return []Field{{Name: "Sequence", Bits: 2}, {Name: "CV", Bits: 16}, {Name: "Value", Bits: 8}}
}

var detectorLocationTypes = []Option{
	{0, "nur Ortsinformation (0)"}, {1, "nur Ortsinformation (1)"},
	{2, "nur Ortsinformation (2)"}, {3, "nur Ortsinformation (3)"},
	{4, "nur Ortsinformation (4)"}, {5, "nur Ortsinformation (5)"},
	{6, "nur Ortsinformation (6)"}, {7, "nur Ortsinformation (7)"},
	{10, "Dieseltankstelle (10)"}, {11, "Kohlebansen (11)"},
	{12, "Wasserkran (12)"}, {13, "Besandungsanlage (13)"},
	{14, "Ladestation (Akku) (14)"}, {15, "Allgemeine Füllstation (15)"},
}

// layouts lists the payload fields of every message type, most significant first.
var layouts = map[ID][]Field{
	IDPOM:     {{Name: "CV", Bits: 12}, {Name: "Value", Bits: 8}},
	IDAdrHigh: {{Name: "Address part", Bits: 8}},
	IDAdrLow:  {{Name: "Address part", Bits: 8}},
	IDExt: {
		{Name: sourceField, Bits: 2, Kind: KindSelect, Options: []Option{{0b00, "Decoder"}, {0b01, "Detector"}}},
		{Name: "Decoder Padding", Bits: 1, Kind: KindHidden, Fixed: 0, Condition: &Condition{Source: 0b00}},
		{Name: "Decoder Location Address", Bits: 11, Condition: &Condition{Source: 0b00}},
		{Name: "Detector Location Type", Bits: 4, Kind: KindSelect, Options: detectorLocationTypes, Condition: &Condition{Source: 0b01}},
		{Name: "Detector Location Address", Bits: 8, Condition: &Condition{Source: 0b01}},
	},
	IDInfo:          {{Name: "Status", Bits: 8}},
	IDTime:          {{Name: "Time", Bits: 16, Kind: KindTime}},
	IDError:         {{Name: "Error code", Bits: 8}},
	IDDyn:           {{Name: "Value", Bits: 8, Kind: KindSlider}, {Name: "Subindex", Bits: 6}},
	IDXPOM0:         xpomLayout(),
	IDXPOM1:         xpomLayout(),
	IDXPOM2:         xpomLayout(),
	IDXPOM3:         xpomLayout(),
	IDCVAuto:        {{Name: "CV", Bits: 12}, {Name: "Value", Bits: 8}},
	IDDecoderState:  {{Name: "State", Bits: 16}},
	IDRerail:        {{Name: "Rerail counter", Bits: 8}},
	IDDecoderUnique: {{Name: "Unique ID part", Bits: 32}},
}

// Layout returns every field of a message type, including conditional ones.
func Layout(id ID) []Field {
	return append([]Field(nil), layouts[id]...)
}

// ActiveFields returns the fields that take part in encoding for the given
// Source value. Layouts without a Source field ignore it.
func ActiveFields(id ID, source uint64) []Field {
	var out []Field
	for _, f := range layouts[id] {
		if f.Condition != nil && f.Condition.Source != source {
			continue
		}
		out = append(out, f)
	}
	return out
}

// PayloadWidth is the sum of the active field widths.
func PayloadWidth(id ID, source uint64) int {
	total := 0
	for _, f := range ActiveFields(id, source) {
		total += f.Bits
	}
	return total
}

// EncodeFields packs named field values into a message. Missing fields are
// zero; a missing Source selects the first option.
func EncodeFields(id ID, values map[string]uint64) (Message, error) {
	if id > 15 {
		return Message{}, fmt.Errorf("railcom: message id %d out of range", id)
	}
	source := values[sourceField]

	known := make(map[string]bool)
	for _, f := range layouts[id] {
		known[f.Name] = true
	}
	for name := range values {
		if !known[name] {
			return Message{}, fmt.Errorf("%w: %q for %s", ErrUnknownField, name, id)
		}
	}

	var payload uint64
	width := 0
	fields := ActiveFields(id, source)
	// Pack from the least significant (last) field upwards.
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		v := values[f.Name]
		if f.Kind == KindHidden {
			v = f.Fixed
		}
		if err := f.check(v); err != nil {
			return Message{}, err
		}
		payload |= v << width
		width += f.Bits
	}
	return NewMessage(id, payload, width)
}

// EncodeRaw packs a raw hex payload sized to the message's default layout.
func EncodeRaw(id ID, payloadHex string) (Message, error) {
	payloadHex = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(payloadHex), "0x"), "0X")
	payload, err := strconv.ParseUint(payloadHex, 16, 64)
	if err != nil {
		return Message{}, fmt.Errorf("railcom: invalid payload %q: %w", payloadHex, err)
	}
	return NewMessage(id, payload, PayloadWidth(id, 0))
}

// FormatBytes renders encoded bytes the way the encoder shows them: 0xAABBCC.
func FormatBytes(b []byte) string {
	return fmt.Sprintf("0x%X", b)
}

func (f Field) check(v uint64) error {
	if v > f.Max() {
		return fmt.Errorf("%w: %s=%d exceeds %d bits", ErrFieldRange, f.Name, v, f.Bits)
	}
	if f.Kind == KindSelect {
		for _, o := range f.Options {
			if o.Value == v {
				return nil
			}
		}
		return fmt.Errorf("%w: %s=%d is not one of the allowed options", ErrFieldRange, f.Name, v)
	}
	return nil
}

// ParseFieldValue reads a user supplied value for f. Time fields accept
// HH:MM as well as a plain minute count; everything else is a decimal, 0x hex
// or 0b binary integer.
func ParseFieldValue(f Field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if f.Kind == KindTime && strings.Contains(s, ":") {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return 0, fmt.Errorf("railcom: invalid time %q for %s: %w", s, f.Name, err)
		}
		return MinutesOfDay(t), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("railcom: invalid value %q for %s: %w", s, f.Name, err)
	}
	return v, nil
}

// MinutesOfDay is the value a Time field carries for t.
func MinutesOfDay(t time.Time) uint64 {
	return uint64(t.Hour()*60 + t.Minute())
}

// FieldByName finds a field of the layout for id.
func FieldByName(id ID, name string) (Field, bool) {
	for _, f := range layouts[id] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ParseFields resolves textual field values against the layout for id.
func ParseFields(id ID, raw map[string]string) (map[string]uint64, error) {
	values := make(map[string]uint64, len(raw))
	for name, s := range raw {
		f, ok := FieldByName(id, name)
		if !ok {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownField, name, id)
		}
		v, err := ParseFieldValue(f, s)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}
