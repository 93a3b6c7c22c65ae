package verify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LocatorKind selects how an element is found.
type LocatorKind int

const (
	ByCSS LocatorKind = iota
	ByElementID
	ByTestID
	ByRole
)

// Locator identifies one element on the page.
//
// The text form is "#id", "css:<selector>", "testid:<value>" or
// "role:<role>:<accessible name>". Text with no prefix is a CSS selector.
type Locator struct {
	Kind  LocatorKind
	Value string
	// Name is the accessible name for ByRole; Value holds the role.
	Name string
}

var errEmptyLocator = errors.New("empty locator")

// ParseLocator reads the text form of a locator.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Locator{}, errEmptyLocator
	case strings.HasPrefix(s, "#") && !strings.ContainsAny(s[1:], " .#[:>+~"):
		if len(s) == 1 {
			return Locator{}, fmt.Errorf("locator %q: missing id", s)
		}
		return Locator{Kind: ByElementID, Value: s[1:]}, nil
	case strings.HasPrefix(s, "css:"):
		sel := strings.TrimSpace(strings.TrimPrefix(s, "css:"))
		if sel == "" {
			return Locator{}, fmt.Errorf("locator %q: missing selector", s)
		}
		return Locator{Kind: ByCSS, Value: sel}, nil
	case strings.HasPrefix(s, "testid:"):
		v := strings.TrimPrefix(s, "testid:")
		if v == "" {
			return Locator{}, fmt.Errorf("locator %q: missing test id", s)
		}
		return Locator{Kind: ByTestID, Value: v}, nil
	case strings.HasPrefix(s, "role:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "role:"), ":", 2)
		if parts[0] == "" {
			return Locator{}, fmt.Errorf("locator %q: missing role", s)
		}
		l := Locator{Kind: ByRole, Value: parts[0]}
		if len(parts) == 2 {
			l.Name = parts[1]
		}
		return l, nil
	default:
		return Locator{Kind: ByCSS, Value: s}, nil
	}
}

// MustParseLocator is ParseLocator for literals known to be valid.
func MustParseLocator(s string) Locator {
	l, err := ParseLocator(s)
	if err != nil {
		panic(err)
	}
	return l
}

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool { return l.Value == "" }

func (l Locator) String() string {
	switch l.Kind {
	case ByElementID:
		return "#" + l.Value
	case ByTestID:
		return "testid:" + l.Value
	case ByRole:
		return "role:" + l.Value + ":" + l.Name
	default:
		return "css:" + l.Value
	}
}

// selector returns the CSS selector for every kind except ByRole.
func (l Locator) selector() string {
	switch l.Kind {
	case ByElementID:
		return "#" + cssIdent(l.Value)
	case ByTestID:
		return "[data-testid=" + strconv.Quote(l.Value) + "]"
	default:
		return l.Value
	}
}

// cssIdent escapes characters that cannot appear bare in a CSS identifier.
func cssIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r >= 0x80:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, "\\%x ", r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnmarshalYAML reads a locator from its text form.
func (l *Locator) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseLocator(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*l = parsed
	return nil
}

// MarshalYAML writes the text form.
func (l Locator) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}
