// Package carto projects celestial bodies' angular lines onto the globe.
//
// For each body it computes the four angles (AC rising, DC setting, MC upper
// culmination, IC lower culmination) as geographic polylines, and it finds
// parans: latitudes where two bodies' lines cross.
package carto

import (
	"fmt"
	"strings"
)

// LineKind identifies one of the four angular lines.
type LineKind int

const (
	Rise             LineKind = iota // AC: body on the eastern horizon
	Set                              // DC: body on the western horizon
	UpperCulmination                 // MC: body on the upper meridian
	LowerCulmination                 // IC: body on the lower meridian
)

// AllKinds lists every line kind in output order.
var AllKinds = []LineKind{Rise, Set, UpperCulmination, LowerCulmination}

// String returns the short code (AC, DC, MC, IC).
func (k LineKind) String() string {
	switch k {
	case Rise:
		return "AC"
	case Set:
		return "DC"
	case UpperCulmination:
		return "MC"
	case LowerCulmination:
		return "IC"
	default:
		return "?"
	}
}

// Name returns the long descriptive name.
func (k LineKind) Name() string {
	switch k {
	case Rise:
		return "rise"
	case Set:
		return "set"
	case UpperCulmination:
		return "upper-culmination"
	case LowerCulmination:
		return "lower-culmination"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the four defined kinds.
func (k LineKind) Valid() bool {
	return k >= Rise && k <= LowerCulmination
}

// IsHorizon reports whether the line is a horizon (AC/DC) line.
func (k LineKind) IsHorizon() bool {
	return k == Rise || k == Set
}

// IsCulmination reports whether the line is a meridian (MC/IC) line.
func (k LineKind) IsCulmination() bool {
	return k == UpperCulmination || k == LowerCulmination
}

// ParseLineKind parses a short code or long name, case-insensitively.
func ParseLineKind(s string) (LineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ac", "asc", "rise", "rising":
		return Rise, nil
	case "dc", "dsc", "set", "setting":
		return Set, nil
	case "mc", "upper-culmination", "culmination":
		return UpperCulmination, nil
	case "ic", "lower-culmination", "anti-culmination":
		return LowerCulmination, nil
	default:
		return 0, fmt.Errorf("unknown line kind %q", s)
	}
}

// ParseLineKinds parses a list of kinds, rejecting duplicates.
func ParseLineKinds(values []string) ([]LineKind, error) {
	kinds := make([]LineKind, 0, len(values))
	seen := make(map[LineKind]bool, len(values))
	for _, v := range values {
		k, err := ParseLineKind(v)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			return nil, fmt.Errorf("line kind %s listed twice", k)
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k LineKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid line kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *LineKind) UnmarshalText(text []byte) error {
	parsed, err := ParseLineKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindPair selects which line of body A is tested against which line of
// body B when searching for parans. The pipeline searches each pair in both
// orientations, so AC/MC and MC/AC select the same crossings.
type KindPair struct {
	A LineKind
	B LineKind
}

// String returns e.g. "AC/MC".
func (p KindPair) String() string {
	return p.A.String() + "/" + p.B.String()
}

// DefaultParanKindPairs returns every pair that can cross: all combinations
// except culmination against culmination, whose lines are parallel.
func DefaultParanKindPairs() []KindPair {
	var pairs []KindPair
	for _, a := range AllKinds {
		for _, b := range AllKinds {
			if a.IsCulmination() && b.IsCulmination() {
				continue
			}
			pairs = append(pairs, KindPair{A: a, B: b})
		}
	}
	return pairs
}
