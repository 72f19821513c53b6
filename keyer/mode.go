package keyer

import (
	"fmt"

	"cwtrainer/strutil"
)

// Mode selects the keying algorithm.
type Mode int

const (
	ModeStraight Mode = iota
	ModeIambicA
	ModeIambicB
	ModeUltimatic
)

func (m Mode) String() string {
	switch m {
	case ModeStraight:
		return "straight"
	case ModeIambicA:
		return "iambic-a"
	case ModeIambicB:
		return "iambic-b"
	case ModeUltimatic:
		return "ultimatic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m names a known algorithm.
func (m Mode) Valid() bool {
	return m >= ModeStraight && m <= ModeUltimatic
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strutil.NormalizeLower(s) {
	case "straight":
		return ModeStraight, nil
	case "iambic-a", "iambic_a", "iambica":
		return ModeIambicA, nil
	case "iambic-b", "iambic_b", "iambicb":
		return ModeIambicB, nil
	case "ultimatic":
		return ModeUltimatic, nil
	default:
		return ModeStraight, fmt.Errorf("unknown keyer mode %q", s)
	}
}
