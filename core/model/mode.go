package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode identifies the operating mode of the canal control structure. It
// selects which regulated-discharge formula applies in the water balance.
type Mode int

const (
	ModeGen Mode = iota
	ModeSpill
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSpill:
		return "SPILL"
	default:
		return "GEN"
	}
}

// ParseMode normalises the loosely typed mode values emitted by the PI
// historian (0/1, "0"/"1", "GEN"/"SPILL") into a Mode. Unknown values
// resolve to ModeGen.
func ParseMode(raw string) Mode {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if v, err := strconv.ParseFloat(t, 64); err == nil {
		if v >= 0.5 {
			return ModeSpill
		}
		return ModeGen
	}
	if t == "SPILL" {
		return ModeSpill
	}
	return ModeGen
}

// MarshalJSON encodes the mode as its string form.
func (m Mode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both the string and the raw numeric historian forms.
func (m *Mode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return fmt.Errorf("empty mode value")
	}
	*m = ParseMode(s)
	return nil
}
