package prompt

import "strings"

// Mode selects the instruction profile used to answer a query
type Mode int

const (
	General Mode = iota
	Lawyer
	Argument
	Research
	Simple
)

var modeNames = [...]string{
	General:  "general",
	Lawyer:   "lawyer",
	Argument: "argument",
	Research: "research",
	Simple:   "simple",
}

// Modes lists every mode in display order
func Modes() []Mode {
	return []Mode{General, Lawyer, Argument, Research, Simple}
}

func (m Mode) String() string {
	if m < General || m > Simple {
		return modeNames[General]
	}
	return modeNames[m]
}

// LookupMode returns the mode with the given name, ignoring case and
// surrounding space.
func LookupMode(name string) (Mode, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range modeNames {
		if n == name {
			return Mode(m), true
		}
	}
	return General, false
}

// ParseMode is LookupMode with unknown names mapped to General
func ParseMode(name string) Mode {
	m, _ := LookupMode(name)
	return m
}

// MarshalText implements encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText never fails; unknown names decode as General
func (m *Mode) UnmarshalText(text []byte) error {
	*m = ParseMode(string(text))
	return nil
}

// Title is a short human label for the mode
func (m Mode) Title() string {
	return profileFor(m).title
}

// Description says what the mode is good for
func (m Mode) Description() string {
	return profileFor(m).description
}
