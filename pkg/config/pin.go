package config

import (
	"strconv"
	"strings"
)

// Pin represents a parsed pin specification.
type Pin struct {
	Name   string // GPIO name as known to the pin registry (e.g., "GPIO17")
	Invert bool   // Inverted logic (! prefix)
	Pullup int    // Pullup: 1 = up (^), -1 = down (~), 0 = none
}

// String formats the pin back into specification syntax.
func (p Pin) String() string {
	var sb strings.Builder
	switch p.Pullup {
	case 1:
		sb.WriteByte('^')
	case -1:
		sb.WriteByte('~')
	}
	if p.Invert {
		sb.WriteByte('!')
	}
	sb.WriteString(p.Name)
	return sb.String()
}

// PinOptions specifies parsing options for pin specifications.
type PinOptions struct {
	CanInvert bool // Allow ! prefix for inverted logic
	CanPullup bool // Allow ^ and ~ prefixes for pullup/pulldown
}

// InputPinOptions accepts both pull and invert prefixes.
var InputPinOptions = PinOptions{CanInvert: true, CanPullup: true}

// OutputPinOptions accepts only the invert prefix.
var OutputPinOptions = PinOptions{CanInvert: true}

// ParsePin parses a pin specification string.
// Format: [^|~][!]pin_name
// Examples: "GPIO17", "!GPIO17", "^!GPIO27"
func ParsePin(desc string, opts PinOptions) (Pin, error) {
	d := strings.TrimSpace(desc)
	if d == "" {
		return Pin{}, settingError("", "", "empty pin specification")
	}

	var p Pin

	// Parse pullup prefix (^ or ~)
	if opts.CanPullup && len(d) > 0 {
		if d[0] == '^' {
			p.Pullup = 1
			d = strings.TrimSpace(d[1:])
		} else if d[0] == '~' {
			p.Pullup = -1
			d = strings.TrimSpace(d[1:])
		}
	}

	// Parse invert prefix (!)
	if opts.CanInvert && len(d) > 0 && d[0] == '!' {
		p.Invert = true
		d = strings.TrimSpace(d[1:])
	}

	if d == "" {
		return Pin{}, settingError("", "", "empty pin name in "+strconv.Quote(desc))
	}
	if strings.ContainsAny(d, "^~!: ") {
		return Pin{}, settingError("", "", "invalid characters in pin "+strconv.Quote(desc))
	}

	p.Name = d
	return p, nil
}
