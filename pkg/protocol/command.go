// Package protocol implements the line-oriented text protocol spoken with the
// host: commands in, comma-delimited event records out.
package protocol

import (
	"strconv"
	"strings"

	"reacher-mcu/pkg/errors"
)

// Kind identifies a host command.
type Kind int

const (
	Link Kind = iota + 1
	Unlink
	StartProgram
	EndProgram

	SetRatio
	SetProgressiveRatio
	SetTimeoutLength

	ArmLeverRH
	DisarmLeverRH
	ArmLeverLH
	DisarmLeverLH
	ActiveLeverRH
	ActiveLeverLH

	ArmCue
	DisarmCue
	SetCueFrequency
	SetCueDuration

	ArmPump
	DisarmPump
	SetTraceInterval
	SetInfusionDuration
	PumpTestOn
	PumpTestOff

	ArmLaser
	DisarmLaser
	SetLaserPulse

	ArmLick
	DisarmLick

	SetLeverDebounce
	SetLickDebounce
)

// definition describes how a keyword maps onto a command.
type definition struct {
	kind     Kind
	keyword  string
	hasValue bool
	floor    uint64
}

var definitions = []definition{
	{Link, "LINK", false, 0},
	{Unlink, "UNLINK", false, 0},
	{StartProgram, "START-PROGRAM", false, 0},
	{EndProgram, "END-PROGRAM", false, 0},

	{SetRatio, "SET_RATIO", true, 1},
	{SetProgressiveRatio, "SET_PRATIO", true, 0},
	{SetTimeoutLength, "SET_TIMEOUT_PERIOD_LENGTH", true, 0},

	{ArmLeverRH, "ARM_LEVER_RH", false, 0},
	{DisarmLeverRH, "DISARM_LEVER_RH", false, 0},
	{ArmLeverLH, "ARM_LEVER_LH", false, 0},
	{DisarmLeverLH, "DISARM_LEVER_LH", false, 0},
	{ActiveLeverRH, "ACTIVE_LEVER_RH", false, 0},
	{ActiveLeverLH, "ACTIVE_LEVER_LH", false, 0},

	{ArmCue, "ARM_CS", false, 0},
	{DisarmCue, "DISARM_CS", false, 0},
	{SetCueFrequency, "SET_FREQUENCY_CS", true, 1},
	{SetCueDuration, "SET_DURATION_CS", true, 0},

	{ArmPump, "ARM_PUMP", false, 0},
	{DisarmPump, "DISARM_PUMP", false, 0},
	{SetTraceInterval, "SET_TRACE_INTERVAL", true, 0},
	{SetInfusionDuration, "SET_DURATION_PUMP", true, 0},
	{PumpTestOn, "PUMP_TEST_ON", false, 0},
	{PumpTestOff, "PUMP_TEST_OFF", false, 0},

	{ArmLaser, "ARM_LASER", false, 0},
	{DisarmLaser, "DISARM_LASER", false, 0},
	{SetLaserPulse, "SET_DURATION_LASER", true, 1},

	{ArmLick, "ARM_LICK_CIRCUIT", false, 0},
	{DisarmLick, "DISARM_LICK_CIRCUIT", false, 0},

	{SetLeverDebounce, "SET_DEBOUNCE_LEVER", true, 0},
	{SetLickDebounce, "SET_DEBOUNCE_LICK", true, 0},
}

var (
	byKeyword = make(map[string]definition, len(definitions))
	byKind    = make(map[Kind]definition, len(definitions))
)

func init() {
	for _, s := range definitions {
		byKeyword[s.keyword] = s
		byKind[s.kind] = s
	}
}

// Keyword returns the wire keyword of k, without any value suffix.
func (k Kind) Keyword() string {
	if s, ok := byKind[k]; ok {
		return s.keyword
	}
	return "UNKNOWN"
}

func (k Kind) String() string {
	return k.Keyword()
}

// HasValue reports whether commands of this kind carry a numeric argument.
func (k Kind) HasValue() bool {
	return byKind[k].hasValue
}

// Command is one parsed host command.
type Command struct {
	Kind  Kind
	Value uint64
}

// String renders the command in wire form.
func (c Command) String() string {
	if c.Kind.HasValue() {
		return c.Kind.Keyword() + ":" + strconv.FormatUint(c.Value, 10)
	}
	return c.Kind.Keyword()
}

// Parse decodes one line. Surrounding whitespace is ignored. Commands that
// take a value are written KEYWORD:<n>; the rest must match exactly.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, errors.CommandParseError(line, "empty line")
	}

	keyword, value, hasColon := strings.Cut(line, ":")
	s, ok := byKeyword[keyword]
	if !ok {
		return Command{}, errors.CommandUnknownError(keyword)
	}

	if !s.hasValue {
		if hasColon {
			return Command{}, errors.CommandParamError(keyword, value, errUnexpectedValue)
		}
		return Command{Kind: s.kind}, nil
	}

	if !hasColon {
		return Command{}, errors.CommandParamError(keyword, "", errMissingValue)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return Command{}, errors.CommandParamError(keyword, value, err)
	}
	if n < s.floor {
		return Command{}, errors.CommandParamError(keyword, value, errBelowMinimum(s.floor))
	}
	return Command{Kind: s.kind, Value: n}, nil
}
