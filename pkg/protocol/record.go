package protocol

import (
	"strconv"

	"reacher-mcu/pkg/errors"
)

// Component ids used in event records.
const (
	ComponentRHLever = "RH_LEVER"
	ComponentLHLever = "LH_LEVER"
	ComponentPump    = "PUMP"
	ComponentLaser   = "LASER"
	ComponentLick    = "LICK_CIRCUIT"
	ComponentFrame   = "FRAME_TIMESTAMP"
)

// Event names that are not press labels.
const (
	EventInfusion = "INFUSION"
	EventStim     = "STIM"
	EventLick     = "LICK"
)

// PingLine is the keep-alive line.
const PingLine = "ping"

// Record is a timestamped interval event: COMPONENT,EVENT,START,END.
type Record struct {
	Component string
	Event     string
	Start     uint64
	End       uint64
}

// String renders the record in wire form.
func (r Record) String() string {
	b := make([]byte, 0, 48)
	b = append(b, r.Component...)
	b = append(b, ',')
	b = append(b, r.Event...)
	b = append(b, ',')
	b = strconv.AppendUint(b, r.Start, 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, r.End, 10)
	return string(b)
}

// FrameLine renders a captured frame timestamp.
func FrameLine(ts uint64) string {
	return ComponentFrame + "," + strconv.FormatUint(ts, 10)
}

// ErrorLine renders a diagnostic for a rejected command:
// ERROR,<CODE>,<subject>.
func ErrorLine(err error) string {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.ErrCommandParse
	}
	return "ERROR," + string(code) + "," + errors.SubjectOf(err)
}
