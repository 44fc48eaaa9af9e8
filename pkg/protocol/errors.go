package protocol

import (
	"errors"
	"fmt"
)

var (
	errMissingValue    = errors.New("value required")
	errUnexpectedValue = errors.New("command takes no value")
)

func errBelowMinimum(floor uint64) error {
	return fmt.Errorf("must be at least %d", floor)
}
