package meter

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports that the module did not answer within the deadline.
	ErrTimeout = errors.New("meter: timed out")
	// ErrClosed reports that the serial connection is gone.
	ErrClosed = errors.New("meter: connection closed")
	// ErrNotJoined reports an ECHONET operation before a successful Join.
	ErrNotJoined = errors.New("meter: not joined to a PAN")
	// ErrNoPanFound reports an active scan that found no meter even at the
	// longest scan duration.
	ErrNoPanFound = errors.New("meter: no PAN found")
	// ErrJoinFailed reports a PANA authentication failure (EVENT 24).
	ErrJoinFailed = errors.New("meter: PANA join failed")
	// ErrSessionExpired reports that the PANA session lapsed (EVENT 29) or
	// was closed by the meter (EVENT 26); every operation fails with it
	// until Join is called again.
	ErrSessionExpired = errors.New("meter: PANA session expired")
)

// CommandError is a FAIL reply to an SKSTACK command, or a service-not-
// available ESV in an ECHONET response.
type CommandError struct {
	Code string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("meter: command failed: %s", e.Code)
}
