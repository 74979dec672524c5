package echonet

import (
	"encoding/binary"
	"fmt"
)

// InstantPowerWatts decodes the 0xE7 instantaneous electric power value:
// a 4-byte signed big-endian watt count (negative while selling power).
func InstantPowerWatts(edt []byte) (int32, error) {
	if len(edt) != 4 {
		return 0, fmt.Errorf("%w: instant power wants 4 bytes, got %d", ErrMalformedValue, len(edt))
	}
	return int32(binary.BigEndian.Uint32(edt)), nil
}

// CumulativeValue decodes the raw 0xE0 cumulative energy counter. The
// physical value is this counter scaled by the 0xE1 unit and the 0xD3
// coefficient.
func CumulativeValue(edt []byte) (uint32, error) {
	if len(edt) != 4 {
		return 0, fmt.Errorf("%w: cumulative energy wants 4 bytes, got %d", ErrMalformedValue, len(edt))
	}
	return binary.BigEndian.Uint32(edt), nil
}

// UnitMultiplier maps the 0xE1 unit code to the kWh weight of one count of
// the cumulative counter.
func UnitMultiplier(code byte) (float64, error) {
	switch code {
	case 0x00:
		return 1, nil
	case 0x01:
		return 0.1, nil
	case 0x02:
		return 0.01, nil
	case 0x03:
		return 0.001, nil
	case 0x04:
		return 0.0001, nil
	case 0x0A:
		return 10, nil
	case 0x0B:
		return 100, nil
	case 0x0C:
		return 1000, nil
	case 0x0D:
		return 10000, nil
	}
	return 0, fmt.Errorf("%w: unknown energy unit %02X", ErrMalformedValue, code)
}

// Coefficient decodes the 0xD3 multiplier, a 4-byte unsigned big-endian
// count. Meters that omit the property use a coefficient of 1; callers pass
// nil in that case.
func Coefficient(edt []byte) (uint32, error) {
	if edt == nil {
		return 1, nil
	}
	if len(edt) != 4 {
		return 0, fmt.Errorf("%w: coefficient wants 4 bytes, got %d", ErrMalformedValue, len(edt))
	}
	return binary.BigEndian.Uint32(edt), nil
}
