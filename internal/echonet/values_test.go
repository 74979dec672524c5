package echonet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantPowerWatts(t *testing.T) {
	t.Parallel()

	w, err := InstantPowerWatts([]byte{0x00, 0x00, 0x01, 0xF8})
	require.NoError(t, err)
	assert.Equal(t, int32(504), w)

	// Negative while the house is selling power back.
	w, err = InstantPowerWatts([]byte{0xFF, 0xFF, 0xFE, 0x0C})
	require.NoError(t, err)
	assert.Equal(t, int32(-500), w)

	_, err = InstantPowerWatts([]byte{0x01, 0xF8})
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestCumulativeValue(t *testing.T) {
	t.Parallel()

	v, err := CumulativeValue([]byte{0x00, 0x01, 0x86, 0xA0})
	require.NoError(t, err)
	assert.Equal(t, uint32(100000), v)

	_, err = CumulativeValue(nil)
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestUnitMultiplier(t *testing.T) {
	t.Parallel()

	cases := map[byte]float64{
		0x00: 1, 0x01: 0.1, 0x02: 0.01, 0x03: 0.001, 0x04: 0.0001,
		0x0A: 10, 0x0B: 100, 0x0C: 1000, 0x0D: 10000,
	}
	for code, want := range cases {
		got, err := UnitMultiplier(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, code := range []byte{0x05, 0x09, 0x0E, 0xFF} {
		_, err := UnitMultiplier(code)
		require.ErrorIs(t, err, ErrMalformedValue, "code %02X", code)
	}
}

func TestCoefficient(t *testing.T) {
	t.Parallel()

	c, err := Coefficient(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), c)

	c, err = Coefficient([]byte{0x00, 0x00, 0x00, 0x0A})
	require.NoError(t, err)
	assert.Equal(t, uint32(10), c)

	_, err = Coefficient([]byte{0x0A})
	require.ErrorIs(t, err, ErrMalformedValue)
}
