package echonet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getResE7 is a meter reply carrying 504W of instantaneous power.
var getResE7 = []byte{
	0x10, 0x81, // EHD
	0x00, 0x2A, // TID
	0x02, 0x88, 0x01, // SEOJ smart meter
	0x05, 0xFF, 0x01, // DEOJ controller
	0x72,                         // Get_Res
	0x01,                         // OPC
	0xE7, 0x04, 0x00, 0x00, 0x01, 0xF8, // EPC, PDC, EDT
}

func TestFrameMarshal(t *testing.T) {
	t.Parallel()

	t.Run("get request", func(t *testing.T) {
		f := NewGet(0x0001, EPCInstantPower)
		assert.Equal(t, []byte{
			0x10, 0x81,
			0x00, 0x01,
			0x05, 0xFF, 0x01,
			0x02, 0x88, 0x01,
			0x62,
			0x01,
			0xE7, 0x00,
		}, f.Marshal())
	})

	t.Run("multiple properties", func(t *testing.T) {
		f := NewGet(0xBEEF, EPCCoefficient, EPCEnergyUnit)
		b := f.Marshal()
		assert.Equal(t, byte(0x02), b[11])
		assert.Len(t, b, headerLen+4)
	})

	t.Run("round trip", func(t *testing.T) {
		f := Frame{
			EHD1: EHD1Echonet,
			EHD2: EHD2Format1,
			TID:  0x002A,
			Data: Edata{
				SEOJ: SmartMeter,
				DEOJ: Controller,
				ESV:  ServiceGetRes,
				Props: []Property{
					{EPC: EPCInstantPower, EDT: []byte{0x00, 0x00, 0x01, 0xF8}},
				},
			},
		}
		assert.Equal(t, getResE7, f.Marshal())
	})
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("get response", func(t *testing.T) {
		f, err := Unmarshal(getResE7)
		require.NoError(t, err)
		assert.Equal(t, uint16(0x002A), f.TID)
		assert.Equal(t, SmartMeter, f.Data.SEOJ)
		assert.Equal(t, Controller, f.Data.DEOJ)
		assert.Equal(t, ServiceGetRes, f.Data.ESV)
		require.Len(t, f.Data.Props, 1)
		p, ok := f.Data.Property(EPCInstantPower)
		require.True(t, ok)
		assert.Equal(t, []byte{0x00, 0x00, 0x01, 0xF8}, p.EDT)
	})

	t.Run("short frame", func(t *testing.T) {
		_, err := Unmarshal(getResE7[:11])
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("wrong header", func(t *testing.T) {
		b := append([]byte(nil), getResE7...)
		b[1] = 0x82
		_, err := Unmarshal(b)
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("unknown object", func(t *testing.T) {
		b := append([]byte(nil), getResE7...)
		b[4] = 0x01
		_, err := Unmarshal(b)
		require.ErrorIs(t, err, ErrUnknownObject)
	})

	t.Run("truncated property", func(t *testing.T) {
		_, err := Unmarshal(getResE7[:len(getResE7)-1])
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		b := append(append([]byte(nil), getResE7...), 0x00)
		_, err := Unmarshal(b)
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("empty get property", func(t *testing.T) {
		f, err := Unmarshal(NewGet(7, EPCGetPropertyMap).Marshal())
		require.NoError(t, err)
		require.Len(t, f.Data.Props, 1)
		assert.Nil(t, f.Data.Props[0].EDT)
	})
}
