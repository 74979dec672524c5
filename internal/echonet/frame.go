// Package echonet encodes and decodes ECHONET Lite format-1 frames and the
// property values of the low-voltage smart electric energy meter class.
package echonet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame = errors.New("echonet: malformed frame")
	ErrUnknownObject  = errors.New("echonet: unknown object code")
	ErrMalformedValue = errors.New("echonet: malformed property value")
)

// Frame header bytes: EHD1 identifies the protocol, EHD2 the frame format.
const (
	EHD1Echonet byte = 0x10
	EHD2Format1 byte = 0x81
)

// headerLen covers EHD1, EHD2, TID, SEOJ, DEOJ, ESV and OPC.
const headerLen = 12

// Property is one EPC with its value. A Get request carries an empty EDT.
type Property struct {
	EPC byte
	EDT []byte
}

// Edata is the frame body.
type Edata struct {
	SEOJ  Object
	DEOJ  Object
	ESV   Service
	Props []Property
}

// Property returns the first property with the given EPC.
func (e Edata) Property(epc byte) (Property, bool) {
	for _, p := range e.Props {
		if p.EPC == epc {
			return p, true
		}
	}
	return Property{}, false
}

// Frame is a complete ECHONET Lite format-1 frame.
type Frame struct {
	EHD1 byte
	EHD2 byte
	TID  uint16
	Data Edata
}

// NewGet builds a Get request from the controller to the meter, one empty
// property per requested EPC.
func NewGet(tid uint16, epcs ...byte) Frame {
	props := make([]Property, len(epcs))
	for i, epc := range epcs {
		props[i] = Property{EPC: epc}
	}
	return Frame{
		EHD1: EHD1Echonet,
		EHD2: EHD2Format1,
		TID:  tid,
		Data: Edata{
			SEOJ:  Controller,
			DEOJ:  SmartMeter,
			ESV:   ServiceGet,
			Props: props,
		},
	}
}

// Marshal encodes the frame in wire order: header, objects, ESV, OPC, then
// EPC/PDC/EDT per property.
func (f Frame) Marshal() []byte {
	size := headerLen
	for _, p := range f.Data.Props {
		size += 2 + len(p.EDT)
	}

	b := make([]byte, 0, size)
	b = append(b, f.EHD1, f.EHD2)
	b = binary.BigEndian.AppendUint16(b, f.TID)
	seoj, deoj := f.Data.SEOJ.bytes(), f.Data.DEOJ.bytes()
	b = append(b, seoj[:]...)
	b = append(b, deoj[:]...)
	b = append(b, byte(f.Data.ESV), byte(len(f.Data.Props)))
	for _, p := range f.Data.Props {
		b = append(b, p.EPC, byte(len(p.EDT)))
		b = append(b, p.EDT...)
	}
	return b
}

// Unmarshal decodes one frame. OPC must account for every remaining byte;
// both truncated properties and trailing bytes are errors.
func Unmarshal(b []byte) (Frame, error) {
	if len(b) < headerLen {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(b))
	}
	if b[0] != EHD1Echonet || b[1] != EHD2Format1 {
		return Frame{}, fmt.Errorf("%w: header %02X%02X", ErrMalformedFrame, b[0], b[1])
	}

	seoj, err := objectFromBytes(b[4:7])
	if err != nil {
		return Frame{}, err
	}
	deoj, err := objectFromBytes(b[7:10])
	if err != nil {
		return Frame{}, err
	}

	f := Frame{
		EHD1: b[0],
		EHD2: b[1],
		TID:  binary.BigEndian.Uint16(b[2:4]),
		Data: Edata{SEOJ: seoj, DEOJ: deoj, ESV: Service(b[10])},
	}

	opc := int(b[11])
	rest := b[headerLen:]
	if opc > 0 {
		f.Data.Props = make([]Property, 0, opc)
	}
	for i := 0; i < opc; i++ {
		if len(rest) < 2 {
			return Frame{}, fmt.Errorf("%w: truncated property %d", ErrMalformedFrame, i)
		}
		epc, pdc := rest[0], int(rest[1])
		if len(rest) < 2+pdc {
			return Frame{}, fmt.Errorf("%w: property %02X wants %d bytes, %d left",
				ErrMalformedFrame, epc, pdc, len(rest)-2)
		}
		var edt []byte
		if pdc > 0 {
			edt = append([]byte(nil), rest[2:2+pdc]...)
		}
		f.Data.Props = append(f.Data.Props, Property{EPC: epc, EDT: edt})
		rest = rest[2+pdc:]
	}
	if len(rest) != 0 {
		return Frame{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedFrame, len(rest))
	}
	return f, nil
}
