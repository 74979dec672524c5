package echonet

import "fmt"

// Object is a 3-byte ECHONET object code (class group, class, instance).
type Object uint32

// Objects this daemon talks to or hears from. The meter's measurement
// object is 0x028801; we present ourselves as a controller; the node
// profile shows up as SEOJ in instance-list notifications.
const (
	SmartMeter  Object = 0x028801
	Controller  Object = 0x05FF01
	NodeProfile Object = 0x0EF001
)

func (o Object) bytes() [3]byte {
	return [3]byte{byte(o >> 16), byte(o >> 8), byte(o)}
}

func objectFromBytes(b []byte) (Object, error) {
	o := Object(uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]))
	switch o {
	case SmartMeter, Controller, NodeProfile:
		return o, nil
	}
	return 0, fmt.Errorf("%w: %06X", ErrUnknownObject, uint32(o))
}

func (o Object) String() string {
	switch o {
	case SmartMeter:
		return "smart-meter"
	case Controller:
		return "controller"
	case NodeProfile:
		return "node-profile"
	}
	return fmt.Sprintf("object-%06X", uint32(o))
}

// Service is the ESV byte.
type Service byte

const (
	ServiceSetCSNA Service = 0x51
	ServiceGetSNA  Service = 0x52
	ServiceSetC    Service = 0x61
	ServiceGet     Service = 0x62
	ServiceSetRes  Service = 0x71
	ServiceGetRes  Service = 0x72
	ServiceInf     Service = 0x73
)

func (s Service) String() string {
	switch s {
	case ServiceSetCSNA:
		return "SetC_SNA"
	case ServiceGetSNA:
		return "Get_SNA"
	case ServiceSetC:
		return "SetC"
	case ServiceGet:
		return "Get"
	case ServiceSetRes:
		return "Set_Res"
	case ServiceGetRes:
		return "Get_Res"
	case ServiceInf:
		return "INF"
	}
	return fmt.Sprintf("esv-%02X", byte(s))
}

// EPCs of the low-voltage smart electric energy meter class, plus the
// profile properties every class carries.
const (
	EPCOperationStatus byte = 0x80
	EPCInstallLocation byte = 0x81
	EPCVersion         byte = 0x82
	EPCFaultStatus     byte = 0x88
	EPCManufacturer    byte = 0x8A
	EPCInfPropertyMap  byte = 0x9D
	EPCSetPropertyMap  byte = 0x9E
	EPCGetPropertyMap  byte = 0x9F

	EPCCoefficient      byte = 0xD3
	EPCCumulativeEnergy byte = 0xE0
	EPCEnergyUnit       byte = 0xE1
	EPCInstantPower     byte = 0xE7
	EPCInstantCurrent   byte = 0xE8
)
