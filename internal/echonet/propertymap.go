package echonet

import (
	"fmt"
	"sort"
)

// PropertyMap is the decoded value of one of the 0x9D/0x9E/0x9F map
// properties: the set of EPCs a device supports for that access rule.
type PropertyMap struct {
	props map[byte]struct{}
}

// ParsePropertyMap decodes the two wire forms. The first byte is the
// property count; below 16 the rest is a plain EPC list, from 16 up the
// rest is a 16-byte bitmap where bit j of byte i encodes EPC i+((8+j)<<4).
func ParsePropertyMap(edt []byte) (PropertyMap, error) {
	if len(edt) == 0 {
		return PropertyMap{}, fmt.Errorf("%w: empty property map", ErrMalformedValue)
	}

	count := int(edt[0])
	if count < 16 {
		props := make(map[byte]struct{}, len(edt)-1)
		for _, epc := range edt[1:] {
			props[epc] = struct{}{}
		}
		return PropertyMap{props: props}, nil
	}

	if len(edt) != 17 {
		return PropertyMap{}, fmt.Errorf("%w: bitmap property map must be 17 bytes, got %d",
			ErrMalformedValue, len(edt))
	}

	props := make(map[byte]struct{}, count)
	for i, row := range edt[1:] {
		for j := 0; j < 8; j++ {
			if row&(1<<j) != 0 {
				props[byte(i)+byte(8+j)<<4] = struct{}{}
			}
		}
	}
	if len(props) != count {
		return PropertyMap{}, fmt.Errorf("%w: bitmap has %d properties, count byte says %d",
			ErrMalformedValue, len(props), count)
	}
	return PropertyMap{props: props}, nil
}

// Has reports whether the device supports the EPC.
func (m PropertyMap) Has(epc byte) bool {
	_, ok := m.props[epc]
	return ok
}

// Len returns the number of supported EPCs.
func (m PropertyMap) Len() int {
	return len(m.props)
}

// EPCs returns the supported EPCs in ascending order.
func (m PropertyMap) EPCs() []byte {
	out := make([]byte, 0, len(m.props))
	for epc := range m.props {
		out = append(out, epc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String renders the map as hex EPCs for logs.
func (m PropertyMap) String() string {
	s := ""
	for i, epc := range m.EPCs() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%02X", epc)
	}
	return "[" + s + "]"
}
