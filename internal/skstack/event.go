package skstack

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// errNotEvent marks a line whose first token is no known event keyword.
var errNotEvent = errors.New("skstack: not an event line")

// EventKind is the numeric code of an `EVENT n` notification.
type EventKind byte

// Event codes the daemon acts on. Anything else on an EVENT line is a
// parse error and gets skipped upstream.
const (
	EventUDPSendDone    EventKind = 0x21
	EventScanDone       EventKind = 0x22
	EventPanaJoinFailed EventKind = 0x24
	EventPanaJoined     EventKind = 0x25
	EventSessionClosed  EventKind = 0x26
	EventSessionExpired EventKind = 0x29
)

func (k EventKind) valid() bool {
	switch k {
	case EventUDPSendDone, EventScanDone, EventPanaJoinFailed,
		EventPanaJoined, EventSessionClosed, EventSessionExpired:
		return true
	}
	return false
}

// Event is a plain `EVENT <num> <sender> [param]` notification.
type Event struct {
	Kind   EventKind
	Sender netip.Addr
}

// PanDesc describes one PAN found by an active scan (multi-line EPANDESC).
type PanDesc struct {
	Channel byte
	PanID   uint16
	Addr    [8]byte
}

// UDPPacket is an ERXUDP notification: one UDP datagram received by the
// module, payload already hex-decoded.
type UDPPacket struct {
	Sender  netip.Addr
	Dest    netip.Addr
	SrcPort uint16
	DstPort uint16
	Data    []byte
}

func (Event) isMessage()     {}
func (PanDesc) isMessage()   {}
func (UDPPacket) isMessage() {}

// parseEvent parses a line (or assembled multi-line text) whose first token
// names an event. more=true means an EPANDESC is still incomplete.
func parseEvent(data string) (msg Message, more bool, err error) {
	if data == "" {
		return nil, false, nil
	}

	fields := strings.FieldsFunc(strings.TrimSpace(data), func(r rune) bool {
		return r == ' ' || r == '\n'
	})
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	if len(fields) == 0 {
		return nil, false, fmt.Errorf("skstack: malformed event line: %q", data)
	}

	switch fields[0] {
	case "EVENT":
		msg, err = parseEventNum(data, fields)
		return msg, false, err
	case "ERXUDP":
		msg, err = parseRxUDP(data, fields)
		return msg, false, err
	case "EPANDESC":
		return parsePanDesc(data)
	default:
		return nil, false, errNotEvent
	}
}

// parseEventNum parses `EVENT <hex-num> <sender-ipv6> [param]`.
func parseEventNum(data string, fields []string) (Message, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("skstack: truncated EVENT line: %q", data)
	}
	num, err := strconv.ParseUint(fields[1], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed event number in %q", data)
	}
	kind := EventKind(num)
	if !kind.valid() {
		return nil, fmt.Errorf("skstack: unsupported event %02X in %q", num, data)
	}
	sender, err := netip.ParseAddr(fields[2])
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed event sender in %q", data)
	}
	return Event{Kind: kind, Sender: sender}, nil
}

// parseRxUDP parses the 9-field ERXUDP line. The payload length field is in
// bytes and must match the hex payload exactly; anything else means the
// module is not in ASCII dump mode and the line cannot be trusted.
func parseRxUDP(data string, fields []string) (Message, error) {
	if len(fields) != 9 {
		return nil, fmt.Errorf("skstack: ERXUDP expects 9 fields, got %d: %q", len(fields), data)
	}
	sender, err := netip.ParseAddr(fields[1])
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed ERXUDP sender: %q", data)
	}
	dest, err := netip.ParseAddr(fields[2])
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed ERXUDP dest: %q", data)
	}
	srcPort, err := strconv.ParseUint(fields[3], 16, 16)
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed ERXUDP source port: %q", data)
	}
	dstPort, err := strconv.ParseUint(fields[4], 16, 16)
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed ERXUDP dest port: %q", data)
	}
	// fields[5] is the sender's link-layer address and fields[6] the
	// secured flag; neither matters here.
	dataLen, err := strconv.ParseUint(fields[7], 16, 16)
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed ERXUDP length: %q", data)
	}
	if int(dataLen)*2 != len(fields[8]) {
		return nil, fmt.Errorf("skstack: ERXUDP length %d does not match payload: %q", dataLen, data)
	}
	payload, err := hex.DecodeString(fields[8])
	if err != nil {
		return nil, fmt.Errorf("skstack: malformed ERXUDP payload: %q", data)
	}
	return UDPPacket{
		Sender:  sender,
		Dest:    dest,
		SrcPort: uint16(srcPort),
		DstPort: uint16(dstPort),
		Data:    payload,
	}, nil
}

// panDescLines is the full EPANDESC shape: the keyword line plus Channel,
// Channel Page, Pan ID, Addr, LQI and PairID.
const panDescLines = 7

func parsePanDesc(data string) (msg Message, more bool, err error) {
	lines := strings.Split(data, "\n")

	// Validate the key:value shape as lines arrive, not only once all seven
	// are in: a stray OK or EVENT in the middle of a block should fail fast
	// instead of being swallowed into the pending state.
	kv := make(map[string]string, panDescLines-1)
	for _, l := range lines[1:] {
		parts := strings.Split(l, ":")
		if len(parts) != 2 {
			return nil, false, fmt.Errorf("skstack: malformed line in EPANDESC: %q", l)
		}
		kv[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if len(lines) != panDescLines {
		return nil, true, nil
	}

	channelStr, ok := kv["Channel"]
	if !ok {
		return nil, false, errors.New("skstack: EPANDESC without Channel")
	}
	channel, err := strconv.ParseUint(channelStr, 16, 8)
	if err != nil {
		return nil, false, fmt.Errorf("skstack: malformed EPANDESC channel: %w", err)
	}

	panStr, ok := kv["Pan ID"]
	if !ok {
		return nil, false, errors.New("skstack: EPANDESC without Pan ID")
	}
	panID, err := strconv.ParseUint(panStr, 16, 16)
	if err != nil {
		return nil, false, fmt.Errorf("skstack: malformed EPANDESC pan id: %w", err)
	}

	addrStr, ok := kv["Addr"]
	if !ok {
		return nil, false, errors.New("skstack: EPANDESC without Addr")
	}
	addrBytes, err := hex.DecodeString(addrStr)
	if err != nil {
		return nil, false, fmt.Errorf("skstack: malformed EPANDESC addr: %w", err)
	}
	if len(addrBytes) != 8 {
		return nil, false, fmt.Errorf("skstack: EPANDESC addr must be 8 bytes, got %d", len(addrBytes))
	}

	desc := PanDesc{Channel: byte(channel), PanID: uint16(panID)}
	copy(desc.Addr[:], addrBytes)
	return desc, false, nil
}
