// Package skstack parses the line protocol spoken by SKSTACK Wi-SUN
// modules: OK/FAIL command replies, asynchronous EVENT/ERXUDP/EPANDESC
// notifications, and the handful of bare replies (version strings, IPv6
// addresses) that match none of those shapes.
package skstack

import "strings"

// Message is one complete unit of module output.
type Message interface {
	isMessage()
}

// OK is the success reply to a command.
type OK struct{}

// Fail is an error reply; Code is the module's ERxx code.
type Fail struct {
	Code string
}

// Unknown is a line that is neither a reply nor an event. SKVER answers
// with an `EVER x.y.z` line and SKLL64 with a bare IPv6 address; both
// arrive as Unknown and are interpreted by the caller.
type Unknown struct {
	Line string
}

func (OK) isMessage()      {}
func (Fail) isMessage()    {}
func (Unknown) isMessage() {}

// parseMessage parses an assembled message text. It reports more=true when
// the text is an incomplete multi-line event.
func parseMessage(data string) (msg Message, more bool, err error) {
	if data == "" {
		return nil, false, nil
	}
	if data == "OK" {
		return OK{}, false, nil
	}
	if code, found := strings.CutPrefix(data, "FAIL "); found {
		return Fail{Code: strings.TrimSpace(code)}, false, nil
	}

	ev, more, err := parseEvent(data)
	switch {
	case err == errNotEvent:
		return Unknown{Line: data}, false, nil
	case err != nil:
		return nil, false, err
	case more:
		return nil, true, nil
	default:
		return ev, false, nil
	}
}
