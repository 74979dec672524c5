package skstack

import "strings"

// Parser turns the module's line stream into Messages. Most lines map to a
// single Message, but EPANDESC spans several lines, so the parser keeps the
// partial block between AddLine calls.
type Parser struct {
	pending []string
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{}
}

// AddLine feeds one line (already stripped of its CRLF). It returns the
// completed Message, or (nil, nil) when the line is blank or when more lines
// are needed to finish a multi-line block. A non-nil error means the
// accumulated input could not be understood; the partial state is dropped so
// the caller can keep reading.
func (p *Parser) AddLine(line string) (Message, error) {
	p.pending = append(p.pending, line)
	msg, more, err := parseMessage(strings.Join(p.pending, "\n"))
	if more {
		return nil, nil
	}
	p.pending = p.pending[:0]
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Pending reports whether a multi-line block is still being assembled.
func (p *Parser) Pending() bool {
	return len(p.pending) > 0
}
