package serial

import (
	"io"
	"log/slog"
)

// defaultBufferSize is the read window size. SKSTACK lines are short except
// for ERXUDP, which tops out well under this with ASCII payloads.
const defaultBufferSize = 256

var crlf = []byte("\r\n")

// Conn is a line-oriented connection to the Wi-SUN module.
type Conn interface {
	// WriteLine writes line followed by CRLF.
	WriteLine(line string) error
	// Write writes raw bytes, for the binary tail of an SKSENDTO command.
	Write(p []byte) error
	// ReadLine blocks until a full line arrives and returns it with the
	// trailing CR/LF trimmed.
	ReadLine() (string, error)
	Close() error
}

type lineConn struct {
	rw     io.ReadWriteCloser
	buf    *buffer
	logger *slog.Logger
}

// NewConn wraps an io.ReadWriteCloser (a real port, a PTY, or an in-memory
// fake) in the line protocol.
func NewConn(rw io.ReadWriteCloser, logger *slog.Logger) Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &lineConn{rw: rw, buf: newBuffer(defaultBufferSize), logger: logger}
}

func (c *lineConn) WriteLine(line string) error {
	if _, err := c.rw.Write([]byte(line)); err != nil {
		return err
	}
	if _, err := c.rw.Write(crlf); err != nil {
		return err
	}
	c.logger.Debug("serial write", "line", line)
	return nil
}

func (c *lineConn) Write(p []byte) error {
	if _, err := c.rw.Write(p); err != nil {
		return err
	}
	c.logger.Debug("serial write raw", "bytes", len(p))
	return nil
}

func (c *lineConn) ReadLine() (string, error) {
	var line []byte
	for {
		if !c.buf.hasLeft() {
			n, err := c.buf.fill(c.rw)
			if err != nil {
				return "", err
			}
			if n == 0 {
				// Port read timeout; keep waiting for the line.
				continue
			}
		}
		if chunk := c.buf.readToLF(); chunk != nil {
			line = append(line, chunk...)
			text := string(trimLineEnd(line))
			c.logger.Debug("serial read", "line", text)
			return text, nil
		}
		if rest := c.buf.remain(); rest != nil {
			line = append(line, rest...)
		}
	}
}

func (c *lineConn) Close() error {
	return c.rw.Close()
}

// trimLineEnd strips trailing CR and LF bytes; embedded ones are preserved.
func trimLineEnd(b []byte) []byte {
	end := 0
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != '\r' && b[i] != '\n' {
			end = i + 1
			break
		}
	}
	return b[:end]
}
