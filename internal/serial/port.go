package serial

import (
	"fmt"
	"log/slog"
	"time"

	bugst "go.bug.st/serial"
)

// readTimeout bounds a single blocking read on the port. ReadLine treats an
// expiry (a zero-byte read) as "no data yet" and keeps waiting, so this only
// sets how quickly Close can interrupt a pending read.
const readTimeout = 100 * time.Millisecond

// Open opens the serial device at path with the given baud rate, 8N1.
func Open(path string, baud int, logger *slog.Logger) (Conn, error) {
	mode := &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	port, err := bugst.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	return NewConn(port, logger), nil
}
