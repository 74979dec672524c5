package serial

import (
	"errors"
	"io"
)

// errDataLeft is returned when fill is called while unconsumed bytes remain.
var errDataLeft = errors.New("serial: buffer has data left")

// buffer is a fixed-size read window over the port. ReadLine consumes it
// through readToLF/remain and refills it only once it is empty.
type buffer struct {
	data    []byte
	pointer int
	end     int
}

func newBuffer(size int) *buffer {
	return &buffer{data: make([]byte, size)}
}

// hasLeft reports whether unconsumed bytes remain in the window.
func (b *buffer) hasLeft() bool {
	return b.pointer < b.end
}

// fill reads one chunk from r into the window. Zero-byte reads are legal:
// a real port returns them whenever its read timeout expires.
func (b *buffer) fill(r io.Reader) (int, error) {
	if b.hasLeft() {
		return 0, errDataLeft
	}
	n, err := r.Read(b.data)
	b.pointer = 0
	b.end = n
	if n == 0 && err != nil {
		return 0, err
	}
	return n, nil
}

// readToLF returns the bytes up to and including the next LF, or nil when
// the window holds no complete line.
func (b *buffer) readToLF() []byte {
	if !b.hasLeft() {
		return nil
	}
	for i := b.pointer; i < b.end; i++ {
		if b.data[i] == '\n' {
			start := b.pointer
			b.pointer = i + 1
			return b.data[start:b.pointer]
		}
	}
	return nil
}

// remain drains and returns whatever is left in the window.
func (b *buffer) remain() []byte {
	if !b.hasLeft() {
		return nil
	}
	start := b.pointer
	b.pointer = b.end
	return b.data[start:b.end]
}
