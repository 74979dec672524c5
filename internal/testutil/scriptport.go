package testutil

import (
	"bytes"
	"io"
	"sync"
)

// ScriptPort is an in-memory io.ReadWriteCloser whose Read hands out one
// scripted chunk per call, mimicking how a serial device surfaces bytes in
// arbitrary fragments. An empty chunk produces a zero-byte read, which is
// what a real port returns when its read timeout expires. Once the script
// is exhausted Read returns io.EOF so a looping reader cannot spin forever.
type ScriptPort struct {
	mu     sync.Mutex
	chunks [][]byte
	next   int
	wr     bytes.Buffer
	closed bool
}

// NewScriptPort builds a ScriptPort that will serve the given read chunks
// in order.
func NewScriptPort(chunks ...[]byte) *ScriptPort {
	return &ScriptPort{chunks: chunks}
}

// Read copies the next scripted chunk into buf.
func (p *ScriptPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if p.next >= len(p.chunks) {
		return 0, io.EOF
	}
	data := p.chunks[p.next]
	p.next++
	return copy(buf, data), nil
}

// Write records everything written for later inspection.
func (p *ScriptPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.wr.Write(b)
}

// Close marks the port closed; subsequent reads and writes fail.
func (p *ScriptPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Written returns a copy of everything written to the port so far.
func (p *ScriptPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, p.wr.Len())
	copy(out, p.wr.Bytes())
	return out
}
