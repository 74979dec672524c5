// Package meter drives a serial-attached SKSTACK Wi-SUN module: PANA join
// against the smart meter's Route-B interface and ECHONET Lite property
// reads over the module's UDP transport.
package meter

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkobari/skmeterd/internal/ctxlog"
	"github.com/mkobari/skmeterd/internal/echonet"
	"github.com/mkobari/skmeterd/internal/serial"
	"github.com/mkobari/skmeterd/internal/skstack"
)

// Config bounds the client's waits. Zero fields take the defaults.
type Config struct {
	// JoinTimeout bounds the whole Join sequence including the scan.
	JoinTimeout time.Duration
	// ReadTimeout bounds one ECHONET property read round-trip.
	ReadTimeout time.Duration
	// CommandTimeout bounds a single SKSTACK command reply.
	CommandTimeout time.Duration
}

const (
	defaultJoinTimeout    = 60 * time.Second
	defaultReadTimeout    = 15 * time.Second
	defaultCommandTimeout = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = defaultJoinTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	return c
}

// PanInfo is the meter's PAN as found by the active scan.
type PanInfo struct {
	Channel byte
	PanID   uint16
	Addr    [8]byte
}

// echonetPort is the fixed ECHONET Lite UDP port, 0x0E1A.
const echonetPort = 0x0E1A

// Client is the Wi-SUN module client. All public operations serialize on an
// internal mutex: the module handles one command at a time.
type Client struct {
	conn   serial.Conn
	parser *skstack.Parser
	cfg    Config
	logger *slog.Logger

	msgs chan skstack.Message
	done chan struct{}

	expired atomic.Bool

	mu        sync.Mutex
	started   bool
	joined    bool
	tid       uint16
	pan       PanInfo
	meterAddr netip.Addr
	meterRaw  string
	propMap   *echonet.PropertyMap
	scale     *energyScale
}

// energyScale is the cached 0xE1 unit and 0xD3 coefficient used to turn the
// raw cumulative counter into kWh.
type energyScale struct {
	unit        float64
	coefficient uint32
}

// NewClient wraps an open serial connection. Call Start before any other
// operation.
func NewClient(conn serial.Conn, cfg Config) *Client {
	return &Client{
		conn:   conn,
		parser: skstack.NewParser(),
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		msgs:   make(chan skstack.Message, 32),
		done:   make(chan struct{}),
	}
}

// Start launches the reader pump that turns serial lines into messages. The
// client logs through whatever logger the context carries.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.logger = ctxlog.FromContext(ctx).With("component", "meter")
	go c.pump()
}

// Close terminates the PANA session (best effort) and closes the port.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.joined && !c.expired.Load() {
		// The reply does not matter; the port is going away.
		if err := c.conn.WriteLine("SKTERM"); err != nil {
			c.logger.Debug("SKTERM write failed", "error", err)
		}
		c.joined = false
	}
	c.mu.Unlock()
	return c.conn.Close()
}

// Joined reports whether a PANA session is established and alive.
func (c *Client) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined && !c.expired.Load()
}

// Pan returns the scanned PAN description once joined.
func (c *Client) Pan() (PanInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pan, c.joined
}

// MeterAddr returns the meter's link-local address once joined.
func (c *Client) MeterAddr() (netip.Addr, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meterAddr, c.joined
}

// pump reads lines until the connection dies, parses them, and forwards
// complete messages. Parse errors are logged and skipped; a poisoned line
// must not take the session down.
func (c *Client) pump() {
	defer close(c.done)
	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			c.logger.Debug("serial reader stopped", "error", err)
			return
		}
		msg, err := c.parser.AddLine(line)
		if err != nil {
			c.logger.Warn("unparseable module output", "error", err)
			continue
		}
		if msg == nil {
			continue
		}
		c.observe(msg)
		select {
		case c.msgs <- msg:
		default:
			// No operation is waiting and the buffer is full; the flag
			// flip in observe already happened, so dropping is safe.
			c.logger.Debug("dropping unsolicited message", "message", fmt.Sprintf("%T", msg))
		}
	}
}

// observe applies the side effects of unsolicited events regardless of
// whether any operation is waiting for them.
func (c *Client) observe(msg skstack.Message) {
	ev, ok := msg.(skstack.Event)
	if !ok {
		return
	}
	switch ev.Kind {
	case skstack.EventSessionExpired, skstack.EventSessionClosed:
		c.logger.Warn("PANA session lost", "event", fmt.Sprintf("%02X", byte(ev.Kind)))
		c.expired.Store(true)
	}
}

// matchFunc inspects one message during an await. done=true ends the wait
// with this message; a non-nil error aborts it; otherwise the message is
// skipped.
type matchFunc func(skstack.Message) (done bool, err error)

// await reads messages until match accepts one. Buffered messages are
// drained before the connection-closed signal is considered, so a reply
// that arrived just before EOF still wins.
func (c *Client) await(ctx context.Context, what string, match matchFunc) (skstack.Message, error) {
	for {
		var msg skstack.Message
		select {
		case msg = <-c.msgs:
		default:
			select {
			case msg = <-c.msgs:
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: waiting for %s", ErrTimeout, what)
			case <-c.done:
				return nil, fmt.Errorf("%w: waiting for %s", ErrClosed, what)
			}
		}

		done, err := match(msg)
		if err != nil {
			return nil, err
		}
		if done {
			return msg, nil
		}
		c.logger.Debug("skipping message", "await", what, "message", fmt.Sprintf("%#v", msg))
	}
}

// matchOK accepts OK and turns FAIL into a CommandError.
func matchOK(msg skstack.Message) (bool, error) {
	switch m := msg.(type) {
	case skstack.OK:
		return true, nil
	case skstack.Fail:
		return false, &CommandError{Code: m.Code}
	}
	return false, nil
}

// command writes one SKSTACK command line and waits for its OK.
func (c *Client) command(ctx context.Context, line string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()
	if err := c.conn.WriteLine(line); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	_, err := c.await(ctx, line, matchOK)
	return err
}

func (c *Client) nextTID() uint16 {
	c.tid++
	if c.tid == 0 {
		c.tid = 1
	}
	return c.tid
}
