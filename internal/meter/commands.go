package meter

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/mkobari/skmeterd/internal/skstack"
)

// Version asks the module for its firmware version: SKVER answers with an
// `EVER x.y.z` line followed by OK.
func (c *Client) Version(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	if err := c.conn.WriteLine("SKVER"); err != nil {
		return "", fmt.Errorf("write SKVER: %w", err)
	}

	var version string
	_, err := c.await(ctx, "SKVER reply", func(msg skstack.Message) (bool, error) {
		switch m := msg.(type) {
		case skstack.Unknown:
			if v, ok := strings.CutPrefix(m.Line, "EVER "); ok {
				version = strings.TrimSpace(v)
			}
			return false, nil
		case skstack.OK:
			return true, nil
		case skstack.Fail:
			return false, &CommandError{Code: m.Code}
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if version == "" {
		return "", fmt.Errorf("meter: SKVER completed without an EVER line")
	}
	return version, nil
}

// Join authenticates against the meter's Route-B interface and establishes
// the PANA session: credentials, active scan, channel and PAN registers,
// address lookup, then SKJOIN.
func (c *Client) Join(ctx context.Context, id, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.JoinTimeout)
	defer cancel()

	c.joined = false
	c.expired.Store(false)

	// The module echoes every command until this register sticks; the
	// parser surfaces those echoes as Unknown and awaits skip them.
	if err := c.command(ctx, "SKSREG SFE 0"); err != nil {
		return fmt.Errorf("disable echoback: %w", err)
	}
	if err := c.command(ctx, fmt.Sprintf("SKSETPWD %X %s", len(password), password)); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if err := c.command(ctx, "SKSETRBID "+id); err != nil {
		return fmt.Errorf("set route-b id: %w", err)
	}

	pan, err := c.scan(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("meter PAN found",
		"channel", fmt.Sprintf("%02X", pan.Channel),
		"pan_id", fmt.Sprintf("%04X", pan.PanID),
		"addr", fmt.Sprintf("%X", pan.Addr[:]))

	if err := c.command(ctx, fmt.Sprintf("SKSREG S2 %02X", pan.Channel)); err != nil {
		return fmt.Errorf("set channel: %w", err)
	}
	if err := c.command(ctx, fmt.Sprintf("SKSREG S3 %04X", pan.PanID)); err != nil {
		return fmt.Errorf("set pan id: %w", err)
	}

	raw, addr, err := c.lookupAddr(ctx, pan.Addr)
	if err != nil {
		return err
	}

	if err := c.command(ctx, "SKJOIN "+raw); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	_, err = c.await(ctx, "PANA join result", func(msg skstack.Message) (bool, error) {
		ev, ok := msg.(skstack.Event)
		if !ok {
			return false, nil
		}
		switch ev.Kind {
		case skstack.EventPanaJoined:
			return true, nil
		case skstack.EventPanaJoinFailed:
			return false, ErrJoinFailed
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	c.joined = true
	c.pan = pan
	c.meterAddr = addr
	c.meterRaw = raw
	c.logger.Info("PANA session established", "meter", raw)
	return nil
}

// scanDurations are the SKSCAN exponents tried in order; each step doubles
// the per-channel listen time.
var scanDurations = []int{4, 5, 6, 7}

// scan runs active scans of increasing duration until a PAN shows up. The
// first EPANDESC wins; no PAN at the longest duration is ErrNoPanFound.
func (c *Client) scan(ctx context.Context) (PanInfo, error) {
	for _, d := range scanDurations {
		if err := c.command(ctx, fmt.Sprintf("SKSCAN 2 FFFFFFFF %d", d)); err != nil {
			return PanInfo{}, fmt.Errorf("start scan: %w", err)
		}

		var found *PanInfo
		_, err := c.await(ctx, "scan completion", func(msg skstack.Message) (bool, error) {
			switch m := msg.(type) {
			case skstack.PanDesc:
				if found == nil {
					found = &PanInfo{Channel: m.Channel, PanID: m.PanID, Addr: m.Addr}
				}
				return false, nil
			case skstack.Event:
				return m.Kind == skstack.EventScanDone, nil
			}
			return false, nil
		})
		if err != nil {
			return PanInfo{}, err
		}
		if found != nil {
			return *found, nil
		}
		c.logger.Debug("scan found nothing, extending duration", "duration", d)
	}
	return PanInfo{}, ErrNoPanFound
}

// lookupAddr converts the PAN's 64-bit MAC to the meter's link-local IPv6
// address. SKLL64 answers with a bare address line, no OK.
func (c *Client) lookupAddr(ctx context.Context, mac [8]byte) (string, netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	if err := c.conn.WriteLine(fmt.Sprintf("SKLL64 %X", mac[:])); err != nil {
		return "", netip.Addr{}, fmt.Errorf("write SKLL64: %w", err)
	}

	var raw string
	var addr netip.Addr
	_, err := c.await(ctx, "SKLL64 reply", func(msg skstack.Message) (bool, error) {
		switch m := msg.(type) {
		case skstack.Unknown:
			a, err := netip.ParseAddr(m.Line)
			if err != nil {
				// A command echo also lands here; keep waiting.
				return false, nil
			}
			raw, addr = m.Line, a
			return true, nil
		case skstack.Fail:
			return false, &CommandError{Code: m.Code}
		}
		return false, nil
	})
	if err != nil {
		return "", netip.Addr{}, err
	}
	return raw, addr, nil
}
