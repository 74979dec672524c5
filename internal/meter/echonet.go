package meter

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkobari/skmeterd/internal/echonet"
	"github.com/mkobari/skmeterd/internal/skstack"
)

// PropertyMap fetches (and caches) the set of properties the meter answers
// Get requests for.
func (c *Client) PropertyMap(ctx context.Context) (echonet.PropertyMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.propertyMapLocked(ctx)
}

func (c *Client) propertyMapLocked(ctx context.Context) (echonet.PropertyMap, error) {
	if c.propMap != nil {
		return *c.propMap, nil
	}
	f, err := c.get(ctx, echonet.EPCGetPropertyMap)
	if err != nil {
		return echonet.PropertyMap{}, err
	}
	p, ok := f.Data.Property(echonet.EPCGetPropertyMap)
	if !ok {
		return echonet.PropertyMap{}, fmt.Errorf("meter: property map reply missing EPC 9F")
	}
	m, err := echonet.ParsePropertyMap(p.EDT)
	if err != nil {
		return echonet.PropertyMap{}, err
	}
	c.propMap = &m
	return m, nil
}

// InstantPower reads the instantaneous electric power in watts.
func (c *Client) InstantPower(ctx context.Context) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.get(ctx, echonet.EPCInstantPower)
	if err != nil {
		return 0, err
	}
	p, ok := f.Data.Property(echonet.EPCInstantPower)
	if !ok {
		return 0, fmt.Errorf("meter: power reply missing EPC E7")
	}
	return echonet.InstantPowerWatts(p.EDT)
}

// CumulativeEnergy reads the cumulative energy counter scaled to kWh. The
// unit and coefficient are fetched once and cached for the session.
func (c *Client) CumulativeEnergy(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scale == nil {
		if err := c.loadScale(ctx); err != nil {
			return 0, err
		}
	}

	f, err := c.get(ctx, echonet.EPCCumulativeEnergy)
	if err != nil {
		return 0, err
	}
	p, ok := f.Data.Property(echonet.EPCCumulativeEnergy)
	if !ok {
		return 0, fmt.Errorf("meter: energy reply missing EPC E0")
	}
	raw, err := echonet.CumulativeValue(p.EDT)
	if err != nil {
		return 0, err
	}
	return float64(raw) * c.scale.unit * float64(c.scale.coefficient), nil
}

// loadScale fetches the 0xE1 unit and, when the meter advertises one, the
// 0xD3 coefficient.
func (c *Client) loadScale(ctx context.Context) error {
	pm, err := c.propertyMapLocked(ctx)
	if err != nil {
		return err
	}

	epcs := []byte{echonet.EPCEnergyUnit}
	if pm.Has(echonet.EPCCoefficient) {
		epcs = append(epcs, echonet.EPCCoefficient)
	}
	f, err := c.get(ctx, epcs...)
	if err != nil {
		return err
	}

	unitProp, ok := f.Data.Property(echonet.EPCEnergyUnit)
	if !ok || len(unitProp.EDT) != 1 {
		return fmt.Errorf("meter: scale reply missing EPC E1")
	}
	unit, err := echonet.UnitMultiplier(unitProp.EDT[0])
	if err != nil {
		return err
	}

	var coefEDT []byte
	if p, ok := f.Data.Property(echonet.EPCCoefficient); ok {
		coefEDT = p.EDT
	}
	coef, err := echonet.Coefficient(coefEDT)
	if err != nil {
		return err
	}

	c.scale = &energyScale{unit: unit, coefficient: coef}
	return nil
}

// get sends one ECHONET Get over the module's UDP transport and waits for
// the matching Get_Res. The command line carries the frame as raw bytes:
// `SKSENDTO 1 <addr> 0E1A 1 <len> <frame>`.
func (c *Client) get(ctx context.Context, epcs ...byte) (echonet.Frame, error) {
	if c.expired.Load() {
		return echonet.Frame{}, ErrSessionExpired
	}
	if !c.joined {
		return echonet.Frame{}, ErrNotJoined
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	tid := c.nextTID()
	payload := echonet.NewGet(tid, epcs...).Marshal()

	cmd := fmt.Sprintf("SKSENDTO 1 %s %04X 1 %04X ", c.meterRaw, echonetPort, len(payload))
	buf := make([]byte, 0, len(cmd)+len(payload)+2)
	buf = append(buf, cmd...)
	buf = append(buf, payload...)
	buf = append(buf, '\r', '\n')
	if err := c.conn.Write(buf); err != nil {
		return echonet.Frame{}, fmt.Errorf("write SKSENDTO: %w", err)
	}

	var resp echonet.Frame
	_, err := c.await(ctx, fmt.Sprintf("ECHONET reply tid=%04X", tid), func(msg skstack.Message) (bool, error) {
		switch m := msg.(type) {
		case skstack.Fail:
			return false, &CommandError{Code: m.Code}
		case skstack.UDPPacket:
			if m.SrcPort != echonetPort || m.Sender != c.meterAddr {
				return false, nil
			}
			f, err := echonet.Unmarshal(m.Data)
			if err != nil {
				c.logger.Warn("undecodable ECHONET frame", "error", err)
				return false, nil
			}
			if f.TID != tid {
				// A stale reply to an earlier, timed-out request.
				return false, nil
			}
			switch f.Data.ESV {
			case echonet.ServiceGetRes:
				resp = f
				return true, nil
			case echonet.ServiceGetSNA:
				return false, &CommandError{Code: f.Data.ESV.String()}
			}
			return false, nil
		}
		return false, nil
	})
	if err != nil {
		// The reply may never come because the session died under us.
		if errors.Is(err, ErrTimeout) && c.expired.Load() {
			return echonet.Frame{}, ErrSessionExpired
		}
		return echonet.Frame{}, err
	}
	return resp, nil
}
