package app

import (
	"context"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkobari/skmeterd/internal/config"
	"github.com/mkobari/skmeterd/internal/echonet"
	"github.com/mkobari/skmeterd/internal/meter"
	"github.com/mkobari/skmeterd/internal/testutil"
)

// setupAppTest builds an App that logs into a buffer, reads credentials from
// the test environment, keeps the status server off (tests hit the handlers
// directly) and talks to the given fake meter.
func setupAppTest(t *testing.T, cfg *Config, m meterClient) (*App, *testutil.SafeBuffer) {
	t.Helper()

	t.Setenv(config.EnvRouteBID, "00112233445566778899AABBCCDDEEFF")
	t.Setenv(config.EnvRouteBPassword, "SECRET012345")

	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Overrides.StatusPort == nil {
		port := 0
		cfg.Overrides.StatusPort = &port
	}
	if cfg.Overrides.LogLevel == nil {
		level := "debug"
		cfg.Overrides.LogLevel = &level
	}

	buf := &testutil.SafeBuffer{}
	a, err := New(buf, cfg)
	require.NoError(t, err)

	if m != nil {
		a.newMeter = func(ctx context.Context) (meterClient, error) { return m, nil }
	}
	return a, buf
}

// fakeMeter is a scriptable stand-in for the serial client.
type fakeMeter struct {
	mu         sync.Mutex
	joined     bool
	joins      int
	closed     bool
	powerCalls int

	versionErr error
	joinErr    error
	propMap    echonet.PropertyMap
	powerFn    func(call int) (int32, error)
	energyFn   func() (float64, error)
}

// newFakeMeter answers every read with 500W and 1234.5 kWh.
func newFakeMeter(t *testing.T, epcs ...byte) *fakeMeter {
	t.Helper()
	if len(epcs) == 0 {
		epcs = []byte{echonet.EPCGetPropertyMap, echonet.EPCCumulativeEnergy, echonet.EPCInstantPower}
	}
	pm, err := echonet.ParsePropertyMap(append([]byte{byte(len(epcs))}, epcs...))
	require.NoError(t, err)
	return &fakeMeter{propMap: pm}
}

func (f *fakeMeter) Start(ctx context.Context) {}

func (f *fakeMeter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeMeter) Version(ctx context.Context) (string, error) {
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return "1.2.8", nil
}

func (f *fakeMeter) Join(ctx context.Context, id, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = true
	return nil
}

func (f *fakeMeter) PropertyMap(ctx context.Context) (echonet.PropertyMap, error) {
	return f.propMap, nil
}

func (f *fakeMeter) InstantPower(ctx context.Context) (int32, error) {
	f.mu.Lock()
	f.powerCalls++
	call := f.powerCalls
	fn := f.powerFn
	f.mu.Unlock()
	if fn != nil {
		return fn(call)
	}
	return 500, nil
}

func (f *fakeMeter) CumulativeEnergy(ctx context.Context) (float64, error) {
	if f.energyFn != nil {
		return f.energyFn()
	}
	return 1234.5, nil
}

func (f *fakeMeter) Joined() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joined
}

func (f *fakeMeter) joinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins
}

func (f *fakeMeter) Pan() (meter.PanInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return meter.PanInfo{Channel: 0x21, PanID: 0x8888}, f.joined
}

func (f *fakeMeter) MeterAddr() (netip.Addr, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return netip.MustParseAddr("fe80::21d:1290:1234:5678"), f.joined
}
