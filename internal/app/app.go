package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"sync"

	"github.com/mkobari/skmeterd/internal/config"
	"github.com/mkobari/skmeterd/internal/ctxlog"
	"github.com/mkobari/skmeterd/internal/echonet"
	"github.com/mkobari/skmeterd/internal/meter"
	"github.com/mkobari/skmeterd/internal/readings"
	"github.com/mkobari/skmeterd/internal/serial"
	"github.com/mkobari/skmeterd/internal/store"
)

// Version is stamped by the linker on release builds.
var Version = "dev"

// meterClient is what the lifecycle needs from the Wi-SUN client.
type meterClient interface {
	Start(ctx context.Context)
	Close() error
	Version(ctx context.Context) (string, error)
	Join(ctx context.Context, id, password string) error
	PropertyMap(ctx context.Context) (echonet.PropertyMap, error)
	InstantPower(ctx context.Context) (int32, error)
	CumulativeEnergy(ctx context.Context) (float64, error)
	Joined() bool
	Pan() (meter.PanInfo, bool)
	MeterAddr() (netip.Addr, bool)
}

// App encapsulates the daemon's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	model  *config.Model
	log    *readings.Log

	// newMeter builds the client; tests swap in a scripted one.
	newMeter func(ctx context.Context) (meterClient, error)

	mu     sync.RWMutex
	client meterClient
	repo   *store.ReadingRepo
	server *statusServer
}

// New resolves the configuration and builds the daemon. Unlike a missing
// meter, a bad config is not recoverable, so it surfaces here as an error
// before anything is opened.
func New(outW io.Writer, cfg *Config) (*App, error) {
	model, err := config.Load(context.Background(), cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg.Overrides.Apply(model)
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := model.ValidateCredentials(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		outW:   outW,
		logger: newLogger(model.Log.Level, model.Log.Format, outW),
		model:  model,
		log:    readings.NewLog(readings.DefaultCapacity),
	}
	a.newMeter = a.openMeter
	a.logger.Debug("logger configured", "level", model.Log.Level, "format", model.Log.Format)
	return a, nil
}

// openMeter opens the real serial port and wraps it in a client.
func (a *App) openMeter(ctx context.Context) (meterClient, error) {
	logger := ctxlog.FromContext(ctx)
	conn, err := serial.Open(a.model.Device.Port, a.model.Device.Baud, logger.With("component", "serial"))
	if err != nil {
		return nil, fmt.Errorf("open serial port: %w", err)
	}
	return meter.NewClient(conn, meter.Config{
		JoinTimeout: a.model.Meter.JoinTimeout,
		ReadTimeout: a.model.Meter.ReadTimeout,
	}), nil
}

// Readings exposes the in-memory log. This is primarily for testing.
func (a *App) Readings() *readings.Log {
	return a.log
}

func (a *App) setClient(c meterClient) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = c
}

func (a *App) currentClient() meterClient {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}
