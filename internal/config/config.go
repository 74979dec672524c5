// Package config loads the daemon's HCL configuration file into a
// format-agnostic model, with environment variable overrides for the
// Route-B credentials.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Environment variables that override file values. The credentials commonly
// live outside the config file.
const (
	EnvRouteBID       = "WISUN_BID"
	EnvRouteBPassword = "WISUN_PASSWORD"
)

// Model is the fully resolved configuration.
type Model struct {
	Device  Device
	Meter   Meter
	RouteB  RouteB
	Storage Storage
	Status  Status
	Log     Log
}

// Device is the serial port the Wi-SUN module hangs off.
type Device struct {
	Port string
	Baud int
}

// Meter holds the polling cadence and the client's timeouts.
type Meter struct {
	Interval    time.Duration
	JoinTimeout time.Duration
	ReadTimeout time.Duration
}

// RouteB is the meter operator's credential pair.
type RouteB struct {
	ID       string
	Password string
}

// Storage configures optional PostgreSQL persistence; an empty DSN keeps it
// off.
type Storage struct {
	DSN string
}

// Status configures the local HTTP endpoint; port 0 disables it.
type Status struct {
	Port int
}

// Log configures the slog handler.
type Log struct {
	Level  string
	Format string
}

// Default returns the configuration a zero-length file would produce.
func Default() *Model {
	return &Model{
		Device: Device{Port: "/dev/ttyS0", Baud: 115200},
		Meter: Meter{
			Interval:    10 * time.Second,
			JoinTimeout: 60 * time.Second,
			ReadTimeout: 15 * time.Second,
		},
		Status: Status{Port: 8087},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// Validate checks the resolved model. Credentials are checked separately so
// paths like -version work without them.
func (m *Model) Validate() error {
	if m.Device.Port == "" {
		return errors.New("device port must not be empty")
	}
	if m.Device.Baud <= 0 {
		return fmt.Errorf("device baud must be positive, got %d", m.Device.Baud)
	}
	if m.Meter.Interval < time.Second {
		return fmt.Errorf("meter interval must be at least 1s, got %s", m.Meter.Interval)
	}
	switch m.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", m.Log.Level)
	}
	switch m.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", m.Log.Format)
	}
	if m.Status.Port < 0 || m.Status.Port > 65535 {
		return fmt.Errorf("status port out of range: %d", m.Status.Port)
	}
	return nil
}

// ValidateCredentials checks that the Route-B pair is present.
func (m *Model) ValidateCredentials() error {
	if m.RouteB.ID == "" {
		return fmt.Errorf("route-b id is required (route_b block or %s)", EnvRouteBID)
	}
	if m.RouteB.Password == "" {
		return fmt.Errorf("route-b password is required (route_b block or %s)", EnvRouteBPassword)
	}
	return nil
}
