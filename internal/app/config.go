package app

import (
	"time"

	"github.com/mkobari/skmeterd/internal/config"
)

// Config is the CLI's contribution to the configuration: where the file
// lives and which values flags explicitly override.
type Config struct {
	ConfigPath string
	Overrides  Overrides
}

// Overrides carries flag values. Nil fields were not set on the command
// line and leave the file (or default) value alone.
type Overrides struct {
	DevicePort *string
	Baud       *int
	Interval   *time.Duration
	StatusPort *int
	LogLevel   *string
	LogFormat  *string
	DSN        *string
}

// Apply lays the explicitly set flags over the loaded model.
func (o Overrides) Apply(m *config.Model) {
	if o.DevicePort != nil {
		m.Device.Port = *o.DevicePort
	}
	if o.Baud != nil {
		m.Device.Baud = *o.Baud
	}
	if o.Interval != nil {
		m.Meter.Interval = *o.Interval
	}
	if o.StatusPort != nil {
		m.Status.Port = *o.StatusPort
	}
	if o.LogLevel != nil {
		m.Log.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		m.Log.Format = *o.LogFormat
	}
	if o.DSN != nil {
		m.Storage.DSN = *o.DSN
	}
}
