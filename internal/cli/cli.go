package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mkobari/skmeterd/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags override file values only when explicitly set.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("skmeterd", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
skmeterd - Wi-SUN Route-B smart meter reading daemon.

Usage:
  skmeterd [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to an .hcl configuration file. Optional; without one the daemon
    runs on defaults plus the WISUN_BID / WISUN_PASSWORD environment.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the configuration file.")
	portFlag := flagSet.String("port", "/dev/ttyS0", "Serial device of the Wi-SUN module.")
	baudFlag := flagSet.Int("baud", 115200, "Serial baud rate.")
	intervalFlag := flagSet.Duration("interval", 10*time.Second, "Polling interval.")
	statusPortFlag := flagSet.Int("status-port", 8087, "Port for the HTTP status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	dsnFlag := flagSet.String("dsn", "", "PostgreSQL DSN for reading persistence. Empty is disabled.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *versionFlag {
		fmt.Fprintln(output, "skmeterd", app.Version)
		return nil, true, nil
	}

	path := *configFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	// Only flags the user actually set become overrides; flag defaults must
	// not shadow the config file.
	config := &app.Config{ConfigPath: path}
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			config.Overrides.DevicePort = portFlag
		case "baud":
			config.Overrides.Baud = baudFlag
		case "interval":
			config.Overrides.Interval = intervalFlag
		case "status-port":
			config.Overrides.StatusPort = statusPortFlag
		case "log-level":
			config.Overrides.LogLevel = &logLevel
		case "log-format":
			config.Overrides.LogFormat = &logFormat
		case "dsn":
			config.Overrides.DSN = dsnFlag
		}
	})

	return config, false, nil
}
