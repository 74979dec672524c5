package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/mkobari/skmeterd/internal/ctxlog"
)

// fileRoot mirrors the file's block structure; every block is optional.
type fileRoot struct {
	Device  *deviceBlock  `hcl:"device,block"`
	Meter   *meterBlock   `hcl:"meter,block"`
	RouteB  *routeBBlock  `hcl:"route_b,block"`
	Storage *storageBlock `hcl:"storage,block"`
	Status  *statusBlock  `hcl:"status,block"`
	Log     *logBlock     `hcl:"log,block"`
}

type deviceBlock struct {
	Port string `hcl:"port,optional"`
	Baud int    `hcl:"baud,optional"`
}

// Durations arrive as strings and are parsed at translate time.
type meterBlock struct {
	Interval    string `hcl:"interval,optional"`
	JoinTimeout string `hcl:"join_timeout,optional"`
	ReadTimeout string `hcl:"read_timeout,optional"`
}

type routeBBlock struct {
	ID       string `hcl:"id,optional"`
	Password string `hcl:"password,optional"`
}

type storageBlock struct {
	DSN string `hcl:"dsn,optional"`
}

// Port is a pointer so an explicit `port = 0` (disable) is distinguishable
// from an absent attribute.
type statusBlock struct {
	Port *int `hcl:"port,optional"`
}

type logBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// envFunc exposes env("NAME") to HCL expressions, so credentials never have
// to be written into the file.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

// Load reads and resolves the configuration. An empty path yields pure
// defaults; a path that does not exist is an error. The WISUN_BID and
// WISUN_PASSWORD environment variables override the file's credentials
// either way.
func Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := Default()

	if path != "" {
		logger.Debug("loading config file", "path", path)
		if err := loadFile(path, model); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("no config file, using defaults")
	}

	if v := os.Getenv(EnvRouteBID); v != "" {
		model.RouteB.ID = v
	}
	if v := os.Getenv(EnvRouteBPassword); v != "" {
		model.RouteB.Password = v
	}

	return model, nil
}

func loadFile(path string, model *Model) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse %s: %w", path, diags)
	}

	evalCtx := &hcl.EvalContext{
		Functions: map[string]function.Function{"env": envFunc},
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return fmt.Errorf("decode %s: %w", path, diags)
	}

	if b := root.Device; b != nil {
		if b.Port != "" {
			model.Device.Port = b.Port
		}
		if b.Baud != 0 {
			model.Device.Baud = b.Baud
		}
	}
	if b := root.Meter; b != nil {
		if err := setDuration(&model.Meter.Interval, "interval", b.Interval); err != nil {
			return err
		}
		if err := setDuration(&model.Meter.JoinTimeout, "join_timeout", b.JoinTimeout); err != nil {
			return err
		}
		if err := setDuration(&model.Meter.ReadTimeout, "read_timeout", b.ReadTimeout); err != nil {
			return err
		}
	}
	if b := root.RouteB; b != nil {
		if b.ID != "" {
			model.RouteB.ID = b.ID
		}
		if b.Password != "" {
			model.RouteB.Password = b.Password
		}
	}
	if b := root.Storage; b != nil && b.DSN != "" {
		model.Storage.DSN = b.DSN
	}
	if b := root.Status; b != nil && b.Port != nil {
		model.Status.Port = *b.Port
	}
	if b := root.Log; b != nil {
		if b.Level != "" {
			model.Log.Level = b.Level
		}
		if b.Format != "" {
			model.Log.Format = b.Format
		}
	}
	return nil
}

func setDuration(dst *time.Duration, name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("meter %s: %w", name, err)
	}
	*dst = d
	return nil
}
