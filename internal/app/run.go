package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkobari/skmeterd/internal/ctxlog"
	"github.com/mkobari/skmeterd/internal/echonet"
	"github.com/mkobari/skmeterd/internal/meter"
	"github.com/mkobari/skmeterd/internal/readings"
	"github.com/mkobari/skmeterd/internal/store"
)

// Run executes the daemon until the context is canceled: storage, status
// server, serial client, PANA join, then the polling loop.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("skmeterd starting", "version", Version)

	if dsn := a.model.Storage.DSN; dsn != "" {
		db, err := a.openStorage(ctx, dsn)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	if port := a.model.Status.Port; port > 0 {
		a.server = a.startStatusServer(ctx, port)
		defer func() {
			if err := a.server.stop(); err != nil {
				a.logger.Error("status server shutdown failed", "error", err)
			}
		}()
	}

	cli, err := a.newMeter(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()
	cli.Start(ctx)
	a.setClient(cli)

	firmware, err := cli.Version(ctx)
	if err != nil {
		return fmt.Errorf("query module version: %w", err)
	}
	a.logger.Info("Wi-SUN module ready", "firmware", firmware)

	if err := cli.Join(ctx, a.model.RouteB.ID, a.model.RouteB.Password); err != nil {
		return fmt.Errorf("join meter PAN: %w", err)
	}

	pm, err := cli.PropertyMap(ctx)
	if err != nil {
		return fmt.Errorf("fetch property map: %w", err)
	}
	hasCumulative := pm.Has(echonet.EPCCumulativeEnergy)
	a.logger.Info("meter properties", "epcs", pm.String(), "cumulative", hasCumulative)

	ticker := time.NewTicker(a.model.Meter.Interval)
	defer ticker.Stop()
	for {
		a.poll(ctx, cli, hasCumulative)
		select {
		case <-ctx.Done():
			a.logger.Info("skmeterd stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// openStorage migrates the schema and opens the reading repository.
func (a *App) openStorage(ctx context.Context, dsn string) (*store.DB, error) {
	migrator, err := store.NewMigrator(dsn)
	if err != nil {
		return nil, err
	}
	switch err := migrator.Up(ctx); {
	case errors.Is(err, store.ErrNoChange):
		a.logger.Debug("schema already up to date")
	case err != nil:
		return nil, fmt.Errorf("migrate schema: %w", err)
	default:
		a.logger.Info("schema migrated")
	}

	db, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.repo = store.NewReadingRepo(db)
	return db, nil
}

// poll takes one sample. Read failures are logged and skipped so a flaky
// link cannot take the daemon down; an expired PANA session triggers a
// rejoin instead of a read.
func (a *App) poll(ctx context.Context, cli meterClient, hasCumulative bool) {
	watts, err := cli.InstantPower(ctx)
	if errors.Is(err, meter.ErrSessionExpired) {
		a.logger.Warn("PANA session expired, rejoining")
		if err := cli.Join(ctx, a.model.RouteB.ID, a.model.RouteB.Password); err != nil {
			a.logger.Warn("rejoin failed", "error", err)
		}
		return
	}
	if err != nil {
		a.logger.Warn("failed to retrieve power consumption", "error", err)
		return
	}

	r := readings.Reading{TakenAt: time.Now(), Watts: watts}
	if hasCumulative {
		if kwh, err := cli.CumulativeEnergy(ctx); err != nil {
			a.logger.Warn("failed to retrieve cumulative energy", "error", err)
		} else {
			r.CumulativeKWh = &kwh
		}
	}

	stored := a.log.Record(r)
	if stored.CumulativeKWh != nil {
		a.logger.Info("meter reading", "watts", stored.Watts, "cumulative_kwh", *stored.CumulativeKWh)
	} else {
		a.logger.Info("meter reading", "watts", stored.Watts)
	}

	if a.repo != nil {
		if err := a.repo.Insert(ctx, stored); err != nil {
			a.logger.Warn("failed to persist reading", "error", err)
		}
	}
}
