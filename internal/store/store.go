// Package store persists readings to PostgreSQL. It is optional: the daemon
// runs without it when no DSN is configured.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mkobari/skmeterd/internal/readings"
)

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

// Open connects to PostgreSQL and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("missing DSN")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "unwrap sql.DB")
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// Close releases the connection pool.
func (d *DB) Close() error { return d.sql.Close() }

// Gorm exposes the underlying handle for tests.
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// ReadingRepo stores and queries meter readings.
type ReadingRepo struct {
	db *DB
}

// NewReadingRepo builds a repo over an open DB.
func NewReadingRepo(db *DB) *ReadingRepo {
	return &ReadingRepo{db: db}
}

// Insert writes one reading.
func (r *ReadingRepo) Insert(ctx context.Context, reading readings.Reading) error {
	err := r.db.gorm.WithContext(ctx).Exec(
		`INSERT INTO readings(id, taken_at, watts, cumulative_kwh) VALUES(?,?,?,?)`,
		reading.ID, reading.TakenAt, reading.Watts, reading.CumulativeKWh,
	).Error
	return errors.Wrap(err, "insert reading")
}

// Recent returns up to limit readings, newest first.
func (r *ReadingRepo) Recent(ctx context.Context, limit int) ([]readings.Reading, error) {
	rows, err := r.db.gorm.WithContext(ctx).Raw(
		`SELECT id, taken_at, watts, cumulative_kwh FROM readings ORDER BY taken_at DESC LIMIT ?`,
		limit,
	).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "query readings")
	}
	defer rows.Close()

	var out []readings.Reading
	for rows.Next() {
		var rec readings.Reading
		if err := rows.Scan(&rec.ID, &rec.TakenAt, &rec.Watts, &rec.CumulativeKWh); err != nil {
			return nil, errors.Wrap(err, "scan reading")
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate readings")
}
