// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database is the facility's local registry: persistent storage
// for controller and activity records backed by SQLite.
package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/condor/database/models"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Config describes how to open the registry database.
type Config struct {
	// DataDir is the directory holding the database file. Empty uses
	// an in-memory database, useful for testing.
	DataDir      string
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// Tracing enables the GORM OpenTelemetry plugin
	Tracing bool
}

// Database is the registry instance.
type Database struct {
	logger  *slog.Logger
	db      *gorm.DB
	metrics *databaseMetrics
	dataDir string
}

// New opens (or creates) the registry database and applies schema
// migrations.
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	var gormDb *gorm.DB
	var err error
	if cfg.DataDir == "" {
		// In-memory database when no data directory is specified.
		// cache=shared allows multiple connections to share the same
		// in-memory database
		gormDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(cfg.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(cfg.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dbPath := filepath.Join(
			cfg.DataDir,
			"registry.sqlite",
		)
		// WAL journal mode with normal sync
		connOpts := "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
		gormDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", dbPath, connOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	db := &Database{
		logger:  cfg.Logger,
		db:      gormDb,
		dataDir: cfg.DataDir,
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Tracing {
		if err := gormDb.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf(
				"failed to enable database tracing: %w",
				err,
			)
		}
	}
	for _, model := range models.MigrateModels {
		db.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := gormDb.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	if cfg.PromRegistry != nil {
		db.registerMetrics(cfg.PromRegistry)
	}
	return db, nil
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction() *Txn {
	return NewTxn(d)
}

// Close cleans up the database connection
func (d *Database) Close() error {
	sqlDb, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

// resolveDB returns the DB handle for the given transaction, or the
// base handle when txn is nil.
func (d *Database) resolveDB(txn *Txn) *gorm.DB {
	if txn != nil {
		return txn.db
	}
	return d.db
}

type databaseMetrics struct {
	controllerCount prometheus.GaugeFunc
	activityCount   prometheus.GaugeFunc
}

func (d *Database) registerMetrics(registry prometheus.Registerer) {
	d.metrics = &databaseMetrics{
		controllerCount: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "condor_registry_controllers",
				Help: "Number of controller records in the registry",
			},
			func() float64 {
				var count int64
				d.db.Model(&models.Controller{}).Count(&count)
				return float64(count)
			},
		),
		activityCount: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "condor_registry_activity_rows",
				Help: "Number of monthly activity rows in the registry",
			},
			func() float64 {
				var count int64
				d.db.Model(&models.Activity{}).Count(&count)
				return float64(count)
			},
		),
	}
	registry.MustRegister(
		d.metrics.controllerCount,
		d.metrics.activityCount,
	)
}
