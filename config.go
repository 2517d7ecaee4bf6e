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

package condor

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/condor/facility"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultRosterInterval     = 4 * time.Hour
	DefaultRosterStartDelay   = 10 * time.Second
	DefaultActivityInterval   = 12 * time.Hour
	DefaultActivityStartDelay = 60 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
)

type Config struct {
	promRegistry   prometheus.Registerer
	logger         *slog.Logger
	facilityConfig *facility.Config
	dataDir        string
	vatusaURL      string
	vatsimURL      string
	// Sync loop timing. The start delays offset the two loops so they
	// don't collide at boot.
	rosterInterval     time.Duration
	rosterStartDelay   time.Duration
	activityInterval   time.Duration
	activityStartDelay time.Duration
	activityThrottle   time.Duration
	lookbackMonths     int
	tracing            bool
	tracingStdout      bool
	shutdownTimeout    time.Duration
}

// ConfigOptionFunc is a type that represents functions that modify the Sync config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new condor config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:             slog.New(slog.NewJSONHandler(io.Discard, nil)),
		rosterInterval:     DefaultRosterInterval,
		rosterStartDelay:   DefaultRosterStartDelay,
		activityInterval:   DefaultActivityInterval,
		activityStartDelay: DefaultActivityStartDelay,
		shutdownTimeout:    DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *Config) validate() error {
	if c.facilityConfig == nil {
		return errors.New("no facility config defined")
	}
	return c.facilityConfig.Validate()
}

// WithFacilityConfig specifies the facility.Config to sync against. This is required
func WithFacilityConfig(facilityConfig *facility.Config) ConfigOptionFunc {
	return func(c *Config) {
		c.facilityConfig = facilityConfig
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithVatusaURL overrides the base URL for the roster source API
func WithVatusaURL(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.vatusaURL = url
	}
}

// WithVatsimURL overrides the base URL for the activity source API
func WithVatsimURL(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.vatsimURL = url
	}
}

// WithRosterInterval specifies the time between roster reconciliation passes. The default is 4 hours
func WithRosterInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		if interval > 0 {
			c.rosterInterval = interval
		}
	}
}

// WithRosterStartDelay specifies the delay before the first roster pass. The default is 10 seconds
func WithRosterStartDelay(delay time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.rosterStartDelay = delay
	}
}

// WithActivityInterval specifies the time between activity aggregation passes. The default is 12 hours
func WithActivityInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		if interval > 0 {
			c.activityInterval = interval
		}
	}
}

// WithActivityStartDelay specifies the delay before the first activity pass. The default is 60 seconds
func WithActivityStartDelay(delay time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.activityStartDelay = delay
	}
}

// WithActivityThrottle specifies the pause between controllers within an activity pass. Zero uses the default;
// the throttle itself is always present
func WithActivityThrottle(throttle time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.activityThrottle = throttle
	}
}

// WithLookbackMonths specifies how many months of session history are fetched per controller. The default is 5
func WithLookbackMonths(months int) ConfigOptionFunc {
	return func(c *Config) {
		c.lookbackMonths = months
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
