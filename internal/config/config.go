// Copyright 2025 Blink Labs Software
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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "condor.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	FacilityConfig     string `yaml:"facilityConfig"                                  split_words:"true"`
	DatabasePath       string `yaml:"databasePath"                                    split_words:"true"`
	VatusaURL          string `yaml:"vatusaUrl"          envconfig:"VATUSA_URL"`
	VatsimURL          string `yaml:"vatsimUrl"          envconfig:"VATSIM_URL"`
	RosterInterval     string `yaml:"rosterInterval"                                  split_words:"true"`
	RosterStartDelay   string `yaml:"rosterStartDelay"                                split_words:"true"`
	ActivityInterval   string `yaml:"activityInterval"                                split_words:"true"`
	ActivityStartDelay string `yaml:"activityStartDelay"                              split_words:"true"`
	ActivityThrottle   string `yaml:"activityThrottle"                                split_words:"true"`
	ShutdownTimeout    string `yaml:"shutdownTimeout"                                 split_words:"true"`
	LookbackMonths     int    `yaml:"lookbackMonths"                                  split_words:"true"`
	MetricsPort        uint   `yaml:"metricsPort"                                     split_words:"true"`
	Tracing            bool   `yaml:"tracing"`
	TracingStdout      bool   `yaml:"tracingStdout"                                   split_words:"true"`
	Debug              bool   `yaml:"debug"`
}

var globalConfig = &Config{
	FacilityConfig:     "facility.yaml",
	DatabasePath:       ".condor",
	VatusaURL:          "",
	VatsimURL:          "",
	RosterInterval:     "4h",
	RosterStartDelay:   "10s",
	ActivityInterval:   "12h",
	ActivityStartDelay: "60s",
	ActivityThrottle:   "1s",
	ShutdownTimeout:    DefaultShutdownTimeout,
	LookbackMonths:     0,
	MetricsPort:        12798,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.condor/condor.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".condor", "condor.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/condor/condor.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/condor/condor.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Overlay config values onto existing defaults
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process environment variables
	err := envconfig.Process("condor", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Validate durations up front so a bad value fails at startup
	for _, item := range []struct {
		name  string
		value string
	}{
		{"rosterInterval", globalConfig.RosterInterval},
		{"rosterStartDelay", globalConfig.RosterStartDelay},
		{"activityInterval", globalConfig.ActivityInterval},
		{"activityStartDelay", globalConfig.ActivityStartDelay},
		{"activityThrottle", globalConfig.ActivityThrottle},
		{"shutdownTimeout", globalConfig.ShutdownTimeout},
	} {
		if item.value == "" {
			continue
		}
		if _, err := time.ParseDuration(item.value); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", item.name, err)
		}
	}

	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Duration returns the parsed duration for a validated config value,
// falling back to def when the value is empty
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
