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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/superdao/database/plugin"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "superdao.config"

const (
	DefaultStorePlugin     = "badger"
	DefaultShutdownTimeout = "30s"
)

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

type tempConfig struct {
	Config *Config        `yaml:"config,omitempty"`
	Store  map[string]any `yaml:"store,omitempty"`
}

type Config struct {
	StorePlugin     string `yaml:"storePlugin"     split_words:"true"`
	DataDir         string `yaml:"dataDir"         split_words:"true"`
	DeadlinePolicy  string `yaml:"deadlinePolicy"  split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	VotingPeriod    uint32 `yaml:"votingPeriod"    split_words:"true"`
	StartHeight     uint32 `yaml:"startHeight"     split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"     split_words:"true"`
	VoteThreshold   uint8  `yaml:"voteThreshold"   split_words:"true"`
	Tracing         bool   `yaml:"tracing"`
	TracingStdout   bool   `yaml:"tracingStdout"   split_words:"true"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		StorePlugin:     DefaultStorePlugin,
		DataDir:         ".superdao",
		DeadlinePolicy:  governance.DeadlineAfterExpiry.String(),
		ShutdownTimeout: DefaultShutdownTimeout,
		BindAddr:        "127.0.0.1",
		VoteThreshold:   2,
		VotingPeriod:    0,
		MetricsPort:     0,
	}
}

// Governance returns the engine configuration described by c
func (c *Config) Governance() (governance.Config, error) {
	policy, err := governance.ParseDeadlinePolicy(c.DeadlinePolicy)
	if err != nil {
		return governance.Config{}, err
	}
	ret := governance.Config{
		VoteThreshold:  c.VoteThreshold,
		VotingPeriod:   governance.BlockNumber(c.VotingPeriod),
		DeadlinePolicy: policy,
	}
	return ret, ret.Validate()
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout: %w", err)
	}
	return d, nil
}

// LoadConfig builds a Config from defaults, the YAML config file and the
// environment, in that order. Plugin options from the file's store section
// and from SUPERDAO_STORE_* variables are applied to the plugin registry
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.superdao/superdao.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".superdao", "superdao.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/superdao/superdao.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/superdao/superdao.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		if err := loadConfigFile(configFile, cfg); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process("superdao", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if _, err := cfg.Governance(); err != nil {
		return nil, err
	}
	if _, err := cfg.ShutdownTimeoutDuration(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(configFile string, cfg *Config) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil {
		// Overlay config values onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, cfg); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else {
		// Otherwise the whole file is the main config
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if tempCfg.Store == nil {
		return nil
	}
	// Extract plugin name if specified
	if pluginVal, ok := tempCfg.Store["plugin"]; ok {
		pluginName, ok := pluginVal.(string)
		if !ok {
			return fmt.Errorf("store plugin name must be a string, got %T", pluginVal)
		}
		cfg.StorePlugin = pluginName
		delete(tempCfg.Store, "plugin")
	}
	storeConfig := make(map[string]map[string]any)
	for k, v := range tempCfg.Store {
		val, ok := v.(map[string]any)
		if !ok {
			// Log skipped non-map config entries
			fmt.Fprintf(os.Stderr, "warning: skipping store config entry %q: expected map, got %T\n", k, v)
			continue
		}
		storeConfig[k] = val
	}
	if err := plugin.ProcessConfig(
		map[string]map[string]map[string]any{
			plugin.PluginTypeName(plugin.PluginTypeStore): storeConfig,
		},
	); err != nil {
		return fmt.Errorf("error processing plugin config: %w", err)
	}
	return nil
}
