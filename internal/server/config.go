// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// PricingConfig declares the payment terms the issue endpoint enforces.
// When enabled, issue requests without a payment block are answered with
// HTTP 402 carrying these terms.
type PricingConfig struct {
	Enabled  bool     `yaml:"enabled" json:"-"`
	Price    string   `yaml:"price" json:"price,omitempty"`
	Currency string   `yaml:"currency" json:"currency,omitempty"`
	Rails    []string `yaml:"rails" json:"rails,omitempty"`
}

// Config is the receipts service configuration.
type Config struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string `yaml:"addr"`
	// KeysFile is the path to the JSON key store.
	KeysFile string `yaml:"keys_file"`
	// DefaultKid selects the signing key for issued receipts.
	DefaultKid string `yaml:"default_kid"`

	// LogLevel and LogFormat configure the service logger.
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// RateRPS and RateBurst bound per-client request rates. RateRPS <= 0
	// disables limiting.
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`

	// BulkLimit caps the batch size of one bulk-verify request.
	BulkLimit int `yaml:"bulk_limit"`

	// Pricing is the payment policy for issuance.
	Pricing PricingConfig `yaml:"pricing"`
}

// LoadConfig reads service configuration from an optional YAML file, with
// PEAC_-prefixed environment variables taking precedence. An empty path
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("addr", ":3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("rate_rps", 50.0)
	v.SetDefault("rate_burst", 100)
	v.SetDefault("bulk_limit", 1000)

	v.SetEnvPrefix("PEAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Addr:       v.GetString("addr"),
		KeysFile:   v.GetString("keys_file"),
		DefaultKid: v.GetString("default_kid"),
		LogLevel:   v.GetString("log_level"),
		LogFormat:  v.GetString("log_format"),
		RateRPS:    v.GetFloat64("rate_rps"),
		RateBurst:  v.GetInt("rate_burst"),
		BulkLimit:  v.GetInt("bulk_limit"),
		Pricing: PricingConfig{
			Enabled:  v.GetBool("pricing.enabled"),
			Price:    v.GetString("pricing.price"),
			Currency: v.GetString("pricing.currency"),
			Rails:    v.GetStringSlice("pricing.rails"),
		},
	}
	if cfg.BulkLimit <= 0 {
		cfg.BulkLimit = 1000
	}
	return cfg, nil
}
