package main

import (
	"fmt"
	"os"

	"seatflow/internal/shared/config"

	"gopkg.in/yaml.v3"
)

// overlay holds connection settings that take precedence over the environment.
// Operators keep one file per deployment instead of exporting variables.
type overlay struct {
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
	} `yaml:"redis"`

	Inventory struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"inventory"`

	Proxy struct {
		URL        string `yaml:"url"`
		SeatSource string `yaml:"seat_source"`
	} `yaml:"proxy"`

	Reconciliation struct {
		MaxAttempts int `yaml:"max_attempts"`
		BatchSize   int `yaml:"batch_size"`
	} `yaml:"reconciliation"`
}

func loadOverlay(path string) (*overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config overlay: %w", err)
	}
	return parseOverlay(data)
}

func parseOverlay(data []byte) (*overlay, error) {
	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse config overlay: %w", err)
	}
	return &o, nil
}

// apply copies every non-empty overlay value into cfg
func (o *overlay) apply(cfg *config.Config) {
	if o.Database.DSN != "" {
		cfg.Database.DSN = o.Database.DSN
	}
	if o.Redis.Addr != "" {
		cfg.Redis.Addr = o.Redis.Addr
	}
	if o.Redis.Password != "" {
		cfg.Redis.Password = o.Redis.Password
	}
	if o.Redis.DB != nil {
		cfg.Redis.DB = *o.Redis.DB
	}
	if o.Inventory.URL != "" {
		cfg.Inventory.BaseURL = o.Inventory.URL
	}
	if o.Inventory.Token != "" {
		cfg.Inventory.Token = o.Inventory.Token
	}
	if o.Proxy.URL != "" {
		cfg.Proxy.BaseURL = o.Proxy.URL
	}
	if o.Proxy.SeatSource != "" {
		cfg.Proxy.SeatSource = o.Proxy.SeatSource
	}
	if o.Reconciliation.MaxAttempts > 0 {
		cfg.Reconciliation.MaxAttempts = o.Reconciliation.MaxAttempts
	}
	if o.Reconciliation.BatchSize > 0 {
		cfg.Reconciliation.BatchSize = o.Reconciliation.BatchSize
	}
}
