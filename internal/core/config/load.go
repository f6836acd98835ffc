package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Session.PoolFresh == 0 {
		cfg.Session.PoolFresh = 10
	}
	if cfg.Failover.StrictFallback == 0 {
		cfg.Failover.StrictFallback = 5
	}
	if cfg.Failover.PrimaryPool == 0 {
		cfg.Failover.PrimaryPool = 5
	}
	if cfg.Failover.BackupServers == 0 {
		cfg.Failover.BackupServers = 2
	}
	if cfg.Failover.BackupPool == 0 {
		cfg.Failover.BackupPool = 3
	}
	if cfg.Admission.Cooldown == 0 {
		cfg.Admission.Cooldown = 2 * time.Second
	}
	if cfg.Admission.MaxRetries <= 0 {
		cfg.Admission.MaxRetries = 3
	}
	if cfg.Admission.Capacity == 0 {
		cfg.Admission.Capacity = 1
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 120 * time.Second
	}
}
