package config

import (
	"time"

	"github.com/vietddude/genrelay/internal/core/domain"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Username  string                               `yaml:"username"`
	Session   SessionConfig                        `yaml:"session"`
	Services  map[domain.ServiceType]ServiceConfig `yaml:"services"`
	Failover  FailoverConfig                       `yaml:"failover"`
	Admission AdmissionConfig                      `yaml:"admission"`
	Redis     RedisConfig                          `yaml:"redis"`
	Database  DatabaseConfig                       `yaml:"database"`
	HTTP      HTTPConfig                           `yaml:"http"`
	Logging   LoggingConfig                        `yaml:"logging"`
}

// SessionConfig locates the locally cached credential store.
type SessionConfig struct {
	Path      string `yaml:"path"`
	PoolFresh int    `yaml:"pool_fresh"` // how many of the newest pool tokens are eligible
}

// ServiceConfig holds the fixed server set for one service type.
type ServiceConfig struct {
	Default string         `yaml:"default"` // name of the default server
	Servers []ServerConfig `yaml:"servers"`
}

// ServerConfig is one backend proxy entry.
type ServerConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FailoverConfig tunes the attempt plan. The exact counts are deployment
// configuration, not contracts.
type FailoverConfig struct {
	StrictFallback int `yaml:"strict_fallback"` // pool fallbacks appended in strict mode
	PrimaryPool    int `yaml:"primary_pool"`    // pool sample on the current server
	BackupServers  int `yaml:"backup_servers"`  // alternate servers to include
	BackupPool     int `yaml:"backup_pool"`     // pool sample per alternate server
}

// AdmissionConfig tunes the generation-slot gate.
type AdmissionConfig struct {
	Cooldown   time.Duration `yaml:"cooldown"`
	MaxRetries int           `yaml:"max_retries"`
	Capacity   int           `yaml:"capacity"` // concurrent slots per server window
}

// RedisConfig holds the slot-counting service connection.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// DatabaseConfig holds the failure-log store connection.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// HTTPConfig tunes the dispatch transport.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}
