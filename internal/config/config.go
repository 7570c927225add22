// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

// Package config loads runtime configuration for the redevelopment service.
//
// Values are layered with koanf: built-in defaults, then an optional YAML
// file, then environment variables. Environment variables use the section
// name as a prefix (VOTING_MINIMUM_APPROVAL_PERCENTAGE maps to
// voting.minimum_approval_percentage). A handful of short aliases such as
// JWT_SECRET and DUCKDB_PATH are also recognised.
package config

import (
	"net"
	"strconv"
	"time"
)

// ConfigPathEnvVar names the environment variable that points at a YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/milkat/config.yaml",
}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Voting   VotingConfig   `koanf:"voting"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Outbox   OutboxConfig   `koanf:"outbox"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings. Path may be ":memory:".
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SecurityConfig holds authentication and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// VotingConfig controls the voting workflow and its background scheduler.
type VotingConfig struct {
	// MinimumApprovalPercentage is the single approval threshold applied to
	// every project that does not carry its own value. Default 51.
	MinimumApprovalPercentage int `koanf:"minimum_approval_percentage"`

	// DefaultSession is used when a vote omits its session label.
	DefaultSession string `koanf:"default_session"`

	SchedulerEnabled      bool          `koanf:"scheduler_enabled"`
	DeadlineScanInterval  time.Duration `koanf:"deadline_scan_interval"`
	MajoritySweepInterval time.Duration `koanf:"majority_sweep_interval"`
	EvaluationTimeout     time.Duration `koanf:"evaluation_timeout"`

	// ReminderWindow is how long before the deadline non-voters are reminded.
	// Zero disables reminders.
	ReminderWindow time.Duration `koanf:"reminder_window"`

	// NotificationTTL sets expiresAt on persisted notifications. Zero keeps
	// them forever.
	NotificationTTL time.Duration `koanf:"notification_ttl"`
}

// RealtimeConfig controls websocket fan-out and the cross-instance relay.
type RealtimeConfig struct {
	// Bus is "local" (single instance, in-process) or "nats".
	Bus                string        `koanf:"bus"`
	NATSURL            string        `koanf:"nats_url"`
	EmbeddedServer     bool          `koanf:"embedded_server"`
	EmbeddedPort       int           `koanf:"embedded_port"`
	Topic              string        `koanf:"topic"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	ClientSendBuffer   int           `koanf:"client_send_buffer"`
	ClientMessageRate  float64       `koanf:"client_message_rate"`
	ClientMessageBurst int           `koanf:"client_message_burst"`
}

// OutboxConfig controls the Badger-backed notification outbox.
type OutboxConfig struct {
	Path          string        `koanf:"path"`
	InMemory      bool          `koanf:"in_memory"`
	SyncWrites    bool          `koanf:"sync_writes"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxRetries    int           `koanf:"max_retries"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/milkat.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			SessionTimeout:    24 * time.Hour,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Voting: VotingConfig{
			MinimumApprovalPercentage: 51,
			DefaultSession:            "proposal_selection",
			SchedulerEnabled:          true,
			DeadlineScanInterval:      5 * time.Minute,
			MajoritySweepInterval:     15 * time.Minute,
			EvaluationTimeout:         30 * time.Second,
			ReminderWindow:            24 * time.Hour,
			NotificationTTL:           90 * 24 * time.Hour,
		},
		Realtime: RealtimeConfig{
			Bus:                "local",
			NATSURL:            "nats://127.0.0.1:4222",
			EmbeddedPort:       4222,
			Topic:              "milkat.realtime",
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			ClientSendBuffer:   64,
			ClientMessageRate:  5,
			ClientMessageBurst: 10,
		},
		Outbox: OutboxConfig{
			Path:          "/data/outbox",
			SyncWrites:    true,
			RetryInterval: 30 * time.Second,
			MaxRetries:    10,
		},
	}
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
