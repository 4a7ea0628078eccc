package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds relay server configuration values.
type Config struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	AdminAddr       string        `mapstructure:"admin_addr" yaml:"admin_addr"`
	DatabasePath    string        `mapstructure:"database_path" yaml:"database_path"`
	MaxSessions     int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	MaxFrameBytes   int           `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	SendQueueSize   int           `mapstructure:"send_queue_size" yaml:"send_queue_size"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
// IdleTimeout of zero disables the idle read deadline; AdminAddr of ""
// disables the admin HTTP listener.
func Default() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            22345,
		DatabasePath:    "messages.db",
		MaxSessions:     256,
		MaxFrameBytes:   4 << 20,
		SendQueueSize:   64,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// ListenAddr returns the host:port pair the relay listens on.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.AdminAddr != "" {
		c.AdminAddr = other.AdminAddr
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.MaxSessions != 0 {
		c.MaxSessions = other.MaxSessions
	}
	if other.MaxFrameBytes != 0 {
		c.MaxFrameBytes = other.MaxFrameBytes
	}
	if other.SendQueueSize != 0 {
		c.SendQueueSize = other.SendQueueSize
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
