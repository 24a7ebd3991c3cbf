// Package config loads the node configuration. The recognized options
// cover the server bind address, the client's transport knobs, the registry
// ledger and keystore locations, and the hardening switches; everything
// else is fixed policy.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenHost string `yaml:"listenHost"`
	ListenPort int    `yaml:"listenPort"`

	// AdvertiseEndpoint is the multiaddr published in the registry for this
	// peer; empty derives it from the listen address.
	AdvertiseEndpoint string `yaml:"advertiseEndpoint"`

	RegistryPath string `yaml:"registryPath"`
	KeystorePath string `yaml:"keystorePath"`

	// Framing is "legacy" (reference one-shot wire format) or "length".
	Framing string `yaml:"framing"`

	ReadTimeout   time.Duration `yaml:"readTimeout"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	MaxEnvelopeKB int           `yaml:"maxEnvelopeKB"`

	// Admission hardening; zero values keep the reference's unbounded
	// accept loop.
	MaxInFlight int     `yaml:"maxInFlight"`
	AcceptRPS   float64 `yaml:"acceptRPS"`
	AcceptBurst int     `yaml:"acceptBurst"`

	MetricsEnabled bool   `yaml:"metricsEnabled"`
	MetricsAddr    string `yaml:"metricsAddr"`
	LogLevel       string `yaml:"logLevel"`
}

func Default() Config {
	return Config{
		ListenHost:    "127.0.0.1",
		ListenPort:    9998,
		RegistryPath:  "dids.json",
		KeystorePath:  "identity.aegisks",
		Framing:       "legacy",
		ReadTimeout:   30 * time.Second,
		DialTimeout:   5 * time.Second,
		WriteTimeout:  10 * time.Second,
		MaxEnvelopeKB: 1024,
		MetricsAddr:   "127.0.0.1:9464",
		LogLevel:      "info",
	}
}

// Load reads a yaml config file; an empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return normalize(cfg), nil
}

func normalize(cfg Config) Config {
	def := Default()
	if cfg.ListenHost == "" {
		cfg.ListenHost = def.ListenHost
	}
	if cfg.ListenPort <= 0 || cfg.ListenPort > 65535 {
		cfg.ListenPort = def.ListenPort
	}
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = def.RegistryPath
	}
	if cfg.KeystorePath == "" {
		cfg.KeystorePath = def.KeystorePath
	}
	if cfg.Framing == "" {
		cfg.Framing = def.Framing
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxEnvelopeKB <= 0 {
		cfg.MaxEnvelopeKB = def.MaxEnvelopeKB
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = def.MetricsAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	return cfg
}

// ListenAddr joins the configured host and port for net.Listen.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.ListenPort))
}
