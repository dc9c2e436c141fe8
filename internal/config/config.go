// Package config содержит логику чтения конфигурации сервиса qbay.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress      = "localhost:8080"
	defaultShutdownTimeout = 5 * time.Second
)

// Config содержит параметры конфигурации сервиса qbay.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	SecretKey   string `env:"SECRET_KEY"`
	// TransferBalance включает перевод цены от покупателя продавцу при покупке.
	TransferBalance bool
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// envOnly содержит переменные, у которых нужно отличать «не задано» от нулевого значения.
type envOnly struct {
	TransferBalance *bool `env:"PURCHASE_TRANSFER_BALANCE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	var extra envOnly
	if err := env.Parse(&extra); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage when empty")
	flag.StringVar(&cfg.SecretKey, "s", "", "auth cookie signing key")
	flag.BoolVar(&cfg.TransferBalance, "t", true, "transfer price from buyer to seller on purchase")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "graceful shutdown timeout")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.SecretKey != "" {
		cfg.SecretKey = fromEnv.SecretKey
	}
	if fromEnv.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = fromEnv.ShutdownTimeout
	}
	if extra.TransferBalance != nil {
		cfg.TransferBalance = *extra.TransferBalance
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	return cfg, nil
}
