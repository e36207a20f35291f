package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultServerURL = "http://localhost:8000/api"

type config struct {
	ServerURL string `yaml:"serverUrl"`
	DataDir   string `yaml:"dataDir"`
	LogLevel  string `yaml:"logLevel"`
}

// loadConfig reads the optional config file from the user config dir and
// fills in defaults for anything unset.
func loadConfig() (config, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return config{}, fmt.Errorf("error getting user config dir: %w", err)
	}

	cfg := config{
		ServerURL: defaultServerURL,
		DataDir:   filepath.Join(cfgDir, "cvchat"),
		LogLevel:  "info",
	}

	cfgFile, err := os.Open(filepath.Join(cfgDir, "cvchat", "config.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer cfgFile.Close()

	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(cfgDir, "cvchat")
	}
	return cfg, nil
}

// logger opens the log file in the data dir. The TUI owns the terminal, so
// logs never go to stdout.
func (c config) logger() (*slog.Logger, func(), error) {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("error creating data directory: %w", err)
	}

	logFile, err := os.OpenFile(
		filepath.Join(c.DataDir, "cvchat.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening log file: %w", err)
	}

	level := slog.LevelInfo
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = logFile.Close() }, nil
}

func (c config) sessionDBPath() string {
	return filepath.Join(c.DataDir, "session.db")
}
