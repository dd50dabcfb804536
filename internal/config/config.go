package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/jutt313/code-xi/internal/api"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Retry     RetryConfig     `toml:"retry"`
	Workers   WorkersConfig   `toml:"workers"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Oracle    OracleConfig    `toml:"oracle"`
}

type ServerConfig struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	DBPath string `toml:"db_path"`
}

type RetryConfig struct {
	Attempts int `toml:"attempts"`
	DelayMS  int `toml:"delay_ms"`
}

// WorkersConfig sets per-role concurrency. A zero value falls back to
// DefaultConcurrency so one role's backlog cannot starve another by accident.
type WorkersConfig struct {
	DefaultConcurrency int            `toml:"default_concurrency"`
	Concurrency        map[string]int `toml:"concurrency"`
}

type SchedulerConfig struct {
	// FailurePolicy is "resolve" (failed dependencies unblock dependents)
	// or "block".
	FailurePolicy string `toml:"failure_policy"`
}

type OracleConfig struct {
	Command []string `toml:"command"`
	Workdir string   `toml:"workdir"`
}

func Default() Config {
	return Config{
		Server:    ServerConfig{Host: api.DefaultHost, Port: api.DefaultPort, DBPath: filepath.ToSlash(filepath.Join(".codexi", "codexi.db"))},
		Retry:     RetryConfig{Attempts: 3, DelayMS: 1000},
		Workers:   WorkersConfig{DefaultConcurrency: 2, Concurrency: map[string]int{}},
		Scheduler: SchedulerConfig{FailurePolicy: "resolve"},
		Oracle:    OracleConfig{Command: []string{"echo", "oracle-stub"}},
	}
}

var ErrInvalid = errors.New("invalid config")

type LoadResult struct {
	Config     Config
	Found      bool
	Path       string
	ParseError error
}

func Load(root string) LoadResult {
	res := LoadResult{Config: Default()}
	path := filepath.Join(root, ".codexi", "config.toml")
	res.Path = path

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res
		}
		res.ParseError = err
		return res
	}

	res.Found = true
	var parsed Config
	if err := toml.Unmarshal(b, &parsed); err != nil {
		res.ParseError = fmt.Errorf("%w: %v", ErrInvalid, err)
		return res
	}

	res.Config = merge(Default(), parsed)
	return res
}

func merge(def Config, cfg Config) Config {
	// Server
	if cfg.Server.Host != "" {
		def.Server.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		def.Server.Port = cfg.Server.Port
	}
	if cfg.Server.DBPath != "" {
		def.Server.DBPath = cfg.Server.DBPath
	}
	// Retry
	if cfg.Retry.Attempts != 0 {
		def.Retry.Attempts = cfg.Retry.Attempts
	}
	if cfg.Retry.DelayMS != 0 {
		def.Retry.DelayMS = cfg.Retry.DelayMS
	}
	// Workers
	if cfg.Workers.DefaultConcurrency != 0 {
		def.Workers.DefaultConcurrency = cfg.Workers.DefaultConcurrency
	}
	if len(cfg.Workers.Concurrency) != 0 {
		def.Workers.Concurrency = cfg.Workers.Concurrency
	}
	// Scheduler
	if cfg.Scheduler.FailurePolicy != "" {
		def.Scheduler.FailurePolicy = cfg.Scheduler.FailurePolicy
	}
	// Oracle
	if len(cfg.Oracle.Command) != 0 {
		def.Oracle.Command = cfg.Oracle.Command
	}
	if cfg.Oracle.Workdir != "" {
		def.Oracle.Workdir = cfg.Oracle.Workdir
	}
	return def
}

// RoleConcurrency resolves the worker count for every registered role.
func (c Config) RoleConcurrency() map[api.AgentRole]int {
	out := make(map[api.AgentRole]int, len(api.Roles))
	for _, role := range api.Roles {
		n := c.Workers.DefaultConcurrency
		if v, ok := c.Workers.Concurrency[string(role)]; ok && v > 0 {
			n = v
		}
		out[role] = n
	}
	return out
}
