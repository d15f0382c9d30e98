// Package config loads spicesweep settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level settings file.
type Config struct {
	Simulator SimulatorConfig `yaml:"simulator"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Log       LogConfig       `yaml:"log"`
}

type SimulatorConfig struct {
	Executable string        `yaml:"executable"`
	Args       []string      `yaml:"args"`
	Wine       string        `yaml:"wine,omitempty"`
	WinePrefix string        `yaml:"wine_prefix,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
	// KeepLogs copies each run's log into this directory when set.
	KeepLogs string `yaml:"keep_logs,omitempty"`
}

type SweepConfig struct {
	Workers int     `yaml:"workers"`
	Probes  []Probe `yaml:"probes,omitempty"`
}

// Probe names a series to collect from every result, e.g. {out, node}.
type Probe struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() Config {
	return Config{
		Simulator: SimulatorConfig{
			Executable: "LTspice",
			Args:       []string{"-b", "-ascii", "{netlist}"},
			Timeout:    5 * time.Minute,
		},
		Sweep: SweepConfig{
			Workers: runtime.NumCPU(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load starts from Default, overlays the file at path (a missing file is
// not an error) and then the SPICESWEEP_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv("SPICESWEEP_SIMULATOR"); v != "" {
		cfg.Simulator.Executable = v
	}
	if v := os.Getenv("SPICESWEEP_WINE"); v != "" {
		cfg.Simulator.Wine = v
	}
	if v := os.Getenv("WINEPREFIX"); v != "" && cfg.Simulator.WinePrefix == "" {
		cfg.Simulator.WinePrefix = v
	}
	if v := os.Getenv("SPICESWEEP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SPICESWEEP_TIMEOUT: %w", err)
		}
		cfg.Simulator.Timeout = d
	}
	if v := os.Getenv("SPICESWEEP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPICESWEEP_WORKERS: %w", err)
		}
		cfg.Sweep.Workers = n
	}
	if v := os.Getenv("SPICESWEEP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.Simulator.Executable == "" {
		return fmt.Errorf("simulator.executable must be set")
	}
	if c.Simulator.Timeout <= 0 {
		return fmt.Errorf("simulator.timeout must be > 0")
	}
	if c.Sweep.Workers < 1 {
		return fmt.Errorf("sweep.workers must be >= 1")
	}
	for i, p := range c.Sweep.Probes {
		if p.Name == "" {
			return fmt.Errorf("sweep.probes[%d]: name must be set", i)
		}
		switch p.Kind {
		case "", "node", "device":
		default:
			return fmt.Errorf("sweep.probes[%d]: kind must be node or device, got %q", i, p.Kind)
		}
	}
	return nil
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
