// Package simconfig loads the engine's YAML configuration document
// (SPEC_FULL.md §4.8), grounded on kxddry-rag-text-search's
// internal/config/config.go: a root struct, a Load that falls back to
// documented defaults when the file is absent, and a Save round-trip.
package simconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// BasisConfig is one basis's opaque sub-configuration
// (spec.md §6's basis.<bkey>.* keys). It is loaded into Config.Basis
// and saved back; the engine does not pass it to the kernel on
// bmk/bload.
type BasisConfig map[string]interface{}

// Config is the engine's top-level configuration document.
type Config struct {
	SavePath     string                 `yaml:"savepath"`
	SaveInterval int                    `yaml:"saveinterval"`
	ByCount      int                    `yaml:"bycount"`
	Basis        map[string]BasisConfig `yaml:"basis"`
}

func defaultConfig() *Config {
	return &Config{
		SavePath:     "data",
		SaveInterval: 300000,
		ByCount:      1000,
		Basis:        make(map[string]BasisConfig),
	}
}

// Load reads path as YAML and returns it merged over the defaults. If
// path does not exist, Load returns the defaults unchanged and no
// error — matching kxddry-rag-text-search's Load/defaultConfig split.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills in zero-valued fields left unset by a partial
// YAML document, the same guard kxddry-rag-text-search's
// applyConfigDefaults performs after unmarshalling.
func applyDefaults(cfg *Config) {
	d := defaultConfig()
	if cfg.SavePath == "" {
		cfg.SavePath = d.SavePath
	}
	if cfg.SaveInterval == 0 {
		cfg.SaveInterval = d.SaveInterval
	}
	if cfg.ByCount == 0 {
		cfg.ByCount = d.ByCount
	}
	if cfg.Basis == nil {
		cfg.Basis = d.Basis
	}
}

// Save writes cfg to path as YAML, creating or truncating the file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadDefault returns the engine's built-in defaults without touching
// the filesystem, used by tests.
func LoadDefault() *Config {
	return defaultConfig()
}
