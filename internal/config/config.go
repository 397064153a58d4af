// Package config loads hasp's optional per-namespace configuration file:
// which build command and registry endpoint to use for each namespace,
// parsed with gopkg.in/yaml.v3. The file's path comes from the --config
// flag; no environment variable or flag overrides the values in it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Namespace is one namespace's build and registry configuration.
type Namespace struct {
	Build struct {
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
	} `yaml:"build"`
	Registry struct {
		IndexURL string `yaml:"index_url"`
	} `yaml:"registry"`
}

// Config is the full parsed configuration file, keyed by namespace.
type Config struct {
	Namespaces map[string]Namespace `yaml:"namespaces"`
}

// Default returns the built-in configuration used when no config file is
// present: a single "cargo" namespace shelling out to the cargo binary,
// matching the reference backend the original implementation hardcoded.
func Default() *Config {
	ns := Namespace{}
	ns.Build.Command = "cargo"
	ns.Build.Args = []string{"install", "--root", "{dest}", "--path", "{src}"}
	ns.Registry.IndexURL = "https://index.crates.io"
	return &Config{Namespaces: map[string]Namespace{"cargo": ns}}
}

// Load reads and parses a YAML config file at path. A missing file is
// not an error: Load returns Default() instead, so hasp works with zero
// configuration out of the box.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{Namespaces: map[string]Namespace{}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for ns, def := range Default().Namespaces {
		if _, ok := cfg.Namespaces[ns]; !ok {
			cfg.Namespaces[ns] = def
		}
	}
	return cfg, nil
}

// For returns the configuration for a namespace, or an error if unknown.
func (c *Config) For(namespace string) (Namespace, error) {
	ns, ok := c.Namespaces[namespace]
	if !ok {
		return Namespace{}, fmt.Errorf("no configuration for namespace %q", namespace)
	}
	return ns, nil
}
