package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/rowgit/pkg/storage"
)

// ConfigFileName is the workspace configuration inside the system directory.
const ConfigFileName = "config.yaml"

// Author is the commit identity as written in the config file.
type Author struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// Config is the persisted workspace configuration. Options passed in code
// take precedence over it.
type Config struct {
	Backend     string           `yaml:"backend,omitempty"`
	Format      string           `yaml:"format,omitempty"`
	LockTimeout time.Duration    `yaml:"lock_timeout,omitempty"`
	Author      Author           `yaml:"author,omitempty"`
	Schemas     []storage.Schema `yaml:"schemas,omitempty"`
}

// LoadConfig reads the config file. A missing file yields an empty Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating its directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// merge fills the options left unset from the config file, then applies defaults.
func (o *options) merge(cfg Config) {
	if o.backend == "" {
		o.backend = cfg.Backend
	}
	if o.backend == "" {
		o.backend = BackendGoGit
	}
	if o.format == "" {
		o.format = cfg.Format
	}
	if o.format == "" {
		o.format = storage.FormatYAML
	}
	if o.lockTimeout == 0 {
		o.lockTimeout = cfg.LockTimeout
	}
	if o.author.Name == "" && o.author.Email == "" {
		o.author.Name = cfg.Author.Name
		o.author.Email = cfg.Author.Email
	}
	if o.schemas == nil {
		o.schemas = cfg.Schemas
	}
}

// config is the inverse of merge: the settings worth persisting.
func (o *options) config() Config {
	return Config{
		Backend:     o.backend,
		Format:      o.format,
		LockTimeout: o.lockTimeout,
		Author:      Author{Name: o.author.Name, Email: o.author.Email},
		Schemas:     o.schemas,
	}
}
