// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package config holds the server configuration. Settings are taken from the
defaults, then an optional YAML file, then the environment, and finally from
command line flags, with later sources overriding earlier ones.
*/
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the default server port.
	DefaultPort = 5173

	// DefaultHost is the default host to bind to; empty binds all
	// interfaces.
	DefaultHost = ""

	// DefaultRoot is the default project root served in development.
	DefaultRoot = "."

	// DefaultOutDir is the default build output directory.
	DefaultOutDir = "dist"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"
)

// Modes.
const (
	Development = "development"
	Production  = "production"
)

// Config represents the server configuration.
type Config struct {
	// Mode is either Development or Production.
	Mode string `yaml:"mode,omitempty"`

	// Host is the host to bind to.
	Host string `yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `yaml:"port,omitempty"`

	// Root is the project directory with the index document and the client
	// sources, served as-is in development.
	Root string `yaml:"root,omitempty"`

	// OutDir is the build output directory with the client/ and server/
	// subdirectories, served in production.
	OutDir string `yaml:"outDir,omitempty"`

	// Manifest is the location of the asset manifest, either a file path or
	// an s3://bucket/key URI. Defaults to the manifest inside OutDir.
	Manifest string `yaml:"manifest,omitempty"`

	// Region is the AWS region for S3-hosted manifests.
	Region string `yaml:"region,omitempty"`

	// LogLevel is one of the logrus level names.
	LogLevel string `yaml:"logLevel,omitempty"`

	// Metrics enables the /metrics endpoint.
	Metrics bool `yaml:"metrics,omitempty"`
}

// New returns a new Config with default values.
func New() *Config {
	return &Config{
		Mode:     Development,
		Host:     DefaultHost,
		Port:     DefaultPort,
		Root:     DefaultRoot,
		OutDir:   DefaultOutDir,
		LogLevel: DefaultLogLevel,
		Metrics:  true,
	}
}

// LoadFile reads the YAML configuration file at path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read configuration %s", path)
	}
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse configuration %s", path)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overrides settings from the environment, as looked up by lookup:
// PORT sets the port, and SPAHEAD_MODE or otherwise NODE_ENV the mode. Pass
// os.LookupEnv to use the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if port, ok := lookup("PORT"); ok && port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return errors.Wrapf(err, "invalid PORT %q", port)
		}
		c.Port = p
	}
	if mode, ok := lookup("SPAHEAD_MODE"); ok && mode != "" {
		c.Mode = strings.ToLower(mode)
	} else if env, ok := lookup("NODE_ENV"); ok {
		if strings.ToLower(env) == Production {
			c.Mode = Production
		} else {
			c.Mode = Development
		}
	}
	return nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = Development
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.OutDir == "" {
		c.OutDir = DefaultOutDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Mode {
	case Development, Production:
	default:
		return errors.Errorf("mode must be %q or %q, not %q", Development, Production, c.Mode)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port must be between 0 and 65535, not %d", c.Port)
	}
	if c.Production() && c.OutDir == "" {
		return errors.New("production mode needs an output directory")
	}
	return nil
}

// Production returns true when serving a production build.
func (c *Config) Production() bool {
	return c.Mode == Production
}

// Address returns the address string to listen on.
func (c *Config) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ClientDir returns the directory with the built client.
func (c *Config) ClientDir() string {
	return filepath.Join(c.OutDir, "client")
}

// ManifestURI returns the location of the asset manifest.
func (c *Config) ManifestURI() string {
	if c.Manifest != "" {
		return c.Manifest
	}
	return filepath.Join(c.ClientDir(), ".vite", "ssr-manifest.json")
}
