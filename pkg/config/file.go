package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file the CLI looks for in the working directory.
const DefaultFileName = "netmock.yaml"

// File is the CLI configuration file.
type File struct {
	Options `yaml:",inline"`

	Proxy ProxyConfig `yaml:"proxy,omitempty"`
	Log   LogConfig   `yaml:"log,omitempty"`
}

// ProxyConfig configures the recording proxy.
type ProxyConfig struct {
	// Listen is the proxy's listen address.
	Listen string `yaml:"listen,omitempty"`

	// Target turns the proxy into a reverse proxy for one upstream.
	Target string `yaml:"target,omitempty"`

	// Methods, hosts and paths select what the proxy records; the rest is
	// forwarded untouched. Hosts and paths take doublestar patterns.
	Methods      []string `yaml:"methods,omitempty"`
	IncludeHosts []string `yaml:"includeHosts,omitempty"`
	ExcludeHosts []string `yaml:"excludeHosts,omitempty"`
	IncludePaths []string `yaml:"includePaths,omitempty"`
	ExcludePaths []string `yaml:"excludePaths,omitempty"`
}

// LogConfig configures CLI logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// LoadFile reads a YAML config file. A missing file at the default location
// is not an error; an explicitly named missing file is.
func LoadFile(path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &f, nil
}
