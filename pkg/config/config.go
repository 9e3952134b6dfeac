package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gitlab.com/heartbeat-intel/edge-router/pkg/route"
	"gitlab.com/heartbeat-intel/edge-router/pkg/upstream"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPPort          = 9876
	DefaultMetricsPort       = 9877
	DefaultMetricsPath       = "/metrics"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	HTTP           HTTP              `yaml:"http"`
	Metrics        Metrics           `yaml:"metrics"`
	MarketingHosts []string          `yaml:"marketing_hosts"`
	PassThrough    upstream.Origin   `yaml:"passthrough"`
	Origins        []upstream.Origin `yaml:"origins"`
	Rules          []route.Rule      `yaml:"rules"`
}

type HTTP struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	XForwarded        bool          `yaml:"x_forwarded"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var result Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err = decoder.Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalid, filename, err)
	}

	result.setDefaults()

	err = result.Validate()
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Config) setDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks the cross references route.NewTable and upstream.NewSet
// cannot see on their own.
func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port %d out of range", ErrInvalid, c.HTTP.Port)
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("%w: metrics.port %d out of range", ErrInvalid, c.Metrics.Port)
		}
		if c.Metrics.Port == c.HTTP.Port {
			return fmt.Errorf("%w: metrics.port must differ from http.port", ErrInvalid)
		}
	}
	if c.PassThrough.URL == "" {
		return fmt.Errorf("%w: passthrough.url is required", ErrInvalid)
	}

	origins := make(map[string]struct{}, len(c.Origins))
	for _, o := range c.Origins {
		origins[o.Name] = struct{}{}
	}
	for _, r := range c.Rules {
		if _, ok := origins[r.Origin]; !ok {
			return fmt.Errorf("%w: rule %q references unknown origin %q", ErrInvalid, r.Name, r.Origin)
		}
	}

	return nil
}
