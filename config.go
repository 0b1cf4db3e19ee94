package portal

import (
	"fmt"
	"net/netip"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Page is a static page served by the http engine. Pages are plain
// configuration data; the http engine only selects and transmits them.
type Page struct {
	Path        string `yaml:"path"`
	ContentType string `yaml:"content_type,omitempty"`
	Body        string `yaml:"body"`
}

// Config is the device configuration loaded at startup. The address and
// netmask are a precondition for all three engines; the engines never
// read interface state themselves.
type Config struct {
	Interface    string `yaml:"interface"`
	Address      string `yaml:"address"` // CIDR notation, eg. 192.168.4.1/24
	PoolSize     int    `yaml:"pool_size"`
	BaseOffset   int    `yaml:"base_offset"`
	LeaseSeconds int    `yaml:"lease_seconds"`
	LogLevel     string `yaml:"log_level,omitempty"`
	Pages        []Page `yaml:"pages,omitempty"`

	Prefix netip.Prefix `yaml:"-"` // parsed from Address
}

// NewConfig returns the default device configuration: the same
// 192.168.4.1/24 network and eight address pool the device ships with.
func NewConfig() Config {
	return Config{
		Interface:    "wlan0",
		Address:      "192.168.4.1/24",
		PoolSize:     8,
		BaseOffset:   16,
		LeaseSeconds: 24 * 60 * 60,
		LogLevel:     "info",
		Pages: []Page{{
			Path:        "/",
			ContentType: "text/html; charset=utf-8",
			Body:        "<html><body><h1>Welcome</h1></body></html>",
		}},
	}
}

// LoadConfig reads filename and merges it over the defaults. A missing
// file is not an error; the defaults apply unchanged.
func LoadConfig(filename string) (Config, error) {
	config := NewConfig()
	source, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			if err := config.Validate(); err != nil {
				return Config{}, err
			}
			return config, nil
		}
		return Config{}, fmt.Errorf("config read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(source, &config); err != nil {
		return Config{}, fmt.Errorf("config parse %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", filename, err)
	}
	return config, nil
}

// Validate parses the address field and checks the pool fits the subnet.
func (c *Config) Validate() error {
	prefix, err := netip.ParsePrefix(c.Address)
	if err != nil {
		return fmt.Errorf("address %q: %w", c.Address, err)
	}
	if !prefix.Addr().Is4() {
		return fmt.Errorf("address %q must be IPv4: %w", c.Address, ErrInvalidIP)
	}
	c.Prefix = prefix
	if c.PoolSize < 1 || c.BaseOffset < 1 || c.BaseOffset+c.PoolSize > 255 {
		return fmt.Errorf("pool_size=%d base_offset=%d out of range", c.PoolSize, c.BaseOffset)
	}
	if c.LeaseSeconds < 1 {
		return fmt.Errorf("lease_seconds=%d out of range", c.LeaseSeconds)
	}
	return nil
}
