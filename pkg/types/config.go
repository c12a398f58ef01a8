package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultName prefixes every sensor name when no account name is configured.
const DefaultName = "HydroQuebec"

// DefaultUpdateInterval is the minimum time between two portal fetches.
const DefaultUpdateInterval = time.Hour

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes one HydroQuebec account and the fields to expose for it.
type Config struct {
	Username           string        `json:"username"`
	Password           string        `json:"-"`
	Contract           string        `json:"contract"`
	Name               string        `json:"name"`
	MonitoredVariables []string      `json:"monitoredVariables"`
	UpdateInterval     time.Duration `json:"updateInterval"`
}

// Validate checks the config against the catalog and fills in defaults. It
// never touches the network.
func (c *Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidConfig)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidConfig)
	}
	if c.Contract == "" {
		return fmt.Errorf("%w: contract is required", ErrInvalidConfig)
	}
	for _, v := range c.MonitoredVariables {
		if _, ok := Catalog[v]; !ok {
			return fmt.Errorf(
				"%w: unknown monitored variable %q (available: %s)",
				ErrInvalidConfig,
				v,
				strings.Join(CatalogFields(), ", "),
			)
		}
	}
	if c.UpdateInterval < 0 {
		return fmt.Errorf("%w: update interval must not be negative", ErrInvalidConfig)
	}

	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.UpdateInterval == 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
	return nil
}

// ParseList splits a comma-delimited flag value, trimming whitespace and
// dropping empty entries.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
