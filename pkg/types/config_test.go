package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Username:           "user@example.com",
		Password:           "hunter2",
		Contract:           "0123456789",
		MonitoredVariables: []string{"balance", "period_total_bill"},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := validConfig()
		require.NoError(t, c.Validate())
		assert.Equal(t, DefaultName, c.Name)
		assert.Equal(t, time.Hour, c.UpdateInterval)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		c := validConfig()
		c.Name = "Home"
		c.UpdateInterval = 10 * time.Minute
		require.NoError(t, c.Validate())
		assert.Equal(t, "Home", c.Name)
		assert.Equal(t, 10*time.Minute, c.UpdateInterval)
	})

	t.Run("empty monitored variables", func(t *testing.T) {
		c := validConfig()
		c.MonitoredVariables = nil
		require.NoError(t, c.Validate())
		assert.Empty(t, c.MonitoredVariables)
	})

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"missing username", func(c *Config) { c.Username = "" }},
		{"missing password", func(c *Config) { c.Password = "" }},
		{"missing contract", func(c *Config) { c.Contract = "" }},
		{"unknown monitored variable", func(c *Config) { c.MonitoredVariables = []string{"balance", "power"} }},
		{"negative interval", func(c *Config) { c.UpdateInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"balance", "period_length"}, ParseList(" balance, ,period_length ,"))
	assert.Nil(t, ParseList(""))
}
