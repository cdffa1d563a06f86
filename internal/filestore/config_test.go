package filestore

import (
	"testing"

	"github.com/koustreak/pdo/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return DefaultConfig("localhost:9000", "ak", "sk") }

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Provider = "gcs" }},
		{"endpoint", func(c *Config) { c.Endpoint = "" }},
		{"access key", func(c *Config) { c.AccessKey = "" }},
		{"secret key", func(c *Config) { c.SecretKey = "" }},
		{"bucket", func(c *Config) { c.Bucket = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			assert.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.Enabled())
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, DefaultConfig("localhost:9000", "", "").Enabled())
}
