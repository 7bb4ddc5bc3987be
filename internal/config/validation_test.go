package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, validate(validConfig()))
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown combine method",
			mutate:  func(c *Config) { c.Combine.Method = "average" },
			wantErr: ErrUnknownCombineMethod,
		},
		{
			name:    "negative clip count",
			mutate:  func(c *Config) { c.Combine.MinMaxClipped = -1 },
			wantErr: ErrInvalidClipCount,
		},
		{
			name:    "negative sigma threshold",
			mutate:  func(c *Config) { c.Combine.SigmaThreshold = -0.5 },
			wantErr: ErrInvalidSigmaThreshold,
		},
		{
			name:    "unknown calibration type",
			mutate:  func(c *Config) { c.Precalibration.Type = "subtract" },
			wantErr: ErrUnknownCalibrationType,
		},
		{
			name:    "pedestal too large",
			mutate:  func(c *Config) { c.Precalibration.Pedestal = 0x10000 },
			wantErr: ErrInvalidPedestal,
		},
		{
			name:    "bandwidth below range",
			mutate:  func(c *Config) { c.Grouping.TemperatureBandwidth = 0.05 },
			wantErr: ErrInvalidBandwidth,
		},
		{
			name:    "bandwidth above range",
			mutate:  func(c *Config) { c.Grouping.TemperatureBandwidth = 51 },
			wantErr: ErrInvalidBandwidth,
		},
		{
			name:    "minimum group size below one",
			mutate:  func(c *Config) { c.Grouping.MinimumGroupSize = -3 },
			wantErr: ErrInvalidMinimumGroupSize,
		},
		{
			name:    "worker count below one",
			mutate:  func(c *Config) { c.Workers.Readers = -2 },
			wantErr: ErrInvalidWorkerCount,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrUnknownLogLevel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
