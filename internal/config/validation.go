package config

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrUnknownCombineMethod    = errors.New("combine method must be 'mean', 'median', 'minmax' or 'sigma'")
	ErrInvalidClipCount        = errors.New("min_max_clipped must be greater than zero")
	ErrInvalidSigmaThreshold   = errors.New("sigma_threshold must be greater than zero")
	ErrUnknownCalibrationType  = errors.New("precalibration type must be 'none', 'pedestal', 'file' or 'auto'")
	ErrInvalidPedestal         = errors.New("pedestal must be between 0 and 65535")
	ErrInvalidBandwidth        = errors.New("temperature_bandwidth must be between 0.1 and 50")
	ErrInvalidMinimumGroupSize = errors.New("minimum_group_size must be greater than zero")
	ErrInvalidWorkerCount      = errors.New("workers must be greater than zero")
	ErrUnknownLogLevel         = errors.New("log_level must be 'debug', 'info', 'warning' or 'error'")
)

// validate performs validation on the loaded configuration
func validate(cfg *Config) error {
	switch cfg.Combine.Method {
	case "mean", "median", "minmax", "sigma":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCombineMethod, cfg.Combine.Method)
	}
	if cfg.Combine.MinMaxClipped < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidClipCount, cfg.Combine.MinMaxClipped)
	}
	if cfg.Combine.SigmaThreshold <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidSigmaThreshold, cfg.Combine.SigmaThreshold)
	}

	switch cfg.Precalibration.Type {
	case "none", "pedestal", "file", "auto":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCalibrationType, cfg.Precalibration.Type)
	}
	if cfg.Precalibration.Pedestal < 0 || cfg.Precalibration.Pedestal > 0xffff {
		return fmt.Errorf("%w: %d", ErrInvalidPedestal, cfg.Precalibration.Pedestal)
	}

	if cfg.Grouping.TemperatureBandwidth < 0.1 || cfg.Grouping.TemperatureBandwidth > 50 {
		return fmt.Errorf("%w: %g", ErrInvalidBandwidth, cfg.Grouping.TemperatureBandwidth)
	}
	if cfg.Grouping.MinimumGroupSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMinimumGroupSize, cfg.Grouping.MinimumGroupSize)
	}

	if cfg.Workers.Readers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkerCount, cfg.Workers.Readers)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, cfg.LogLevel)
	}

	return nil
}
