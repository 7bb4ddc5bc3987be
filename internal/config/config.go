// Package config loads the persistent defaults for combination sessions.
// The configuration file plays the role of saved preferences: every value
// can still be overridden per run by command line flags or the interactive
// session editor.
package config

import (
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/earwighaven/masterflatmaker/internal/model"
)

// Config represents the complete application configuration
type Config struct {
	Combine        CombineConfig        `yaml:"combine"`
	Precalibration PrecalibrationConfig `yaml:"precalibration,omitempty"`
	Disposition    DispositionConfig    `yaml:"disposition,omitempty"`
	Grouping       GroupingConfig       `yaml:"grouping,omitempty"`
	Workers        WorkersConfig        `yaml:"workers"`
	LogLevel       string               `yaml:"log_level"`
	ConfigDir      string               `yaml:"-"` // Directory containing config.yaml (set during Load)
}

// CombineConfig selects the default combination algorithm
type CombineConfig struct {
	Method         string  `yaml:"method"` // mean, median, minmax or sigma
	MinMaxClipped  int     `yaml:"min_max_clipped"`
	SigmaThreshold float64 `yaml:"sigma_threshold"`
}

// PrecalibrationConfig selects the default precalibration of input frames
type PrecalibrationConfig struct {
	Type          string `yaml:"type"`           // none, pedestal, file or auto
	Pedestal      int    `yaml:"pedestal"`       // ADU value for pedestal calibration
	FixedFile     string `yaml:"fixed_file"`     // Relative to config dir if not absolute
	AutoDirectory string `yaml:"auto_directory"` // Relative to config dir if not absolute
	AutoRecursive *bool  `yaml:"auto_recursive"`
	AutoBiasOnly  *bool  `yaml:"auto_bias_only"`
}

// DispositionConfig says what happens to inputs after a successful combine
type DispositionConfig struct {
	MoveToSubfolder bool   `yaml:"move_to_subfolder"`
	SubfolderName   string `yaml:"subfolder_name"` // May contain %d and %t date/time placeholders
}

// GroupingConfig holds the default grouping dimensions
type GroupingConfig struct {
	BySize               bool    `yaml:"by_size"`
	ByFilter             bool    `yaml:"by_filter"`
	ByTemperature        bool    `yaml:"by_temperature"`
	TemperatureBandwidth float64 `yaml:"temperature_bandwidth"`
	IgnoreSmallGroups    bool    `yaml:"ignore_small_groups"`
	MinimumGroupSize     int     `yaml:"minimum_group_size"`
}

// WorkersConfig sizes the worker pools
type WorkersConfig struct {
	Readers int `yaml:"readers"` // Concurrent FITS reads, 0 means one per CPU
}

// defaults fills unset fields with their default values
func (c *Config) defaults() {
	if c.Combine.Method == "" {
		c.Combine.Method = "sigma"
	}
	if c.Combine.MinMaxClipped == 0 {
		c.Combine.MinMaxClipped = 2
	}
	if c.Combine.SigmaThreshold == 0 {
		c.Combine.SigmaThreshold = 2.0
	}
	if c.Precalibration.Type == "" {
		c.Precalibration.Type = "none"
	}
	if c.Precalibration.Pedestal == 0 {
		c.Precalibration.Pedestal = model.DefaultPedestal
	}
	if c.Precalibration.AutoRecursive == nil {
		c.Precalibration.AutoRecursive = boolPtr(true)
	}
	if c.Precalibration.AutoBiasOnly == nil {
		c.Precalibration.AutoBiasOnly = boolPtr(true)
	}
	if c.Disposition.SubfolderName == "" {
		c.Disposition.SubfolderName = "originals-%d-%t"
	}
	if c.Grouping.TemperatureBandwidth == 0 {
		c.Grouping.TemperatureBandwidth = 1.0
	}
	if c.Grouping.MinimumGroupSize == 0 {
		c.Grouping.MinimumGroupSize = 32
	}
	if c.Workers.Readers == 0 {
		c.Workers.Readers = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "warning"
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// resolvePath makes a relative configured path absolute against the
// directory the configuration came from
func (c *Config) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.ConfigDir == "" {
		return path
	}
	return filepath.Join(c.ConfigDir, path)
}

// Settings materializes the configured defaults as session settings.
// Load has already validated the configuration, so the name mappings here
// cannot fail.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		CombineMethod:        combineMethodFromName(c.Combine.Method),
		MinMaxClipped:        c.Combine.MinMaxClipped,
		SigmaThreshold:       c.Combine.SigmaThreshold,
		Disposition:          dispositionFromConfig(c.Disposition),
		SubfolderName:        c.Disposition.SubfolderName,
		Calibration:          calibrationFromName(c.Precalibration.Type),
		Pedestal:             c.Precalibration.Pedestal,
		FixedPath:            c.resolvePath(c.Precalibration.FixedFile),
		AutoDirectory:        c.resolvePath(c.Precalibration.AutoDirectory),
		AutoRecursive:        *c.Precalibration.AutoRecursive,
		AutoBiasOnly:         *c.Precalibration.AutoBiasOnly,
		GroupBySize:          c.Grouping.BySize,
		GroupByFilter:        c.Grouping.ByFilter,
		GroupByTemperature:   c.Grouping.ByTemperature,
		TemperatureBandwidth: c.Grouping.TemperatureBandwidth,
		IgnoreSmallGroups:    c.Grouping.IgnoreSmallGroups,
		MinimumGroupSize:     c.Grouping.MinimumGroupSize,
	}
}

// SlogLevel maps the configured log level name onto a slog level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func combineMethodFromName(name string) model.CombineMethod {
	switch name {
	case "mean":
		return model.CombineMean
	case "median":
		return model.CombineMedian
	case "minmax":
		return model.CombineMinMax
	default:
		return model.CombineSigmaClip
	}
}

func calibrationFromName(name string) model.CalibrationType {
	switch name {
	case "pedestal":
		return model.CalibrationPedestal
	case "file":
		return model.CalibrationFixedFile
	case "auto":
		return model.CalibrationAutoDirectory
	default:
		return model.CalibrationNone
	}
}

func dispositionFromConfig(d DispositionConfig) model.DispositionType {
	if d.MoveToSubfolder {
		return model.DispositionSubFolder
	}
	return model.DispositionNothing
}
