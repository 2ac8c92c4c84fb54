package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PipelineConfig holds the tunables enumerated in spec.md §6 — this
// pipeline's own, independent configuration surface.
type PipelineConfig struct {
	IntersectionToleranceMeters    float64 `mapstructure:"intersection_tolerance_meters"`
	TIntersectionToleranceMeters   float64 `mapstructure:"t_intersection_tolerance_meters"`
	MinSegmentLengthMeters         float64 `mapstructure:"min_segment_length_meters"`
	CoordinateRoundDecimals        int     `mapstructure:"coordinate_round_decimals"`
	SnapToleranceDegrees           float64 `mapstructure:"snap_tolerance_degrees"`
	ValidationToleranceMeters      float64 `mapstructure:"validation_tolerance_meters"`
	ValidationTolerancePercentage  float64 `mapstructure:"validation_tolerance_percentage"`
	MaxSnapshotSizeMB              float64 `mapstructure:"max_snapshot_size_mb"`
	SimplifyTolerance              float64 `mapstructure:"simplify_tolerance"`

	StagingDSN    string `mapstructure:"staging_dsn"`
	Region        string `mapstructure:"region"`
	Source        string `mapstructure:"source"`
	SnapshotPath  string `mapstructure:"snapshot_path"`
	OperationTimeoutSeconds int `mapstructure:"operation_timeout_seconds"`
}

// DefaultPipelineConfig returns spec.md §6's documented defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		IntersectionToleranceMeters:   2.0,
		TIntersectionToleranceMeters:  3.0,
		MinSegmentLengthMeters:        5.0,
		CoordinateRoundDecimals:       6,
		SnapToleranceDegrees:          1e-4,
		ValidationToleranceMeters:     1.0,
		ValidationTolerancePercentage: 0.1,
		MaxSnapshotSizeMB:             512,
		SimplifyTolerance:             0.001,
		OperationTimeoutSeconds:       30,
	}
}

// LoadPipelineConfig reads the pipeline's tunables from a YAML/env config
// file with the same viper-backed precedence (TRAILNET_-prefixed
// environment variables, then the explicit file, then the defaults above) that
// rohankatakam-coderisk's internal/config/config.go uses for its own
// settings.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults := DefaultPipelineConfig()
	v.SetDefault("intersection_tolerance_meters", defaults.IntersectionToleranceMeters)
	v.SetDefault("t_intersection_tolerance_meters", defaults.TIntersectionToleranceMeters)
	v.SetDefault("min_segment_length_meters", defaults.MinSegmentLengthMeters)
	v.SetDefault("coordinate_round_decimals", defaults.CoordinateRoundDecimals)
	v.SetDefault("snap_tolerance_degrees", defaults.SnapToleranceDegrees)
	v.SetDefault("validation_tolerance_meters", defaults.ValidationToleranceMeters)
	v.SetDefault("validation_tolerance_percentage", defaults.ValidationTolerancePercentage)
	v.SetDefault("max_snapshot_size_mb", defaults.MaxSnapshotSizeMB)
	v.SetDefault("simplify_tolerance", defaults.SimplifyTolerance)
	v.SetDefault("operation_timeout_seconds", defaults.OperationTimeoutSeconds)

	v.SetEnvPrefix("TRAILNET")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return PipelineConfig{}, fmt.Errorf("config: read pipeline config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("trailnet")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return PipelineConfig{}, fmt.Errorf("config: read pipeline config: %w", err)
			}
		}
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("config: unmarshal pipeline config: %w", err)
	}
	return cfg, nil
}
