// Package config handles decoder and import configuration loading.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/ueformat/internal/export"
	"github.com/Faultbox/ueformat/internal/scene"
	"github.com/Faultbox/ueformat/pkg/formats"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all tool settings.
type Config struct {
	Decode  DecodeConfig  `yaml:"decode"`
	Import  ImportConfig  `yaml:"import"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// DecodeConfig holds container decoding settings.
type DecodeConfig struct {
	MaxDecompressedMB int64 `yaml:"max_decompressed_mb"` // Per envelope body
	Workers           int   `yaml:"workers"`             // Nested world mesh decoders
	Strict            bool  `yaml:"strict"`              // Reject chunk size mismatches
}

// ImportConfig holds scene materialization settings.
type ImportConfig struct {
	LinkRoot   bool    `yaml:"link_root"`
	BoneLength float32 `yaml:"bone_length"` // Meters
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Format string `yaml:"format"` // yaml or cbor
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			MaxDecompressedMB: formats.DefaultMaxDecompressedSize >> 20,
			Workers:           1,
			Strict:            true,
		},
		Import: ImportConfig{
			LinkRoot:   true,
			BoneLength: scene.DefaultBoneLength,
		},
		Output: OutputConfig{
			Format: string(export.FormatYAML),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Decode.MaxDecompressedMB <= 0 {
		return fmt.Errorf("%w: decode.max_decompressed_mb must be positive, got %d", ErrInvalidConfig, c.Decode.MaxDecompressedMB)
	}
	if c.Decode.Workers < 1 {
		return fmt.Errorf("%w: decode.workers must be at least 1, got %d", ErrInvalidConfig, c.Decode.Workers)
	}
	if c.Import.BoneLength <= 0 {
		return fmt.Errorf("%w: import.bone_length must be positive, got %v", ErrInvalidConfig, c.Import.BoneLength)
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: output.format: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the decode settings for formats.NewDecoder.
func (d DecodeConfig) Options(log *zap.Logger) formats.Options {
	return formats.Options{
		MaxDecompressedSize: d.MaxDecompressedMB << 20,
		Workers:             d.Workers,
		LenientChunkSizes:   !d.Strict,
		Logger:              log,
	}
}

// Options converts the import settings for scene.NewBuilder.
func (i ImportConfig) Options(log *zap.Logger) scene.Options {
	return scene.Options{
		LinkRoot:   i.LinkRoot,
		BoneLength: i.BoneLength,
		Logger:     log,
	}
}
