// Package config loads WorldConfig, the Go generalization of the teacher's
// internal/core/ecs/types.go WorldConfig, trimmed to four fields.
// FrameHistorySize is read by package world and LogLevel by the demo
// binary; MaxEntities and EnableDebugMode are loaded but no package reads
// them.
package config

import (
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"ecsruntime/internal/ecs"
)

// WorldConfig parameterizes a World's construction: how deep the
// replication frame history ring runs and the ambient log level, plus an
// entity budget (MaxEntities) and a debug switch that nothing enforces or
// reads.
type WorldConfig struct {
	MaxEntities      int    `yaml:"max_entities"`
	FrameHistorySize int    `yaml:"frame_history_size"`
	EnableDebugMode  bool   `yaml:"enable_debug_mode"`
	LogLevel         string `yaml:"log_level"`
}

// DefaultWorldConfig mirrors the teacher's DefaultWorldConfig, trimmed to
// this runtime's fields.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		MaxEntities:      10000,
		FrameHistorySize: 64,
		EnableDebugMode:  false,
		LogLevel:         "info",
	}
}

// LoadWorldConfig reads a YAML world config from path. A missing file falls
// back to DefaultWorldConfig() rather than erroring, since a host binary
// should run with sane defaults even before an operator has written a
// config file. A present-but-malformed file is a Configuration-kind error
// per §7 and is fatal, matching the ambient-stack decision to panic on
// programmer/operator configuration mistakes rather than limp along with
// partially-applied settings.
func LoadWorldConfig(path string) WorldConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultWorldConfig()
		}
		ecs.FatalConfigError("config: reading %s: %v", path, err)
	}

	cfg := DefaultWorldConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		ecs.FatalConfigError("config: parsing %s: %v", path, err)
	}
	return cfg
}

// ZerologLevel resolves the config's LogLevel string to a zerolog.Level,
// falling back to InfoLevel for an empty or unrecognized value rather than
// treating it as a configuration error — a typo'd log level should degrade
// gracefully, unlike a structurally broken config file.
func (c WorldConfig) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
