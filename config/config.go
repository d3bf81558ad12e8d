// Package config loads optional engine-wide tuning knobs from a YAML file.
// Nothing in paya requires a config file: every field here has a default
// matching the hardcoded constants the teacher shipped with, and loading
// one is always the caller's choice, never a bootstrap requirement.
package config

import (
	"fmt"
	"os"

	vk "github.com/vulkan-go/vulkan"
	"gopkg.in/yaml.v3"
)

// EngineConfig tunes the knobs paya otherwise hardcodes: frame-lag depth,
// bindless descriptor-pool sizing, the validation layer, and present-mode
// preference.
type EngineConfig struct {
	MaxFramesInFlight  uint32 `yaml:"max_frames_in_flight"`
	MaxBindlessImages  uint32 `yaml:"max_bindless_images"`
	MaxBindlessBuffers uint32 `yaml:"max_bindless_buffers"`
	EnableValidation   bool   `yaml:"enable_validation"`
	PreferredPresent   string `yaml:"preferred_present_mode"`
}

// Default returns the configuration paya uses when no YAML file is
// supplied: three frames in flight (matching the teacher's hardcoded
// frame-lag of 3), 1000 bindless images and buffers, validation off, and
// mailbox present mode preferred.
func Default() EngineConfig {
	return EngineConfig{
		MaxFramesInFlight:  3,
		MaxBindlessImages:  1000,
		MaxBindlessBuffers: 1000,
		EnableValidation:   false,
		PreferredPresent:   "mailbox",
	}
}

// Load reads and parses a YAML config file at path, filling in Default()
// for any field the file leaves at its zero value.
func Load(path string) (EngineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: reading %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parsing %q: %w", path, err)
	}

	if cfg.MaxFramesInFlight == 0 {
		cfg.MaxFramesInFlight = Default().MaxFramesInFlight
	}
	if cfg.MaxBindlessImages == 0 {
		cfg.MaxBindlessImages = Default().MaxBindlessImages
	}
	if cfg.MaxBindlessBuffers == 0 {
		cfg.MaxBindlessBuffers = Default().MaxBindlessBuffers
	}
	if cfg.PreferredPresent == "" {
		cfg.PreferredPresent = Default().PreferredPresent
	}

	return cfg, nil
}

// PresentMode maps PreferredPresent to its vk.PresentMode, falling back to
// FIFO (always guaranteed available) for an unrecognized value.
func (c EngineConfig) PresentMode() vk.PresentMode {
	switch c.PreferredPresent {
	case "mailbox":
		return vk.PresentModeMailbox
	case "immediate":
		return vk.PresentModeImmediate
	case "fifo_relaxed":
		return vk.PresentModeFifoRelaxed
	default:
		return vk.PresentModeFifo
	}
}
