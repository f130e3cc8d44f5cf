// Package config holds the composition policy read at startup.
package config

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUpscaledNV12Limit = 2.0
	MaxUpscaledNV12Limit     = 2048
	DefaultIdleTimeoutMS     = 250
)

// Config is the complete planner configuration.
type Config struct {
	Policy    Policy    `yaml:"policy"`
	Mirroring Mirroring `yaml:"mirroring"`
	Writeback Writeback `yaml:"writeback"`
}

// Policy flags, static once the planner is created.
type Policy struct {
	RGBOrder          bool    `yaml:"rgb_order"`           // layers must match the manager byte order
	NV12Only          bool    `yaml:"nv12_only"`           // only NV12 layers on overlays next to the GPU
	ForceGPU          bool    `yaml:"force_gpu"`           // compose everything but video on the GPU
	UpscaledNV12Limit float64 `yaml:"upscaled_nv12_limit"` // NV12 upscaled this much bypasses force_gpu
	IdleTimeoutMS     int     `yaml:"idle_timeout_ms"`     // 0 disables idle GPU forcing
}

// Mirroring configures cloning of the primary display to HDMI.
type Mirroring struct {
	Enabled bool `yaml:"enabled"`
	// rotation in bits 0-1, horizontal flip in bit 2. nil picks a
	// rotation from the primary orientation.
	Transform       *int   `yaml:"transform"`
	Region          string `yaml:"region"` // left:top:right:bottom of the primary framebuffer
	AvoidModeChange bool   `yaml:"avoid_mode_change"`
}

type Writeback struct {
	ForceMemToMem bool `yaml:"force_mem2mem"`
}

// Region is a clone region in primary framebuffer coordinates.
type Region struct {
	Left, Top, Right, Bottom int
}

func Default() *Config {
	return &Config{
		Policy: Policy{
			RGBOrder:          true,
			UpscaledNV12Limit: DefaultUpscaledNV12Limit,
			IdleTimeoutMS:     DefaultIdleTimeoutMS,
		},
		Mirroring: Mirroring{
			Enabled:         true,
			AvoidModeChange: true,
		},
		Writeback: Writeback{
			ForceMemToMem: true,
		},
	}
}

// Load reads and validates a YAML configuration file. Keys missing from
// the file keep their default.
func Load(path string, logger *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	cfg, err := Parse(data, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func Parse(data []byte, logger *slog.Logger) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(logger); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate rejects values that cannot be used. An out of range upscaled
// NV12 limit is reset to its default with a warning.
func (c *Config) Validate(logger *slog.Logger) error {
	limit := c.Policy.UpscaledNV12Limit
	if limit < 0 || limit > MaxUpscaledNV12Limit {
		if logger != nil {
			logger.Warn("invalid upscaled_nv12_limit, using default",
				slog.Float64("limit", limit),
				slog.Float64("default", DefaultUpscaledNV12Limit))
		}
		c.Policy.UpscaledNV12Limit = DefaultUpscaledNV12Limit
	}

	if c.Policy.IdleTimeoutMS < 0 {
		return errors.Newf("idle_timeout_ms must not be negative, got %d", c.Policy.IdleTimeoutMS)
	}

	if t := c.Mirroring.Transform; t != nil && (*t < 0 || *t > 7) {
		return errors.Newf("mirroring transform %d out of range [0, 7]", *t)
	}
	return nil
}

// MirrorTransform returns the configured mirroring rotation and flip.
// Without a configured value portrait primaries are rotated by 270 degrees.
func (m *Mirroring) MirrorTransform(primaryW, primaryH int) (rotation int, hflip bool) {
	v := 0
	if m.Transform != nil {
		v = *m.Transform
	} else if primaryH > primaryW {
		v = 3
	}
	return v & 3, v&4 != 0
}

// ClipRegion parses the configured region. ok is false when the region
// is unset or malformed, callers then clone the whole framebuffer.
func (m *Mirroring) ClipRegion() (r Region, ok bool) {
	return ParseRegion(m.Region)
}

// ParseRegion parses "left:top:right:bottom". Empty regions are invalid.
func ParseRegion(s string) (Region, bool) {
	if s == "" {
		return Region{}, false
	}

	var r Region
	var rest string
	n, _ := fmt.Sscanf(s, "%d:%d:%d:%d%s", &r.Left, &r.Top, &r.Right, &r.Bottom, &rest)
	if n != 4 || r.Left >= r.Right || r.Top >= r.Bottom {
		return Region{}, false
	}
	return r, true
}
