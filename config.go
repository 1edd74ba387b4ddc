package voxcast

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type RendererConfig struct {
	// FramesInFlight is the number of frame slots the host may run ahead of the GPU.
	FramesInFlight int `yaml:"frames_in_flight"`
	// MaxNodes bounds the octree buffer, in node records.
	MaxNodes   int    `yaml:"max_nodes"`
	ShaderPath string `yaml:"shader"`
	Validation bool   `yaml:"validation"`
	Palette    bool   `yaml:"palette"`
	// FenceTimeout bounds every fence wait. Zero means wait forever.
	FenceTimeout time.Duration `yaml:"fence_timeout"`
}

type CameraConfig struct {
	Speed     float32    `yaml:"speed"`
	TurnSpeed float32    `yaml:"turn_speed"`
	Start     [3]float32 `yaml:"start"`
}

type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Camera   CameraConfig   `yaml:"camera"`
	Scene    string         `yaml:"scene"`
	Debug    bool           `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "voxcast",
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			MaxNodes:       1 << 22,
			ShaderPath:     "shaders/octree.comp.spv",
		},
		Camera: CameraConfig{
			Speed:     0.6,
			TurnSpeed: 6,
			Start:     [3]float32{0.5, 0.5, -1.5},
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.FramesInFlight < 1 {
		errs = append(errs, fmt.Errorf("frames_in_flight %d must be at least 1", c.Renderer.FramesInFlight))
	}
	if c.Renderer.MaxNodes < 1 {
		errs = append(errs, fmt.Errorf("max_nodes %d must be at least 1", c.Renderer.MaxNodes))
	}
	if c.Renderer.ShaderPath == "" {
		errs = append(errs, errors.New("shader path is empty"))
	}
	if c.Renderer.FenceTimeout < 0 {
		errs = append(errs, fmt.Errorf("fence_timeout %s is negative", c.Renderer.FenceTimeout))
	}
	return multierr.Combine(errs...)
}

// WaitTimeout returns the fence timeout, mapping zero to the longest representable wait.
func (c RendererConfig) WaitTimeout() time.Duration {
	if c.FenceTimeout == 0 {
		return time.Duration(math.MaxInt64)
	}
	return c.FenceTimeout
}
