package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/gekko3d/voxcast"
	"github.com/gekko3d/voxcast/voxelrt/rt/app"
)

const (
	flagConfig         = "config"
	flagScene          = "scene"
	flagShader         = "shader"
	flagDebug          = "debug"
	flagFramesInFlight = "frames-in-flight"
	flagWidth          = "width"
	flagHeight         = "height"
	flagValidation     = "validation"
	flagPalette        = "palette"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "voxelrt:", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:      "voxelrt",
		Usage:     "ray-cast a voxel octree on the GPU",
		ArgsUsage: "[scene]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: flagScene, Usage: "point source (.ply, .txt, .vox, or an image heightfield)"},
			&cli.StringFlag{Name: flagShader, Usage: "compiled SPIR-V compute kernel"},
			&cli.BoolFlag{Name: flagDebug, Usage: "debug logging"},
			&cli.IntFlag{Name: flagFramesInFlight, Usage: "frames the host may queue ahead of the GPU"},
			&cli.IntFlag{Name: flagWidth, Usage: "window width"},
			&cli.IntFlag{Name: flagHeight, Usage: "window height"},
			&cli.BoolFlag{Name: flagValidation, Usage: "enable Vulkan validation layers"},
			&cli.BoolFlag{Name: flagPalette, Usage: "bind a color palette image"},
		},
		Action: run,
	}
}

// loadConfig layers the config file, then explicitly set flags, over the defaults.
func loadConfig(c *cli.Context) (voxcast.Config, error) {
	cfg := voxcast.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = voxcast.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet(flagScene) {
		cfg.Scene = c.String(flagScene)
	} else if c.Args().Present() {
		cfg.Scene = c.Args().First()
	}
	if c.IsSet(flagShader) {
		cfg.Renderer.ShaderPath = c.String(flagShader)
	}
	if c.IsSet(flagDebug) {
		cfg.Debug = c.Bool(flagDebug)
	}
	if c.IsSet(flagFramesInFlight) {
		cfg.Renderer.FramesInFlight = c.Int(flagFramesInFlight)
	}
	if c.IsSet(flagWidth) {
		cfg.Window.Width = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		cfg.Window.Height = c.Int(flagHeight)
	}
	if c.IsSet(flagValidation) {
		cfg.Renderer.Validation = c.Bool(flagValidation)
	}
	if c.IsSet(flagPalette) {
		cfg.Renderer.Palette = c.Bool(flagPalette)
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := voxcast.NewDefaultLogger("voxelrt", cfg.Debug)
	defer logger.Sync()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("glfw: %w", err)
	}
	defer window.Destroy()

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	application := app.NewApp(window, cfg, logger)
	defer func() {
		err = multierr.Append(err, application.Close())
	}()
	if err := application.Init(); err != nil {
		logger.Errorf("init: %v", err)
		return err
	}
	return application.Run()
}
