package app

import (
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/gekko3d/voxcast"
	"github.com/gekko3d/voxcast/voxelrt/rt/core"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu/vulkan"
	"github.com/gekko3d/voxcast/voxelrt/rt/shaders"
)

type App struct {
	Config   voxcast.Config
	Logger   voxcast.Logger
	Window   *glfw.Window
	Renderer *gpu.Renderer
	Camera   *core.Camera
	Scene    *Scene
	Profiler *Profiler

	// Keys and Clock default to the window and glfw.GetTime.
	Keys  core.KeyReader
	Clock func() float64

	backend   *vulkan.Backend
	lastTime  float64
	statsHeld bool
	closed    bool
}

func NewApp(window *glfw.Window, cfg voxcast.Config, logger voxcast.Logger) *App {
	a := &App{
		Config:   cfg,
		Logger:   voxcast.OrNop(logger),
		Window:   window,
		Camera:   core.NewCamera(mgl32.Vec3(cfg.Camera.Start), cfg.Camera.Speed, cfg.Camera.TurnSpeed),
		Profiler: NewProfiler(),
		Clock:    glfw.GetTime,
	}
	if window != nil {
		a.Keys = window
	}
	return a
}

// Init opens Vulkan on the window and attaches the renderer to it.
func (a *App) Init() error {
	backend, err := vulkan.Open(a.Window, vulkan.Options{
		AppName:    a.Config.Window.Title,
		Validation: a.Config.Renderer.Validation,
		Images:     a.Config.Renderer.FramesInFlight + 1,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.backend = backend
	return a.Attach(backend)
}

// Attach builds the renderer on dev and loads the configured scene, if any.
func (a *App) Attach(dev gpu.Device) error {
	kernel, err := shaders.LoadSPIRV(a.Config.Renderer.ShaderPath)
	if err != nil {
		return err
	}
	a.Renderer, err = gpu.NewRenderer(dev, kernel, gpu.Options{
		FramesInFlight: a.Config.Renderer.FramesInFlight,
		MaxNodes:       a.Config.Renderer.MaxNodes,
		Palette:        a.Config.Renderer.Palette,
		FenceTimeout:   a.Config.Renderer.WaitTimeout(),
	}, a.Logger)
	if err != nil {
		return err
	}
	a.lastTime = a.Clock()
	if a.Config.Scene != "" {
		return a.LoadScene(a.Config.Scene)
	}
	return nil
}

// LoadScene replaces the rendered octree, and the palette when both the
// renderer and the source have one.
func (a *App) LoadScene(path string) error {
	a.Profiler.BeginScope("load")
	scene, err := LoadScene(path, a.Config.Renderer.Palette)
	a.Profiler.EndScope("load")
	if err != nil {
		return err
	}

	a.Profiler.BeginScope("upload")
	defer a.Profiler.EndScope("upload")
	if err := a.Renderer.UploadOctree(scene.Tree); err != nil {
		return fmt.Errorf("scene %s: %w", path, err)
	}
	if scene.Palette != nil && a.Config.Renderer.Palette {
		if err := a.Renderer.UploadPalette(*scene.Palette); err != nil {
			return fmt.Errorf("scene %s: %w", path, err)
		}
	}

	a.Scene = scene
	stats := scene.Tree.Stats()
	a.Profiler.SetCount("points", uint64(scene.Points))
	a.Profiler.SetCount("nodes", uint64(scene.Tree.Len()))
	a.Profiler.SetCount("colored", uint64(stats.Colored))
	a.Profiler.SetCount("depth", uint64(a.Renderer.Depth()))
	a.Logger.Infof("scene %s (%s): %d points, %d nodes, depth %d", path, scene.ID, scene.Points, scene.Tree.Len(), a.Renderer.Depth())
	return nil
}

// Update polls input and integrates the camera. P prints the profiler once
// per press.
func (a *App) Update() {
	now := a.Clock()
	dt := float32(now - a.lastTime)
	a.lastTime = now

	var in core.InputState
	if a.Keys != nil {
		in = core.PollInput(a.Keys)
	}
	a.Camera.Update(in, dt)

	if in.P && !a.statsHeld {
		a.Logger.Infof("\n%s", a.Profiler.GetStatsString())
	}
	a.statsHeld = in.P
}

// Render draws one frame from the current camera.
func (a *App) Render() error {
	a.Profiler.BeginScope("frame")
	pos := a.Camera.Position
	err := a.Renderer.RenderFrame(mgl32.Vec4{pos[0], pos[1], pos[2], 0}, a.Camera.RotationMatrix())
	a.Profiler.EndScope("frame")
	if err != nil {
		return err
	}

	stats := a.Renderer.Stats()
	a.Profiler.SetCount("frames", stats.Frames)
	a.Profiler.SetCount("image stalls", stats.ImageStalls)
	a.Profiler.Tick(a.Clock())
	return nil
}

// Run loops until the window closes or a frame fails.
func (a *App) Run() error {
	for !a.Window.ShouldClose() {
		glfw.PollEvents()
		a.Update()
		if err := a.Render(); err != nil {
			if errors.Is(err, gpu.ErrSwapchainOutOfDate) {
				return fmt.Errorf("window surface changed, swapchain rebuild is unsupported: %w", err)
			}
			return err
		}
	}
	return nil
}

// Close tears down the renderer, then the Vulkan backend.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	var err error
	if a.Renderer != nil {
		err = multierr.Append(err, a.Renderer.Close())
	}
	if a.backend != nil {
		err = multierr.Append(err, a.backend.Close())
	}
	return err
}
