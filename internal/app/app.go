// Package app is the windowed host driver: it bootstraps the surface
// and device, builds the scene, and runs the per-frame Update/Render
// split the CLI's main loop calls into.
package app

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/MrSmile/RayTracer/internal/gpu"
	"github.com/MrSmile/RayTracer/internal/logging"
	"github.com/MrSmile/RayTracer/internal/present"
	"github.com/MrSmile/RayTracer/internal/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Options configures one run of the tracer.
type Options struct {
	ModelPaths    []string
	AdapterIndex  int // < 0: pick the surface-compatible default
	RayCount      uint32
	StepsPerFrame int
	Instances     int
	SnapshotPath  string // written on demand via Snapshot
}

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Ctx    *gpu.Context
	Tracer *gpu.Tracer
	Scene  *scene.Scene

	Log      logging.Logger
	Profiler *Profiler
	Opts     Options

	lastRay      uint32
	lastTime     float64
	frameCount   int
	fpsTime      float64
	RaysPerSec   float64
	stepsPending int
}

func NewApp(window *glfw.Window, log logging.Logger, opts Options) *App {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if opts.StepsPerFrame <= 0 {
		opts.StepsPerFrame = 1
	}
	if opts.Instances <= 0 {
		opts.Instances = 256
	}
	return &App{
		Window:   window,
		Log:      log,
		Profiler: NewProfiler(),
		Opts:     opts,
	}
}

// Init performs the one-time bootstrap: surface, adapter, device, the
// packed scene, the tracer's buffers and pipelines, and the initial
// init_groups/init_rays/init_image dispatch. Every failure here is
// fatal per the error model; the caller exits non-zero.
func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	ctx, err := gpu.NewContext(a.Instance, a.Surface, a.Opts.AdapterIndex, a.Log)
	if err != nil {
		return err
	}
	a.Ctx = ctx

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(ctx.Adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(ctx.Adapter, ctx.Device, a.Config)

	scn, cam, err := a.buildScene(uint32(width), uint32(height))
	if err != nil {
		return err
	}
	a.Scene = scn

	rayCount := a.Opts.RayCount
	if rayCount == 0 {
		rayCount = uint32(width) * uint32(height)
	}
	tracer, err := gpu.NewTracer(ctx, scn, cam, rayCount, a.Config.Format)
	if err != nil {
		return err
	}
	a.Tracer = tracer

	if err := tracer.InitFrame(); err != nil {
		return err
	}
	a.Log.Infof("ready: %dx%d, %d sort passes per step", width, height, tracer.PassCount())
	return nil
}

// buildScene loads the requested models and instances them under
// random-ish deterministic transforms, the demo layout the original
// scene uses: rotations about the vertical axis, scattered in a box.
func (a *App) buildScene(width, height uint32) (*scene.Scene, device.Camera, error) {
	builder := scene.NewBuilder(a.Log)
	if err := builder.Load(a.Opts.ModelPaths...); err != nil {
		return nil, device.Camera{}, err
	}

	materials := []scene.Material{
		{Color: [4]float32{0.2, 0.9, 0.2, 0.1}},
		{Color: [4]float32{0.9, 0.2, 0.2, 0.1}},
	}

	instances := make([]scene.Instance, a.Opts.Instances)
	rng := rand.New(rand.NewSource(12345))
	for i := range instances {
		alpha := 2 * math.Pi * rng.Float64()
		c := float32(math.Cos(alpha))
		s := float32(math.Sin(alpha))
		instances[i] = scene.Instance{
			Model:    i % builder.ModelCount(),
			Material: i % len(materials),
			Mat: device.Matrix{
				X: [4]float32{c, 0, -s, 4*rng.Float32() - 2},
				Y: [4]float32{s, 0, c, 4 * rng.Float32()},
				Z: [4]float32{0, 1, 0, 2*rng.Float32() - 1},
			},
		}
	}

	scn, err := builder.Build(materials, instances)
	if err != nil {
		return nil, device.Camera{}, err
	}
	cam := scn.DefaultCamera(width, height, 0.5,
		mgl32.Vec3{0, -0.3, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1})
	return scn, cam, nil
}

// Update advances the pipeline by the configured number of wavefront
// steps. Called once per frame-loop iteration before Render.
func (a *App) Update() error {
	a.Profiler.BeginScope("Steps")
	for i := 0; i < a.Opts.StepsPerFrame; i++ {
		if err := a.Tracer.MakeStep(); err != nil {
			return err
		}
	}
	a.Profiler.EndScope("Steps")
	a.stepsPending += a.Opts.StepsPerFrame
	return nil
}

// Render acquires the surface texture, runs the presentation bridge
// (update_image plus blit) and presents. The acquire/present pair
// brackets the dispatch, which is the ownership protocol the shared
// image requires.
func (a *App) Render() error {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("app: cannot acquire surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("app: cannot create surface view: %w", err)
	}
	defer view.Release()

	a.Profiler.BeginScope("Draw")
	if err := a.Tracer.DrawFrame(view); err != nil {
		return err
	}
	a.Profiler.EndScope("Draw")

	a.Surface.Present()
	a.Ctx.Device.Poll(false, nil)
	a.updateStats()
	return nil
}

func (a *App) updateStats() {
	now := glfw.GetTime()
	if a.lastTime > 0 {
		a.frameCount++
		a.fpsTime += now - a.lastTime
		if a.fpsTime >= 1.0 {
			cur, err := a.Tracer.CurrentRay()
			if err == nil {
				a.RaysPerSec = float64(cur-a.lastRay) / a.fpsTime
				a.lastRay = cur
			}
			if a.Log.DebugEnabled() {
				a.Log.Debugf("%.1f fps, %.2f Mpixels/s retired, %d steps\n%s",
					float64(a.frameCount)/a.fpsTime, a.RaysPerSec*1e-6, a.stepsPending,
					a.Profiler.GetStatsString())
			}
			a.frameCount = 0
			a.fpsTime = 0
			a.stepsPending = 0
			a.Profiler.Reset()
		}
	}
	a.lastTime = now
}

// Snapshot reads the accumulator back and writes a PNG to the path
// configured in Options, or "snapshot.png" when unset.
func (a *App) Snapshot() error {
	path := a.Opts.SnapshotPath
	if path == "" {
		path = "snapshot.png"
	}
	area, err := a.Tracer.ReadArea()
	if err != nil {
		return err
	}
	if err := present.WritePNG(path, area, int(a.Tracer.Width()), int(a.Tracer.Height()), 0); err != nil {
		return err
	}
	a.Log.Infof("snapshot written to %s", path)
	return nil
}

// Resize reconfigures the swapchain. The accumulator and ray buffers
// keep the resolution they were created with; only presentation
// follows the window.
func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Ctx.Adapter, a.Ctx.Device, a.Config)
	}
}

func (a *App) Release() {
	if a.Tracer != nil {
		a.Tracer.Release()
	}
	if a.Ctx != nil {
		a.Ctx.Release()
	}
}
