// wavetracer renders PLY models with a wavefront path tracer running
// on whatever WebGPU adapter the machine offers.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/MrSmile/RayTracer/internal/app"
	"github.com/MrSmile/RayTracer/internal/gpu"
	"github.com/MrSmile/RayTracer/internal/logging"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spf13/cobra"
)

func init() {
	runtime.LockOSThread()
}

var (
	flagDebug     bool
	flagAdapter   int
	flagSteps     int
	flagInstances int
	flagRayCount  uint32
	flagSnapshot  string
	flagWidth     int
	flagHeight    int
)

func main() {
	log := logging.NewDefaultLogger("wavetracer", false)

	root := &cobra.Command{
		Use:           "wavetracer",
		Short:         "Wavefront path tracer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetDebug(flagDebug)
		},
	}
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging and the stats report")

	devices := &cobra.Command{
		Use:   "devices",
		Short: "List available accelerator adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			instance := wgpu.CreateInstance(nil)
			adapters := gpu.ListAdapters(instance)
			if len(adapters) == 0 {
				return fmt.Errorf("no adapters available")
			}
			for i, a := range adapters {
				fmt.Printf("Adapter %d: %s\n", i, gpu.AdapterLabel(a))
			}
			return nil
		},
	}
	root.AddCommand(devices)

	run := &cobra.Command{
		Use:   "run <model.ply> [model.ply ...]",
		Short: "Open a window and trace the given models",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTracer(log, args)
		},
	}
	run.Flags().IntVar(&flagAdapter, "adapter", -1, "adapter index from 'devices' (-1: automatic)")
	run.Flags().IntVar(&flagSteps, "steps-per-frame", 1, "wavefront steps per presented frame")
	run.Flags().IntVar(&flagInstances, "instances", 256, "number of model instances to scatter")
	run.Flags().Uint32Var(&flagRayCount, "rays", 0, "rays in flight (0: one per pixel)")
	run.Flags().StringVar(&flagSnapshot, "snapshot", "", "PNG path written when pressing S")
	run.Flags().IntVar(&flagWidth, "width", 1024, "window width")
	run.Flags().IntVar(&flagHeight, "height", 1024, "window height")
	root.AddCommand(run)

	if err := root.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func runTracer(log logging.Logger, models []string) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(flagWidth, flagHeight, "WaveTracer", nil, nil)
	if err != nil {
		return fmt.Errorf("cannot create window: %w", err)
	}
	defer window.Destroy()

	application := app.NewApp(window, log, app.Options{
		ModelPaths:    models,
		AdapterIndex:  flagAdapter,
		RayCount:      flagRayCount,
		StepsPerFrame: flagSteps,
		Instances:     flagInstances,
		SnapshotPath:  flagSnapshot,
	})
	defer application.Release()

	if err := application.Init(); err != nil {
		return err
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyS:
			if err := application.Snapshot(); err != nil {
				log.Errorf("snapshot: %v", err)
			}
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		if err := application.Update(); err != nil {
			return err
		}
		if err := application.Render(); err != nil {
			return err
		}
	}
	return nil
}
