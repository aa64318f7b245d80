// Package gpu owns the compute side of the tracer: the WebGPU device
// bootstrap, the buffer set mirroring the device-memory layout, the
// compute pipelines compiled from the embedded WGSL kernels, and the
// Tracer that sequences them per frame.
package gpu

import (
	"fmt"

	"github.com/MrSmile/RayTracer/internal/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

// Context bundles the adapter/device/queue triple every GPU object
// hangs off. It is created once at start-up and released at exit.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	log logging.Logger
}

// ListAdapters enumerates the accelerators the instance can reach, for
// the CLI's device listing.
func ListAdapters(instance *wgpu.Instance) []*wgpu.Adapter {
	return instance.EnumerateAdapters(nil)
}

// AdapterLabel formats one adapter for the device listing.
func AdapterLabel(a *wgpu.Adapter) string {
	info := a.GetInfo()
	return fmt.Sprintf("%s (%v)", info.Name, info.BackendType)
}

// NewContext requests a device on the chosen adapter. adapterIndex < 0
// selects the instance's preferred adapter for the given surface;
// otherwise it indexes the enumeration order ListAdapters reports.
func NewContext(instance *wgpu.Instance, surface *wgpu.Surface, adapterIndex int, log logging.Logger) (*Context, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	var adapter *wgpu.Adapter
	if adapterIndex < 0 {
		var err error
		adapter, err = instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			CompatibleSurface: surface,
			PowerPreference:   wgpu.PowerPreferenceHighPerformance,
		})
		if err != nil {
			return nil, fmt.Errorf("gpu: no compatible adapter: %w", err)
		}
	} else {
		adapters := ListAdapters(instance)
		if adapterIndex >= len(adapters) {
			return nil, fmt.Errorf("gpu: adapter index %d out of range, have %d", adapterIndex, len(adapters))
		}
		adapter = adapters[adapterIndex]
	}
	log.Infof("using adapter: %s", AdapterLabel(adapter))

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot create device: %w", err)
	}

	return &Context{
		Instance: instance,
		Adapter:  adapter,
		Device:   device,
		Queue:    device.GetQueue(),
		log:      log,
	}, nil
}

func (c *Context) Release() {
	if c.Device != nil {
		c.Device.Release()
	}
}
