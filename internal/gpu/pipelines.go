package gpu

import (
	"fmt"

	"github.com/MrSmile/RayTracer/internal/gpu/shaders"
	"github.com/cogentcore/webgpu/wgpu"
)

// Pipelines holds one compute pipeline per device kernel contract,
// plus the blit pipeline the presentation bridge uses.
type Pipelines struct {
	InitGroups   *wgpu.ComputePipeline
	InitRays     *wgpu.ComputePipeline
	InitImage    *wgpu.ComputePipeline
	Process      *wgpu.ComputePipeline
	LocalCount   *wgpu.ComputePipeline
	GlobalCount  *wgpu.ComputePipeline
	ShuffleData  *wgpu.ComputePipeline
	CountGroups  *wgpu.ComputePipeline
	UpdateGroups *wgpu.ComputePipeline
	SetRayIndex  *wgpu.ComputePipeline
	UpdateImage  *wgpu.ComputePipeline

	Blit *wgpu.RenderPipeline
}

// newComputePipeline compiles a WGSL module and wraps one of its entry
// points. A compile failure is fatal per the error model; the driver
// log (wgpu's validation message) travels up inside the error.
func newComputePipeline(dev *wgpu.Device, label, code, entry string) (*wgpu.ComputePipeline, error) {
	module, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot compile kernel %q: %w", label, err)
	}
	defer module.Release()

	pipeline, err := dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot create pipeline %q: %w", label, err)
	}
	return pipeline, nil
}

func newPipelines(dev *wgpu.Device, surfaceFormat wgpu.TextureFormat) (*Pipelines, error) {
	var p Pipelines
	var err error

	if p.InitGroups, err = newComputePipeline(dev, "init_groups", shaders.InitGroupsWGSL, "cs_main"); err != nil {
		return nil, err
	}
	if p.InitRays, err = newComputePipeline(dev, "init_rays", shaders.InitRaysWGSL, "cs_main"); err != nil {
		return nil, err
	}
	if p.InitImage, err = newComputePipeline(dev, "init_image", shaders.InitImageWGSL, "cs_main"); err != nil {
		return nil, err
	}
	if p.Process, err = newComputePipeline(dev, "process", shaders.ProcessWGSL, "cs_main"); err != nil {
		return nil, err
	}
	if p.LocalCount, err = newComputePipeline(dev, "local_count", shaders.RadixSortWGSL, "cs_local_count"); err != nil {
		return nil, err
	}
	if p.GlobalCount, err = newComputePipeline(dev, "global_count", shaders.RadixSortWGSL, "cs_global_count"); err != nil {
		return nil, err
	}
	if p.ShuffleData, err = newComputePipeline(dev, "shuffle_data", shaders.RadixSortWGSL, "cs_shuffle_data"); err != nil {
		return nil, err
	}
	if p.CountGroups, err = newComputePipeline(dev, "count_groups", shaders.CountGroupsWGSL, "cs_main"); err != nil {
		return nil, err
	}
	if p.UpdateGroups, err = newComputePipeline(dev, "update_groups", shaders.UpdateGroupsWGSL, "cs_main"); err != nil {
		return nil, err
	}
	if p.SetRayIndex, err = newComputePipeline(dev, "set_ray_index", shaders.SetRayIndexWGSL, "cs_main"); err != nil {
		return nil, err
	}
	if p.UpdateImage, err = newComputePipeline(dev, "update_image", shaders.UpdateImageWGSL, "cs_main"); err != nil {
		return nil, err
	}

	blitModule, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "fullscreen",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.FullscreenWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot compile kernel %q: %w", "fullscreen", err)
	}
	defer blitModule.Release()

	p.Blit, err = dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "blit",
		Vertex: wgpu.VertexState{
			Module:     blitModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     blitModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    surfaceFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot create pipeline %q: %w", "blit", err)
	}
	return &p, nil
}
