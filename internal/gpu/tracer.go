package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/MrSmile/RayTracer/internal/logging"
	"github.com/MrSmile/RayTracer/internal/scene"
	"github.com/MrSmile/RayTracer/internal/wavefront"
	"github.com/cogentcore/webgpu/wgpu"
)

// Tracer drives the wavefront pipeline on the device: the one-time
// init kernels, the per-step shade/sort/count/layout/scatter sequence,
// and the accumulator-to-texture conversion for presentation.
type Tracer struct {
	ctx *Context
	log logging.Logger

	width, height uint32
	rayCount      uint32
	groupCount    uint32
	blockCount    uint32

	bufs  *Buffers
	pipes *Pipelines

	image     *wgpu.Texture
	imageView *wgpu.TextureView
	sampler   *wgpu.Sampler

	// Bind group tables, indexed by which ray-index buffer is current.
	bgInitGroups  *wgpu.BindGroup
	bgInitRays    *wgpu.BindGroup
	bgInitImage   *wgpu.BindGroup
	bgProcess     [2]*wgpu.BindGroup
	bgLocalCount  [][2]*wgpu.BindGroup // per pass, per source buffer
	bgGlobalCount []*wgpu.BindGroup    // per pass
	bgShuffle     [][2]*wgpu.BindGroup
	bgCountGroups [2]*wgpu.BindGroup
	bgUpdate      *wgpu.BindGroup
	bgSetRayIndex [2]*wgpu.BindGroup
	bgUpdateImage *wgpu.BindGroup
	bgBlit        *wgpu.BindGroup

	// Which of the two ray-index buffers the next kernel reads. The
	// buffers themselves never move; only this rotates.
	cur int
}

// NewTracer sizes the pipeline for one scene at one resolution.
// rayCount is rounded up to a whole number of sort blocks.
func NewTracer(ctx *Context, scn *scene.Scene, cam device.Camera, rayCount uint32, surfaceFormat wgpu.TextureFormat) (*Tracer, error) {
	t := &Tracer{
		ctx:    ctx,
		log:    ctx.log,
		width:  cam.Width,
		height: cam.Height,
	}
	t.rayCount = wavefront.Align(rayCount, wavefront.UnitWidth*wavefront.SortBlock)
	t.blockCount = t.rayCount / (wavefront.UnitWidth * wavefront.SortBlock)
	t.groupCount = scn.GroupCount(wavefront.UnitWidth)
	t.log.Infof("tracer: %d rays in %d sort blocks, %d group slots", t.rayCount, t.blockCount, t.groupCount)

	var err error
	if t.bufs, err = newBuffers(ctx, scn, cam, t.rayCount, t.groupCount, t.blockCount); err != nil {
		return nil, err
	}
	if t.pipes, err = newPipelines(ctx.Device, surfaceFormat); err != nil {
		return nil, err
	}
	if err = t.createImage(); err != nil {
		return nil, err
	}
	if err = t.createBindGroups(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracer) createImage() error {
	var err error
	t.image, err = t.ctx.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "image",
		Size: wgpu.Extent3D{
			Width:              t.width,
			Height:             t.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("gpu: cannot create image texture: %w", err)
	}
	if t.imageView, err = t.image.CreateView(nil); err != nil {
		return fmt.Errorf("gpu: cannot create image view: %w", err)
	}
	t.sampler, err = t.ctx.Device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("gpu: cannot create sampler: %w", err)
	}
	return nil
}

func (t *Tracer) bindGroup(label string, pipeline *wgpu.ComputePipeline, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	bg, err := t.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  pipeline.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot create bind group %q: %w", label, err)
	}
	return bg, nil
}

func buffer(binding uint32, buf *wgpu.Buffer) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Size: wgpu.WholeSize}
}

func (t *Tracer) createBindGroups() error {
	b := t.bufs
	var err error

	if t.bgInitGroups, err = t.bindGroup("init_groups", t.pipes.InitGroups,
		[]wgpu.BindGroupEntry{buffer(0, b.GrpData)}); err != nil {
		return err
	}
	if t.bgInitRays, err = t.bindGroup("init_rays", t.pipes.InitRays,
		[]wgpu.BindGroupEntry{buffer(0, b.Global), buffer(1, b.RayList), buffer(2, b.RayIndex[0])}); err != nil {
		return err
	}
	if t.bgInitImage, err = t.bindGroup("init_image", t.pipes.InitImage,
		[]wgpu.BindGroupEntry{buffer(0, b.Area)}); err != nil {
		return err
	}

	for k := 0; k < 2; k++ {
		if t.bgProcess[k], err = t.bindGroup("process", t.pipes.Process, []wgpu.BindGroupEntry{
			buffer(0, b.Global), buffer(1, b.Area), buffer(2, b.RayList), buffer(3, b.RayIndex[k]),
			buffer(4, b.GrpList), buffer(5, b.MatList), buffer(6, b.AABBList),
			buffer(7, b.VtxList), buffer(8, b.TriList),
		}); err != nil {
			return err
		}
		if t.bgCountGroups[k], err = t.bindGroup("count_groups", t.pipes.CountGroups, []wgpu.BindGroupEntry{
			buffer(0, b.Global), buffer(1, b.GrpData), buffer(2, b.RayIndex[k]), buffer(3, b.RayList),
		}); err != nil {
			return err
		}
		if t.bgSetRayIndex[k], err = t.bindGroup("set_ray_index", t.pipes.SetRayIndex, []wgpu.BindGroupEntry{
			buffer(0, b.Global), buffer(1, b.GrpData), buffer(2, b.RayIndex[k]),
			buffer(3, b.RayIndex[1-k]), buffer(4, b.RayList),
		}); err != nil {
			return err
		}
	}

	t.bgLocalCount = make([][2]*wgpu.BindGroup, len(b.SortParams))
	t.bgShuffle = make([][2]*wgpu.BindGroup, len(b.SortParams))
	t.bgGlobalCount = make([]*wgpu.BindGroup, len(b.SortParams))
	for p := range b.SortParams {
		for k := 0; k < 2; k++ {
			if t.bgLocalCount[p][k], err = t.bindGroup("local_count", t.pipes.LocalCount, []wgpu.BindGroupEntry{
				buffer(0, b.RayIndex[k]), buffer(1, b.Global), buffer(2, b.LocalIndex),
				buffer(3, b.GlobalIndex), buffer(4, b.SortParams[p]),
			}); err != nil {
				return err
			}
			if t.bgShuffle[p][k], err = t.bindGroup("shuffle_data", t.pipes.ShuffleData, []wgpu.BindGroupEntry{
				buffer(0, b.RayIndex[k]), buffer(1, b.Global), buffer(2, b.LocalIndex),
				buffer(3, b.GlobalIndex), buffer(4, b.SortParams[p]), buffer(5, b.RayIndex[1-k]),
			}); err != nil {
				return err
			}
		}
		if t.bgGlobalCount[p], err = t.bindGroup("global_count", t.pipes.GlobalCount, []wgpu.BindGroupEntry{
			buffer(3, b.GlobalIndex), buffer(4, b.SortParams[p]),
		}); err != nil {
			return err
		}
	}

	if t.bgUpdate, err = t.bindGroup("update_groups", t.pipes.UpdateGroups,
		[]wgpu.BindGroupEntry{buffer(0, b.Global), buffer(1, b.GrpData)}); err != nil {
		return err
	}
	if t.bgUpdateImage, err = t.bindGroup("update_image", t.pipes.UpdateImage, []wgpu.BindGroupEntry{
		buffer(0, b.Global), buffer(1, b.Area),
		{Binding: 2, TextureView: t.imageView},
	}); err != nil {
		return err
	}

	t.bgBlit, err = t.ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "blit",
		Layout: t.pipes.Blit.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.imageView},
			{Binding: 1, Sampler: t.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: cannot create bind group %q: %w", "blit", err)
	}
	return nil
}

func groups(items uint32) uint32 {
	return (items + wavefront.UnitWidth - 1) / wavefront.UnitWidth
}

func dispatch(pass *wgpu.ComputePassEncoder, pipeline *wgpu.ComputePipeline, bg *wgpu.BindGroup, workgroups uint32) {
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(workgroups, 1, 1)
}

func (t *Tracer) submit(encoder *wgpu.CommandEncoder, what string) error {
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: cannot encode %s: %w", what, err)
	}
	t.ctx.Queue.Submit(cmd)
	return nil
}

// InitFrame runs the one-time kernels: zero the scheduler rows, seed
// every ray as a spawn entry, clear the accumulator.
func (t *Tracer) InitFrame() error {
	encoder, err := t.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: cannot create command encoder: %w", err)
	}
	pass := encoder.BeginComputePass(nil)
	dispatch(pass, t.pipes.InitGroups, t.bgInitGroups, groups(t.groupCount))
	dispatch(pass, t.pipes.InitRays, t.bgInitRays, groups(t.rayCount))
	dispatch(pass, t.pipes.InitImage, t.bgInitImage, groups(t.width*t.height))
	if err := pass.End(); err != nil {
		return fmt.Errorf("gpu: init pass failed: %w", err)
	}
	t.cur = 0
	return t.submit(encoder, "init_frame")
}

// MakeStep advances every ray by one wavefront iteration: shade, sort
// the ray index by group, rebuild the per-group layout, scatter.
// Buffer roles swap after each sort pass and after the final scatter;
// dispatch ordering within the queue provides all synchronization.
func (t *Tracer) MakeStep() error {
	encoder, err := t.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: cannot create command encoder: %w", err)
	}
	pass := encoder.BeginComputePass(nil)

	dispatch(pass, t.pipes.Process, t.bgProcess[t.cur], groups(t.rayCount))

	for p := range t.bufs.SortParams {
		dispatch(pass, t.pipes.LocalCount, t.bgLocalCount[p][t.cur], t.blockCount)
		dispatch(pass, t.pipes.GlobalCount, t.bgGlobalCount[p], 1)
		dispatch(pass, t.pipes.ShuffleData, t.bgShuffle[p][t.cur], t.blockCount)
		t.cur = 1 - t.cur
	}

	dispatch(pass, t.pipes.CountGroups, t.bgCountGroups[t.cur], groups(t.rayCount))
	dispatch(pass, t.pipes.UpdateGroups, t.bgUpdate, 1)
	dispatch(pass, t.pipes.SetRayIndex, t.bgSetRayIndex[t.cur], groups(t.rayCount))
	t.cur = 1 - t.cur

	if err := pass.End(); err != nil {
		return fmt.Errorf("gpu: step pass failed: %w", err)
	}
	return t.submit(encoder, "make_step")
}

// DrawFrame converts the accumulator into the shared image and blits
// it onto the given surface view. The caller owns surface acquisition
// and presentation, bracketing this call.
func (t *Tracer) DrawFrame(target *wgpu.TextureView) error {
	encoder, err := t.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: cannot create command encoder: %w", err)
	}

	cPass := encoder.BeginComputePass(nil)
	dispatch(cPass, t.pipes.UpdateImage, t.bgUpdateImage, groups(t.width*t.height))
	if err := cPass.End(); err != nil {
		return fmt.Errorf("gpu: update_image pass failed: %w", err)
	}

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rPass.SetPipeline(t.pipes.Blit)
	rPass.SetBindGroup(0, t.bgBlit, nil)
	rPass.Draw(3, 1, 0, 0)
	if err := rPass.End(); err != nil {
		return fmt.Errorf("gpu: blit pass failed: %w", err)
	}
	return t.submit(encoder, "draw_frame")
}

// CurrentRay blocks on a readback of the global block and returns
// pixel_offset, the retirement counter the frame-rate report uses.
func (t *Tracer) CurrentRay() (uint32, error) {
	encoder, err := t.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return 0, fmt.Errorf("gpu: cannot create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(t.bufs.Global, 0, t.bufs.Readback, 0, device.GlobalDataSize)
	if err := t.submit(encoder, "readback"); err != nil {
		return 0, err
	}

	var mapped bool
	t.bufs.Readback.MapAsync(wgpu.MapModeRead, 0, t.bufs.Readback.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		mapped = status == wgpu.BufferMapAsyncStatusSuccess
	})
	t.ctx.Device.Poll(true, nil)
	if !mapped {
		return 0, fmt.Errorf("gpu: readback map failed")
	}
	data := t.bufs.Readback.GetMappedRange(0, uint(t.bufs.Readback.GetSize()))
	offset := binary.LittleEndian.Uint32(data[device.GlobalPixelOffsetOffs:])
	t.bufs.Readback.Unmap()
	return offset, nil
}

// ReadArea blocks on a readback of the whole accumulator, for the
// debug PNG snapshot. Not part of the per-frame hot path.
func (t *Tracer) ReadArea() ([]float32, error) {
	size := t.bufs.Area.GetSize()
	staging, err := createBuffer(t.ctx.Device, "area_readback", size,
		wgpu.BufferUsageCopyDst|wgpu.BufferUsageMapRead)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := t.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(t.bufs.Area, 0, staging, 0, size)
	if err := t.submit(encoder, "area readback"); err != nil {
		return nil, err
	}

	var mapped bool
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapped = status == wgpu.BufferMapAsyncStatusSuccess
	})
	t.ctx.Device.Poll(true, nil)
	if !mapped {
		return nil, fmt.Errorf("gpu: area readback map failed")
	}
	data := staging.GetMappedRange(0, uint(size))
	out := make([]float32, size/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	staging.Unmap()
	return out, nil
}

func (t *Tracer) Width() uint32  { return t.width }
func (t *Tracer) Height() uint32 { return t.height }

// PassCount reports how many radix digit passes each step runs, fixed
// per scene by the largest group index in use.
func (t *Tracer) PassCount() int { return len(t.bufs.SortParams) }

func (t *Tracer) Release() {
	if t.bufs != nil {
		t.bufs.release()
	}
	if t.image != nil {
		t.image.Release()
	}
}
