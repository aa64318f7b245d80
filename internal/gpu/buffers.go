package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/MrSmile/RayTracer/internal/scene"
	"github.com/MrSmile/RayTracer/internal/wavefront"
	"github.com/cogentcore/webgpu/wgpu"
)

// Buffers is the full device buffer set of one tracer: the mutable
// per-frame state, the read-only scene tables, and the radix sort
// scratch. Ray-index buffers are allocated once as a pair and rotated
// by index, never reallocated.
type Buffers struct {
	Global   *wgpu.Buffer
	Area     *wgpu.Buffer
	RayList  *wgpu.Buffer
	GrpData  *wgpu.Buffer
	RayIndex [2]*wgpu.Buffer

	GrpList  *wgpu.Buffer
	MatList  *wgpu.Buffer
	AABBList *wgpu.Buffer
	VtxList  *wgpu.Buffer
	TriList  *wgpu.Buffer

	LocalIndex  *wgpu.Buffer
	GlobalIndex *wgpu.Buffer
	SortParams  []*wgpu.Buffer // one uniform block per radix pass

	Readback *wgpu.Buffer
}

func createBuffer(dev *wgpu.Device, name string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if size == 0 {
		size = 4
	}
	if size%4 != 0 {
		size += 4 - size%4
	}
	buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: cannot create buffer %q: %w", name, err)
	}
	return buf, nil
}

func createBufferInit(dev *wgpu.Device, queue *wgpu.Queue, name string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := createBuffer(dev, name, uint64(len(data)), usage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

const (
	rayQueueSize  = 1136
	groupSize     = 16
	groupDataSize = 24
	entrySize     = 8 // (group_id, ray_index)
)

// sortPass is the per-digit uniform block the sort kernels read.
type sortPass struct {
	Shift, Mask, Last, BlockCount uint32
}

func (p sortPass) toBytes() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], p.Shift)
	binary.LittleEndian.PutUint32(buf[4:8], p.Mask)
	binary.LittleEndian.PutUint32(buf[8:12], p.Last)
	binary.LittleEndian.PutUint32(buf[12:16], p.BlockCount)
	return buf
}

// radixPasses precomputes the digit passes sorting keys up to maxKey
// takes, mirroring the driver loop's shift/mask/max bookkeeping. The
// final pass elides the digit mask when the remaining range fits one
// digit.
func radixPasses(maxKey, blockCount uint32) []sortPass {
	var passes []sortPass
	for shift, max := uint32(0), maxKey; max != 0; shift, max = shift+wavefront.RadixShift, max>>wavefront.RadixShift {
		last := uint32(0)
		if max < 1<<wavefront.RadixShift {
			last = 1
		}
		passes = append(passes, sortPass{
			Shift:      shift,
			Mask:       wavefront.RadixMask,
			Last:       last,
			BlockCount: blockCount,
		})
	}
	return passes
}

// newBuffers allocates and uploads everything a tracer needs for one
// scene at one resolution. Any allocation failure names the buffer.
func newBuffers(ctx *Context, scn *scene.Scene, cam device.Camera, rayCount, groupCount, blockCount uint32) (*Buffers, error) {
	dev, queue := ctx.Device, ctx.Queue
	areaSize := uint64(cam.Width) * uint64(cam.Height)

	global := device.GlobalData{
		PixelOffset: rayCount,
		PixelCount:  uint32(areaSize),
		GroupCount:  groupCount,
		RayCount:    rayCount,
		Cam:         cam,
	}

	var b Buffers
	var err error

	const storage = wgpu.BufferUsageStorage
	if b.Global, err = createBufferInit(dev, queue, "global", global.ToBytes(), storage|wgpu.BufferUsageCopySrc); err != nil {
		return nil, err
	}
	if b.Area, err = createBuffer(dev, "area", areaSize*16, storage|wgpu.BufferUsageCopySrc); err != nil {
		return nil, err
	}
	if b.RayList, err = createBuffer(dev, "ray_list", uint64(rayCount)*rayQueueSize, storage); err != nil {
		return nil, err
	}
	if b.GrpData, err = createBuffer(dev, "grp_data", uint64(groupCount)*groupDataSize, storage); err != nil {
		return nil, err
	}
	for i := range b.RayIndex {
		name := fmt.Sprintf("ray_index[%d]", i)
		if b.RayIndex[i], err = createBuffer(dev, name, uint64(rayCount)*entrySize, storage); err != nil {
			return nil, err
		}
	}

	mngr := scn.Manager
	grpBytes := make([]byte, 0, groupCount*groupSize)
	for _, g := range mngr.GroupTable() {
		grpBytes = append(grpBytes, g.ToBytes()...)
	}
	// Pad the table out to the aligned group count the scheduler scans.
	grpBytes = append(grpBytes, make([]byte, int(groupCount)*groupSize-len(grpBytes))...)
	if b.GrpList, err = createBufferInit(dev, queue, "grp_list", grpBytes, storage); err != nil {
		return nil, err
	}

	matBytes := make([]byte, 0, len(scn.Matrices)*48)
	for _, m := range scn.Matrices {
		matBytes = append(matBytes, m.ToBytes()...)
	}
	if b.MatList, err = createBufferInit(dev, queue, "mat_list", matBytes, storage); err != nil {
		return nil, err
	}

	aabbBytes := make([]byte, 0, mngr.AABBCount()*32)
	for _, a := range mngr.AABBTable() {
		aabbBytes = append(aabbBytes, a.ToBytes()...)
	}
	if b.AABBList, err = createBufferInit(dev, queue, "aabb_list", aabbBytes, storage); err != nil {
		return nil, err
	}

	vtxBytes := make([]byte, 0, mngr.VertexCount()*32)
	for _, v := range mngr.VertexTable() {
		vtxBytes = append(vtxBytes, v.ToBytes()...)
	}
	if b.VtxList, err = createBufferInit(dev, queue, "vtx_list", vtxBytes, storage); err != nil {
		return nil, err
	}

	triBytes := make([]byte, 0, mngr.TriangleCount()*4)
	for _, t := range mngr.TriangleTable() {
		triBytes = append(triBytes, t.ToBytes()...)
	}
	if b.TriList, err = createBufferInit(dev, queue, "tri_list", triBytes, storage); err != nil {
		return nil, err
	}

	if b.LocalIndex, err = createBuffer(dev, "local_index", uint64(rayCount)*4, storage); err != nil {
		return nil, err
	}
	if b.GlobalIndex, err = createBuffer(dev, "global_index", uint64(blockCount)*wavefront.RadixMax*4, storage); err != nil {
		return nil, err
	}

	for _, pass := range radixPasses(groupCount-1, blockCount) {
		name := fmt.Sprintf("sort_params[%d]", len(b.SortParams))
		buf, err := createBufferInit(dev, queue, name, pass.toBytes(), wgpu.BufferUsageUniform)
		if err != nil {
			return nil, err
		}
		b.SortParams = append(b.SortParams, buf)
	}

	if b.Readback, err = createBuffer(dev, "readback", device.GlobalDataSize,
		wgpu.BufferUsageCopyDst|wgpu.BufferUsageMapRead); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Buffers) release() {
	for _, buf := range []*wgpu.Buffer{
		b.Global, b.Area, b.RayList, b.GrpData, b.RayIndex[0], b.RayIndex[1],
		b.GrpList, b.MatList, b.AABBList, b.VtxList, b.TriList,
		b.LocalIndex, b.GlobalIndex, b.Readback,
	} {
		if buf != nil {
			buf.Release()
		}
	}
	for _, buf := range b.SortParams {
		buf.Release()
	}
}
