// Package scene assembles the device-side scene: it loads models,
// reserves and fills the resource arena (predefined groups first, then
// material groups, then the instancing AABB group, then each model's
// BVH), and derives the camera primary rays enter the scene with.
package scene

import (
	"fmt"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/MrSmile/RayTracer/internal/logging"
	"github.com/MrSmile/RayTracer/internal/mesh"
	"github.com/MrSmile/RayTracer/internal/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Instance places one loaded model into the world under an affine
// transform. Model indexes the Builder's load order; Material indexes
// the material list passed to Build.
type Instance struct {
	Model    int
	Material int
	Mat      device.Matrix
}

// Material is a flat color whose alpha lane doubles as specular
// intensity.
type Material struct {
	Color [4]float32
}

// Builder accumulates models and build parameters, then packs the
// whole scene through a resource.Manager in the reserve/alloc/fill
// order the arena requires.
type Builder struct {
	log    logging.Logger
	models []*mesh.Model

	TriThreshold  uint32
	AABBThreshold uint32
	SkyColor      [4]float32
	LightColor    [4]float32
}

func NewBuilder(log logging.Logger) *Builder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Builder{
		log:           log,
		TriThreshold:  128,
		AABBThreshold: 128,
		SkyColor:      [4]float32{0.3, 0.5, 0.9, 0},
		LightColor:    [4]float32{1, 1, 1, 0},
	}
}

// Load parses the given PLY files concurrently, one model per path,
// preserving path order in the resulting model list. Loading is the
// only concurrent section of the host: it finishes before any device
// resource exists.
func (b *Builder) Load(paths ...string) error {
	models := make([]*mesh.Model, len(paths))
	var eg errgroup.Group
	for i, path := range paths {
		eg.Go(func() error {
			m, err := mesh.Load(path)
			if err != nil {
				return err
			}
			b.log.Infof("loaded %s: %d vertices, %d triangles", path, m.VertexCount(), m.TriangleCount())
			models[i] = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	b.models = append(b.models, models...)
	return nil
}

// ModelCount reports how many models have been loaded so far.
func (b *Builder) ModelCount() int { return len(b.models) }

// Scene is the packed result: the arena holding the Group/AABB/Vertex/
// Triangle tables, the per-instance matrix table, and the root group
// primary rays enter.
type Scene struct {
	Manager   *resource.Manager
	Matrices  []device.Matrix
	RootGroup uint32
	RootLocal uint32
}

// GroupCount returns the number of group slots in use plus one spare,
// rounded up to unit so the scheduler's per-group table dispatches in
// whole work-groups.
func (s *Scene) GroupCount(unit uint32) uint32 {
	n := s.Manager.GroupCount() + 1
	if r := n % unit; r != 0 {
		n += unit - r
	}
	return n
}

// Build runs the two-phase packing: reserve the three predefined
// groups, one material group per material, one instancing AABB group
// sized to the instance list, and every model's tree; then alloc and
// fill in the same order. Instance transforms land in the matrix table
// at their instance index, which is also the local id their AABB entry
// carries (f_local0).
func (b *Builder) Build(materials []Material, instances []Instance) (*Scene, error) {
	if len(b.models) == 0 {
		return nil, fmt.Errorf("scene: no models loaded")
	}
	for _, inst := range instances {
		if inst.Model < 0 || inst.Model >= len(b.models) {
			return nil, fmt.Errorf("scene: instance references model %d, have %d", inst.Model, len(b.models))
		}
		if inst.Material < 0 || inst.Material >= len(materials) {
			return nil, fmt.Errorf("scene: instance references material %d, have %d", inst.Material, len(materials))
		}
	}

	mngr := resource.NewManager()
	mngr.ReserveGroups(3 + uint32(len(materials)) + 1)
	mngr.ReserveAABBs(uint32(len(instances)))
	for _, m := range b.models {
		m.Subdivide(b.TriThreshold, b.AABBThreshold)
		m.Reserve(mngr)
	}
	mngr.Alloc()

	// Predefined groups: spawn, sky, light occupy slots 0..2.
	predef := mngr.Groups(3)
	if predef != 0 {
		panic(fmt.Sprintf("scene: predefined groups allocated at %d, want 0", predef))
	}
	*mngr.Group(device.SkyGroupID & device.GroupIDMask) = device.NewMatShaderGroup(b.SkyColor)
	*mngr.Group(device.LightGroupID & device.GroupIDMask) = device.NewMatShaderGroup(b.LightColor)

	materialIDs := make([]uint32, len(materials))
	for i, mat := range materials {
		pos := mngr.Groups(1)
		materialIDs[i] = device.PackGroupID(pos, device.TrNone, device.ShMaterial)
		*mngr.Group(pos) = device.NewMatShaderGroup(mat.Color)
	}

	aabbPos := mngr.Groups(1)
	aabbID := device.PackGroupID(aabbPos, device.TrIdentity, device.ShAABB)
	aabbFirst := mngr.AABBs(uint32(len(instances)))
	*mngr.Group(aabbPos) = device.NewAABBShaderGroup(device.AABBShader{
		AABBOffs:  aabbFirst,
		AABBCount: uint32(len(instances)),
		Flags:     device.FLocal0,
	})

	for i, m := range b.models {
		// Every instance of a model shares one material group: the first
		// instance's choice wins, defaulting to material 0.
		matID := materialIDs[0]
		for _, inst := range instances {
			if inst.Model == i {
				matID = materialIDs[inst.Material]
				break
			}
		}
		m.Fill(mngr, matID)
	}

	matrices := make([]device.Matrix, len(instances))
	for i, inst := range instances {
		model := b.models[inst.Model]
		*mngr.AABB(aabbFirst + uint32(i)) = model.Put(inst.Mat, uint32(i))
		matrices[i] = inst.Mat
		if b.log.DebugEnabled() {
			b.log.Debugf("instance %s: model %d -> group %#x, slot %d",
				uuid.New(), inst.Model, model.GroupID(), i)
		}
	}

	if !mngr.Full() {
		panic("scene: reserve and fill walked the scene differently")
	}
	b.log.Infof("scene packed: %d groups, %d aabbs, %d vertices, %d triangles",
		mngr.GroupCount(), mngr.AABBCount(), mngr.VertexCount(), mngr.TriangleCount())

	return &Scene{
		Manager:   mngr,
		Matrices:  matrices,
		RootGroup: aabbID,
	}, nil
}

// DefaultCamera derives the image-plane camera for this scene from a
// position, look direction, up vector and field-of-view tangent, and
// points its primary rays at the scene root.
func (s *Scene) DefaultCamera(width, height uint32, tanFOV float32, pos, look, up mgl32.Vec3) device.Camera {
	cam := device.SetCamera(width, height, tanFOV, pos, look, up)
	cam.RootGroup = s.RootGroup
	cam.RootLocal = s.RootLocal
	return cam
}
