package scene

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
	"github.com/go-gl/mathgl/mgl32"
)

// skybox is the implementation of the Skybox interface.
type skybox struct {
	mesh     model.Mesh
	material material.Material
	size     float32
	center   mgl32.Vec3
	id       uint64

	primitive [1]renderqueue.Primitive
}

// Skybox is an inward-facing cube drawn in the skybox bucket and centred on the eye of the
// view drawing it.
type Skybox interface {
	renderqueue.Renderable

	// Mesh returns the cube mesh.
	Mesh() model.Mesh

	// Material returns the skybox material.
	Material() material.Material

	// FollowView recentres the cube on eye. Views call it before drawing.
	//
	// Parameters:
	//   - eye: the camera position in world space
	FollowView(eye mgl32.Vec3)

	// Upload creates the cube's GPU buffers if needed.
	Upload(r renderer.Renderer) error
}

var _ Skybox = &skybox{}

// NewSkybox creates a skybox drawn with mat.
//
// Parameters:
//   - mat: the material, usually bound to a pipeline without depth writes
//   - size: the cube edge length, kept inside the camera far plane
//
// Returns:
//   - Skybox: the new skybox
func NewSkybox(mat material.Material, size float32) Skybox {
	return &skybox{
		mesh:     model.NewSkyboxCube("skybox"),
		material: mat,
		size:     max(size, 1),
		id:       primitiveIDs.Add(1),
	}
}

func (s *skybox) Mesh() model.Mesh                           { return s.mesh }
func (s *skybox) Material() material.Material                { return s.material }
func (s *skybox) FollowView(eye mgl32.Vec3)                  { s.center = eye }
func (s *skybox) RenderableType() renderqueue.RenderableType { return renderqueue.RenderableTypeSkybox }

func (s *skybox) WorldTransform() mgl32.Mat4 {
	return mgl32.Translate3D(s.center.X(), s.center.Y(), s.center.Z()).Mul4(mgl32.Scale3D(s.size, s.size, s.size))
}

func (s *skybox) Primitives() []renderqueue.Primitive {
	s.primitive[0] = renderqueue.Primitive{ID: s.id, Geometry: s.mesh.Geometry()}
	if s.material != nil {
		s.primitive[0].Material = s.material
	}
	return s.primitive[:]
}

func (s *skybox) Upload(r renderer.Renderer) error {
	if s.mesh.Uploaded() {
		return nil
	}
	return s.mesh.Upload(r)
}
