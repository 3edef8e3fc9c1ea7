package camera

import (
	_ "embed"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// FrameUniformsSource is the canonical WGSL definition of the FrameUniforms struct.
// Matches FrameUniforms layout exactly (256 bytes).
//
//go:embed assets/frame_uniforms.wgsl
var FrameUniformsSource string

// FrameUniforms is the per-view constant block bound at the view slot. The camera fills the
// matrices and eye position; the view fills time and lighting.
// Size: 256 bytes, one full uniform binding.
type FrameUniforms struct {
	ViewProj       mgl32.Mat4 // offset   0
	View           mgl32.Mat4 // offset  64
	Proj           mgl32.Mat4 // offset 128
	CameraPosition [3]float32 // offset 192
	Time           float32    // offset 204
	LightDirection [3]float32 // offset 208
	LightIntensity float32    // offset 220
	LightColor     [4]float32 // offset 224
	Ambient        [4]float32 // offset 240
}

// Size returns the size of the FrameUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (256)
func (f *FrameUniforms) Size() int {
	return int(unsafe.Sizeof(*f))
}
