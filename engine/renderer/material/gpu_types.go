package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParamsSource is the WGSL declaration matching GPUMaterialParams, bound at the
// material uniform slot.
const GPUMaterialParamsSource = `struct MaterialParams {
    base_color: vec4<f32>,
    emissive: vec4<f32>,
    metallic: f32,
    roughness: f32,
    alpha_cutoff: f32,
    textured: u32,
};
`

// GPUMaterialParams is the per-material uniform block.
// Size: 48 bytes (std140 aligned, no padding required).
type GPUMaterialParams struct {
	BaseColor   [4]float32 // offset  0: linear RGBA albedo (16 bytes)
	Emissive    [4]float32 // offset 16: RGB emission, A unused (16 bytes)
	Metallic    float32    // offset 32
	Roughness   float32    // offset 36
	AlphaCutoff float32    // offset 40: 0 disables alpha testing
	Textured    uint32     // offset 44: 1 when the base color texture is sampled
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 48)
	for i, v := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range g.Emissive {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.AlphaCutoff))
	binary.LittleEndian.PutUint32(buf[44:48], g.Textured)
	return buf
}
