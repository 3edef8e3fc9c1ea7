package model

// cubeFaces lists each face as its normal and the two in-plane axes.
var cubeFaces = [6]struct{ n, u, v [3]float32 }{
	{n: [3]float32{1, 0, 0}, u: [3]float32{0, 0, -1}, v: [3]float32{0, 1, 0}},
	{n: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}},
	{n: [3]float32{0, 1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, -1}},
	{n: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}},
	{n: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}},
	{n: [3]float32{0, 0, -1}, u: [3]float32{-1, 0, 0}, v: [3]float32{0, 1, 0}},
}

// CubeData returns the 24 vertices and 36 counter-clockwise indices of an axis aligned cube
// centered on the origin.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - []Vertex: four vertices per face
//   - []uint32: two triangles per face
func CubeData(size float32) ([]Vertex, []uint32) {
	h := size / 2
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range cubeFaces {
		base := uint32(len(vertices))
		for _, c := range corners {
			var p [3]float32
			for i := range p {
				p[i] = (f.n[i] + c[0]*f.u[i] + c[1]*f.v[i]) * h
			}
			vertices = append(vertices, Vertex{
				Position: p,
				Normal:   f.n,
				TexCoord: [2]float32{(c[0] + 1) / 2, 1 - (c[1]+1)/2},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// NewCube creates an indexed cube mesh.
//
// Parameters:
//   - name: the mesh name
//   - size: the edge length
//   - options: additional mesh options, applied after the cube data
//
// Returns:
//   - Mesh: the cube
func NewCube(name string, size float32, options ...MeshBuilderOption) Mesh {
	v, i := CubeData(size)
	return NewMesh(name, append([]MeshBuilderOption{WithVertices(v), WithIndices(i)}, options...)...)
}

// NewPlane creates an indexed XZ plane facing +Y.
//
// Parameters:
//   - name: the mesh name
//   - size: the edge length
//
// Returns:
//   - Mesh: the plane
func NewPlane(name string, size float32) Mesh {
	h := size / 2
	up := [3]float32{0, 1, 0}
	return NewMesh(name,
		WithVertices([]Vertex{
			{Position: [3]float32{-h, 0, h}, Normal: up, TexCoord: [2]float32{0, 1}},
			{Position: [3]float32{h, 0, h}, Normal: up, TexCoord: [2]float32{1, 1}},
			{Position: [3]float32{h, 0, -h}, Normal: up, TexCoord: [2]float32{1, 0}},
			{Position: [3]float32{-h, 0, -h}, Normal: up, TexCoord: [2]float32{0, 0}},
		}),
		WithIndices([]uint32{0, 1, 2, 0, 2, 3}),
	)
}

// NewSkyboxCube creates a unit cube whose triangles face inwards, for drawing a sky from inside.
func NewSkyboxCube(name string) Mesh {
	v, idx := CubeData(2)
	for i := 0; i < len(idx); i += 3 {
		idx[i+1], idx[i+2] = idx[i+2], idx[i+1]
	}
	for i := range v {
		for j := range v[i].Normal {
			v[i].Normal[j] = -v[i].Normal[j]
		}
	}
	return NewMesh(name, WithVertices(v), WithIndices(idx))
}
