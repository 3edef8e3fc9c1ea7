package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(a [3]float32) mgl32.Vec3 { return mgl32.Vec3(a) }

func TestCubeTrianglesFaceOutwards(t *testing.T) {
	v, idx := CubeData(2)
	require.Len(t, v, 24)
	require.Len(t, idx, 36)
	for i := 0; i < len(idx); i += 3 {
		a, b, c := vec(v[idx[i]].Position), vec(v[idx[i+1]].Position), vec(v[idx[i+2]].Position)
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		assert.InDelta(t, 1, n.Dot(vec(v[idx[i]].Normal)), 1e-5, "triangle %d", i/3)
	}
	assert.Equal(t, 32, (&Vertex{}).Size())
}

func TestSkyboxTrianglesFaceInwards(t *testing.T) {
	m := NewSkyboxCube("sky")
	v, idx := m.Vertices(), m.Indices()
	a, b, c := vec(v[idx[0]].Position), vec(v[idx[1]].Position), vec(v[idx[2]].Position)
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	assert.Less(t, n.Dot(a), float32(0))
	assert.InDelta(t, mgl32.Vec3{1, 1, 1}.Len(), m.BoundingRadius(), 1e-5)
}

func TestMeshUploadAndGeometry(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithMode(renderer.ModeSingleLoop))
	require.NoError(t, err)
	defer r.Destroy()

	cube := NewCube("cube", 1)
	assert.False(t, cube.Uploaded())
	assert.Equal(t, command.Geometry{}, cube.Geometry())

	require.NoError(t, cube.Upload(r))
	require.NoError(t, cube.Upload(r))
	g := cube.Geometry()
	assert.True(t, g.Indexed())
	assert.Equal(t, uint32(36), g.IndexCount)
	assert.Equal(t, uint32(24), g.VertexCount)
	assert.Equal(t, command.BufferHandle(command.InvalidHandle), cube.Indirect())

	cube.Release(r)
	assert.False(t, cube.Uploaded())

	_, err = r.CreateBuffer(renderer.BufferDescriptor{})
	assert.Error(t, err)
	assert.Error(t, NewMesh("empty").Upload(r))
}

func TestMeshIndirectBuffer(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithMode(renderer.ModeSingleLoop))
	require.NoError(t, err)
	defer r.Destroy()

	m := NewCube("instanced", 1, WithIndirectDraw(0))
	require.NoError(t, m.Upload(r))
	assert.NotEqual(t, command.BufferHandle(command.InvalidHandle), m.Indirect())
	assert.NotPanics(t, func() { m.SetIndirectInstanceCount(r, 16) })

	plane := NewPlane("floor", 10)
	assert.NotPanics(t, func() { plane.SetIndirectInstanceCount(r, 2) })
	assert.InDelta(t, 5*1.41421356, plane.BoundingRadius(), 1e-4)
}
