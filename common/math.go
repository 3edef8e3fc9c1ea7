package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// StructToBytes reinterprets a pointer to a plain-data value as a raw byte slice using unsafe.
// The returned slice has length equal to the value's size in memory and aliases it.
//
// Parameters:
//   - v: pointer to the value to reinterpret
//
// Returns:
//   - []byte: byte slice view of the value's memory
func StructToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

// BytesToStruct copies len(unsafe.Sizeof(T)) bytes from data into a new T.
// Returns false when data is too short.
//
// Parameters:
//   - data: the source bytes
//
// Returns:
//   - T: the decoded value
//   - bool: true if data held enough bytes
func BytesToStruct[T any](data []byte) (T, bool) {
	var v T
	dst := StructToBytes(&v)
	if len(data) < len(dst) {
		return v, false
	}
	copy(dst, data)
	return v, true
}

// AlignUp rounds n up to the next multiple of align. align must be a power of two.
func AlignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Perspective creates a right-handed perspective projection matrix that maps depth into
// the WebGPU clip space range [0, 1] (mgl32.Perspective targets OpenGL's [-1, 1]).
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1.0 / math.Tan(float64(fovY)/2.0))
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1.0
	m[14] = (near * far) / (near - far)
	return m
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 of world, widened back to a 4x4
// so it can be uploaded with std140 column padding. A singular world matrix yields identity.
//
// Parameters:
//   - world: the object-to-world transform
//
// Returns:
//   - mgl32.Mat4: the normal matrix
func NormalMatrix(world mgl32.Mat4) mgl32.Mat4 {
	m3 := world.Mat3()
	if det := m3.Det(); det > -1e-8 && det < 1e-8 {
		return mgl32.Ident4()
	}
	return m3.Inv().Transpose().Mat4()
}
