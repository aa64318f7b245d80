package device

import "github.com/go-gl/mathgl/mgl32"

// Matrix is a 3x4 row-major affine transform: rotation/scale in the
// 3x3 block, translation in column 3. mgl32 has no native 3x4 affine
// type, so this module adds this thin wrapper on top of it.
type Matrix struct {
	X, Y, Z [4]float32
}

func IdentityMatrix() Matrix {
	return Matrix{
		X: [4]float32{1, 0, 0, 0},
		Y: [4]float32{0, 1, 0, 0},
		Z: [4]float32{0, 0, 1, 0},
	}
}

// MatrixFromMat4 keeps the upper-left 3x3 and the translation column of
// a 4x4 affine transform, discarding the trailing projective row.
func MatrixFromMat4(m mgl32.Mat4) Matrix {
	return Matrix{
		X: [4]float32{m.At(0, 0), m.At(0, 1), m.At(0, 2), m.At(0, 3)},
		Y: [4]float32{m.At(1, 0), m.At(1, 1), m.At(1, 2), m.At(1, 3)},
		Z: [4]float32{m.At(2, 0), m.At(2, 1), m.At(2, 2), m.At(2, 3)},
	}
}

// Apply transforms a point by the affine matrix.
func (m Matrix) Apply(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		m.X[0]*v.X() + m.X[1]*v.Y() + m.X[2]*v.Z() + m.X[3],
		m.Y[0]*v.X() + m.Y[1]*v.Y() + m.Y[2]*v.Z() + m.Y[3],
		m.Z[0]*v.X() + m.Z[1]*v.Y() + m.Z[2]*v.Z() + m.Z[3],
	}
}

const matrixSize = 48

func (m Matrix) ToBytes() []byte {
	buf := make([]byte, matrixSize)
	for i, v := range m.X {
		putFloat32(buf, i*4, v)
	}
	for i, v := range m.Y {
		putFloat32(buf, 16+i*4, v)
	}
	for i, v := range m.Z {
		putFloat32(buf, 32+i*4, v)
	}
	return buf
}
