package common

import (
	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// IdentityMatrix returns a fresh identity matrix as a value.
//
// Returns:
//   - [16]float32: the identity matrix in column-major order
func IdentityMatrix() [16]float32 {
	var m [16]float32
	Identity(m[:])
	return m
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (WebGPU convention).
// Result: out = a * b. out may alias a or b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of b
		for j := 0; j < 4; j++ { // row of a
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Compose builds a column-major TRS matrix from a translation, a full 4x4
// rotation matrix, and per-axis scale factors: out = T * R * S.
// This is the composition the instance buffer stores per object; because the
// storage is column-major no additional transpose is applied before upload.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - translation: world-space translation (x, y, z)
//   - rotation: rotation matrix (16 elements, column-major)
//   - scale: per-axis scale factors (x, y, z)
func Compose(out []float32, translation [3]float32, rotation []float32, scale [3]float32) {
	// Columns of R scaled by S; translation occupies the fourth column.
	for c := 0; c < 3; c++ {
		s := scale[c]
		out[c*4+0] = rotation[c*4+0] * s
		out[c*4+1] = rotation[c*4+1] * s
		out[c*4+2] = rotation[c*4+2] * s
		out[c*4+3] = 0
	}
	out[12] = translation[0]
	out[13] = translation[1]
	out[14] = translation[2]
	out[15] = 1
}

// Transpose4 transposes a 4x4 matrix into out. out may alias m.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements)
func Transpose4(out, m []float32) {
	var buf [16]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			buf[r*4+c] = m[c*4+r]
		}
	}
	copy(out, buf[:])
}

// RotationY builds a column-major rotation matrix around the Y axis.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - angle: rotation angle in radians
func RotationY(out []float32, angle float32) {
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	Identity(out)
	out[0], out[8] = c, s
	out[2], out[10] = -s, c
}

// RotationAxis builds a column-major rotation matrix around an arbitrary
// axis using Rodrigues' formula. The axis is normalized internally; a zero
// axis yields the identity.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - axis: rotation axis (need not be normalized)
//   - angle: rotation angle in radians
func RotationAxis(out []float32, axis [3]float32, angle float32) {
	lenSq := axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2]
	if lenSq == 0 {
		Identity(out)
		return
	}
	invLen := 1.0 / math32.Sqrt(lenSq)
	x := axis[0] * invLen
	y := axis[1] * invLen
	z := axis[2] * invLen

	c := math32.Cos(angle)
	s := math32.Sin(angle)
	t := 1 - c

	out[0] = t*x*x + c
	out[1] = t*x*y + s*z
	out[2] = t*x*z - s*y
	out[3] = 0

	out[4] = t*x*y - s*z
	out[5] = t*y*y + c
	out[6] = t*y*z + s*x
	out[7] = 0

	out[8] = t*x*z + s*y
	out[9] = t*y*z - s*x
	out[10] = t*z*z + c
	out[11] = 0

	out[12], out[13], out[14], out[15] = 0, 0, 0, 1
}

// TransformDirection applies the upper-left 3x3 of a column-major matrix to
// a direction vector (no translation).
//
// Parameters:
//   - m: transform matrix (16 elements, column-major)
//   - v: direction vector
//
// Returns:
//   - [3]float32: the rotated direction
func TransformDirection(m []float32, v [3]float32) [3]float32 {
	return [3]float32{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2],
	}
}

// Perspective creates a perspective projection matrix targeting WebGPU clip
// space [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / math32.Tan(fovY/2.0)
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// ViewFromRotationPosition builds a view matrix from a camera's inverse
// rotation matrix and world position: V = R⁻¹ * T(-pos). The inverse
// rotation is supplied by the caller (entities cache it).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - invRotation: the inverse of the camera's rotation matrix (16 elements)
//   - position: the camera's world position (x, y, z)
func ViewFromRotationPosition(out, invRotation []float32, position [3]float32) {
	var translate [16]float32
	Identity(translate[:])
	translate[12] = -position[0]
	translate[13] = -position[1]
	translate[14] = -position[2]
	Mul4(out, invRotation, translate[:])
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the
// Laplace expansion (cofactor) method. If the matrix is singular
// (determinant ≈ 0) the output is left unchanged and the function returns
// false.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(out, m []float32) bool {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}

	invDet := 1.0 / det

	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet

	return true
}

// FloorDiv returns ⌊v / size⌋ as an int32, the chunk coordinate of a world
// coordinate for a given chunk size.
//
// Parameters:
//   - v: world-space coordinate
//   - size: chunk edge length (must be > 0)
//
// Returns:
//   - int32: the chunk coordinate
func FloorDiv(v, size float32) int32 {
	return int32(math32.Floor(v / size))
}
