package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RigidTransform is a rigid body transform (rotation + translation) represented
// as a 4x4 homogeneous matrix. It is the pose type the voxel hashing engine
// uses for camera extrinsics: a world-to-camera transform plus its inverse.
type RigidTransform struct {
	mat mgl64.Mat4
}

// NewRigidTransform wraps a 4x4 matrix as a RigidTransform. The caller is
// responsible for mat being a valid rigid transform (orthonormal upper-left
// 3x3, arbitrary translation in the last column).
func NewRigidTransform(mat mgl64.Mat4) RigidTransform {
	return RigidTransform{mat: mat}
}

// Identity returns the identity RigidTransform.
func Identity() RigidTransform {
	return RigidTransform{mat: mgl64.Ident4()}
}

// Matrix returns the underlying 4x4 homogeneous matrix.
func (t RigidTransform) Matrix() mgl64.Mat4 {
	return t.mat
}

// Translation returns the transform's translation component.
func (t RigidTransform) Translation() r3.Vector {
	col := t.mat.Col(3)
	return r3.Vector{X: col.X(), Y: col.Y(), Z: col.Z()}
}

// Inverse returns the inverse of t. For a rigid transform this is the
// transpose of the rotation block and the negated, rotated translation;
// computed here via a full matrix inverse since mgl64 provides one directly.
func (t RigidTransform) Inverse() RigidTransform {
	return RigidTransform{mat: t.mat.Inv()}
}

// Compose returns the transform that applies t first, then other: other * t.
func (t RigidTransform) Compose(other RigidTransform) RigidTransform {
	return RigidTransform{mat: other.mat.Mul4(t.mat)}
}

// TransformPoint applies the transform to a point, returning the point in the
// transform's target frame.
func (t RigidTransform) TransformPoint(p r3.Vector) r3.Vector {
	v := t.mat.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// Quaternion returns the rotation component of the transform as a unit
// quaternion, used by the orthonormality check below.
func (t RigidTransform) Quaternion() quat.Number {
	q := mgl64.Mat4ToQuat(t.mat)
	return quat.Number{Real: q.W, Imag: q.X(), Jmag: q.Y(), Kmag: q.Z()}
}

// IsOrthonormal reports whether the rotation block of t is orthonormal to
// within tol: its quaternion representation must have unit norm, and
// composing t with its inverse must recover the identity to within tol.
func (t RigidTransform) IsOrthonormal(tol float64) bool {
	q := t.Quaternion()
	if diff := quat.Abs(q) - 1; diff > tol || diff < -tol {
		return false
	}
	round := t.Compose(t.Inverse())
	id := mgl64.Ident4()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			d := round.mat.At(r, c) - id.At(r, c)
			if d > tol || d < -tol {
				return false
			}
		}
	}
	return true
}
