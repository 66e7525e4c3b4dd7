package spatialmath

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestIdentityRoundTrip(t *testing.T) {
	id := Identity()
	test.That(t, id.Translation(), test.ShouldResemble, r3.Vector{})
	test.That(t, id.IsOrthonormal(1e-9), test.ShouldBeTrue)

	inv := id.Inverse()
	test.That(t, inv.Matrix(), test.ShouldResemble, mgl64.Ident4())
}

func TestRigidTransformInverse(t *testing.T) {
	rot := mgl64.HomogRotate3DZ(0.4).Mul4(mgl64.HomogRotate3DX(0.2))
	translation := mgl64.Translate3D(1, 2, 3)
	m := translation.Mul4(rot)
	tr := NewRigidTransform(m)

	test.That(t, tr.IsOrthonormal(1e-9), test.ShouldBeTrue)

	p := r3.Vector{X: 0.5, Y: -1, Z: 2}
	transformed := tr.TransformPoint(p)
	back := tr.Inverse().TransformPoint(transformed)

	test.That(t, back.X, test.ShouldAlmostEqual, p.X)
	test.That(t, back.Y, test.ShouldAlmostEqual, p.Y)
	test.That(t, back.Z, test.ShouldAlmostEqual, p.Z)
}

func TestComposeIdentity(t *testing.T) {
	id := Identity()
	rot := NewRigidTransform(mgl64.Translate3D(1, 0, 0))
	composed := id.Compose(rot)
	test.That(t, composed.Translation(), test.ShouldResemble, rot.Translation())
}
