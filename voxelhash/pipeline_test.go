package voxelhash

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"go.viam.com/voxelhash/logging"
	"go.viam.com/voxelhash/spatialmath"
)

func testIntrinsics() Intrinsics {
	return Intrinsics{Width: 16, Height: 16, Fx: 20, Fy: 20, Cx: 8, Cy: 8}
}

func flatDepthFrame(intr Intrinsics, depth float32) DepthFrame {
	pixels := make([]float32, intr.Width*intr.Height)
	for i := range pixels {
		pixels[i] = depth
	}
	return DepthFrame{Width: intr.Width, Height: intr.Height, Depth: pixels}
}

func flatColorFrame(intr Intrinsics, c color.NRGBA) ColorFrame {
	pixels := make([]color.NRGBA, intr.Width*intr.Height)
	for i := range pixels {
		pixels[i] = c
	}
	return ColorFrame{Width: intr.Width, Height: intr.Height, Pix: pixels}
}

func newTestPipeline(t *testing.T) (*Pipeline, Intrinsics) {
	params := DefaultHashParams()
	params.NumBuckets = 64
	params.BucketSize = 4
	params.MaxOverflowChainLength = 64
	params.NumBricks = 64
	params.BrickSize = 8
	params.VoxelSize = 0.02

	intr := testIntrinsics()
	p, err := New(params, intr, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p, intr
}

func TestNewRejectsInvalidParams(t *testing.T) {
	params := DefaultHashParams()
	params.NumBuckets = 0
	_, err := New(params, testIntrinsics(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIntegrateFlatSurfaceAllocatesBricks(t *testing.T) {
	p, intr := newTestPipeline(t)

	depth := flatDepthFrame(intr, 1.0)
	col := flatColorFrame(intr, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	err := p.Integrate(spatialmath.Identity(), depth, col, Mask{})
	test.That(t, err, test.ShouldBeNil)

	state := p.GetHashState()
	test.That(t, state.NumOccupiedBlocks, test.ShouldBeGreaterThan, int32(0))
	test.That(t, state.Frame, test.ShouldEqual, 1)
	test.That(t, p.CheckInvariants(), test.ShouldBeNil)
}

func TestIntegrateRejectsMismatchedFrameDimensions(t *testing.T) {
	p, intr := newTestPipeline(t)

	bad := DepthFrame{Width: intr.Width + 1, Height: intr.Height, Depth: make([]float32, (intr.Width+1)*intr.Height)}
	err := p.Integrate(spatialmath.Identity(), bad, ColorFrame{}, Mask{})
	test.That(t, err, test.ShouldEqual, ErrFrameDimensionMismatch)
	test.That(t, p.FrameNumber(), test.ShouldEqual, 0)
}

func TestIntegrateEmptyDepthFrameIsNoop(t *testing.T) {
	p, intr := newTestPipeline(t)

	empty := flatDepthFrame(intr, 0)
	err := p.Integrate(spatialmath.Identity(), empty, ColorFrame{}, Mask{})
	test.That(t, err, test.ShouldBeNil)

	state := p.GetHashState()
	test.That(t, state.NumOccupiedBlocks, test.ShouldEqual, int32(0))
}

func TestResetIsIdempotent(t *testing.T) {
	p, intr := newTestPipeline(t)

	depth := flatDepthFrame(intr, 1.0)
	test.That(t, p.Integrate(spatialmath.Identity(), depth, ColorFrame{}, Mask{}), test.ShouldBeNil)

	p.Reset()
	firstState := p.GetHashState()
	p.Reset()
	secondState := p.GetHashState()

	test.That(t, firstState, test.ShouldResemble, secondState)
	test.That(t, firstState.NumOccupiedBlocks, test.ShouldEqual, int32(0))
	test.That(t, firstState.Frame, test.ShouldEqual, 0)
}

func TestGarbageCollectionReclaimsUnreinforcedBricks(t *testing.T) {
	p, intr := newTestPipeline(t)
	p.params.StarvePeriod = 1

	depth := flatDepthFrame(intr, 1.0)
	test.That(t, p.Integrate(spatialmath.Identity(), depth, ColorFrame{}, Mask{}), test.ShouldBeNil)
	afterFirst := p.GetHashState()
	test.That(t, afterFirst.NumOccupiedBlocks, test.ShouldBeGreaterThan, int32(0))

	// Integrate empty frames: nothing reinforces the already-allocated
	// bricks, so repeated starve sub-kernels should eventually collect them.
	empty := flatDepthFrame(intr, 0)
	for i := 0; i < int(p.params.IntegrationWeightMax)+2; i++ {
		test.That(t, p.Integrate(spatialmath.Identity(), empty, ColorFrame{}, Mask{}), test.ShouldBeNil)
	}

	finalState := p.GetHashState()
	test.That(t, finalState.HeapFree, test.ShouldEqual, finalState.HeapCapacity)
	test.That(t, p.CheckInvariants(), test.ShouldBeNil)
}

func TestRecompactForPoseUpdatesOccupancyWithoutNewFrame(t *testing.T) {
	p, intr := newTestPipeline(t)

	depth := flatDepthFrame(intr, 1.0)
	test.That(t, p.Integrate(spatialmath.Identity(), depth, ColorFrame{}, Mask{}), test.ShouldBeNil)

	farAway := spatialmath.NewRigidTransform(mgl64.Translate3D(1000, 1000, 1000))
	compacted := p.RecompactForPose(farAway)

	test.That(t, len(compacted), test.ShouldEqual, 0)
	test.That(t, p.GetPose(), test.ShouldResemble, farAway)
}
