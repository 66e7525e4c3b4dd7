package voxelhash

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// Intrinsics describes a depth camera's image dimensions and pinhole
// projection parameters. Camera I/O and undistortion happen upstream of
// this package; this is the narrow interface the engine needs from a
// calibrated camera.
type Intrinsics struct {
	Width, Height int
	Fx, Fy        float64
	Cx, Cy        float64
}

// Project maps a point in camera space to a pixel coordinate. ok is false
// if the point projects outside the image bounds or is behind the camera
// (non-positive Z).
func (k Intrinsics) Project(p r3.Vector) (u, v int, ok bool) {
	if p.Z <= 0 {
		return 0, 0, false
	}
	u = int(k.Fx*p.X/p.Z + k.Cx)
	v = int(k.Fy*p.Y/p.Z + k.Cy)
	if u < 0 || u >= k.Width || v < 0 || v >= k.Height {
		return 0, 0, false
	}
	return u, v, true
}

// Unproject maps a pixel coordinate and depth value to a point in camera
// space, the inverse of Project.
func (k Intrinsics) Unproject(u, v int, depth float64) r3.Vector {
	return r3.Vector{
		X: (float64(u) - k.Cx) * depth / k.Fx,
		Y: (float64(v) - k.Cy) * depth / k.Fy,
		Z: depth,
	}
}

// DepthFrame is a row-major depth image in meters; 0 marks an invalid pixel.
type DepthFrame struct {
	Width, Height int
	Depth         []float32
}

// At returns the depth at pixel (u,v).
func (f DepthFrame) At(u, v int) float32 {
	return f.Depth[v*f.Width+u]
}

// ColorFrame is a row-major registered color image aligned to the depth
// frame of the same dimensions.
type ColorFrame struct {
	Width, Height int
	Pix           []color.NRGBA
}

// At returns the color at pixel (u,v).
func (f ColorFrame) At(u, v int) color.NRGBA {
	return f.Pix[v*f.Width+u]
}

// Mask is a packed per-pixel bitmask: a cleared bit marks a pixel that the
// allocator skips. The integration pass does not consult the mask.
type Mask struct {
	Width, Height int
	Bits          []uint64
}

// Passes reports whether pixel (u,v) is allowed through the mask. A zero-
// value Mask (no Bits) passes every pixel.
func (m Mask) Passes(u, v int) bool {
	if len(m.Bits) == 0 {
		return true
	}
	idx := v*m.Width + u
	word := m.Bits[idx/64]
	bit := uint(idx % 64)
	return word&(1<<bit) != 0
}

// matchesIntrinsics reports whether the frame dimensions agree with k. The
// pipeline checks this before launching any pass, so a caller that hands in
// mismatched frames gets a clean error instead of an out-of-bounds panic
// partway through a pass.
func matchesIntrinsics(k Intrinsics, depth DepthFrame, color ColorFrame, mask Mask) bool {
	if depth.Width != k.Width || depth.Height != k.Height {
		return false
	}
	if color.Pix != nil && (color.Width != k.Width || color.Height != k.Height) {
		return false
	}
	if len(mask.Bits) != 0 && (mask.Width != k.Width || mask.Height != k.Height) {
		return false
	}
	return true
}
