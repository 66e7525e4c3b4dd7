package voxelhash

// VoxelStore is the single pre-allocated buffer backing every brick:
// NumBricks*BrickSize^3 voxels, indexed by the brick index a HashEntry.Ptr
// holds. BrickHeap only tracks which indices are free; VoxelStore is the
// payload those indices address.
type VoxelStore struct {
	voxels    []Voxel
	brickSize int32
	vpb       int32 // voxels per brick, brickSize^3
}

// NewVoxelStore allocates storage for params.NumBricks bricks of
// params.BrickSize^3 voxels each.
func NewVoxelStore(params HashParams) *VoxelStore {
	vpb := params.voxelsPerBrick()
	return &VoxelStore{
		voxels:    make([]Voxel, params.NumBricks*vpb),
		brickSize: params.BrickSize,
		vpb:       vpb,
	}
}

// Brick returns the mutable voxel slice for brick index ptr.
func (s *VoxelStore) Brick(ptr int32) []Voxel {
	offset := ptr * s.vpb
	return s.voxels[offset : offset+s.vpb]
}

// VoxelAt returns the voxel at local coordinates (lx,ly,lz) within brick ptr.
func (s *VoxelStore) VoxelAt(ptr, lx, ly, lz int32) *Voxel {
	brick := s.Brick(ptr)
	return &brick[voxelIndex(lx, ly, lz, s.brickSize)]
}

// ClearBrick zeroes every voxel in brick ptr, used when a brick is freed so
// a later re-allocation of the same index starts from a clean slate.
func (s *VoxelStore) ClearBrick(ptr int32) {
	brick := s.Brick(ptr)
	for i := range brick {
		brick[i] = Voxel{}
	}
}
