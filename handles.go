package paya

// ResourceId is the versioned address of a slot inside an Arena. Index
// names the slot; Version must match the slot's current generation or the
// handle is stale.
type ResourceId struct {
	Index   uint32
	Version uint16
}

// PackedId projects a ResourceId's Index into the 32-bit scalar shaders
// receive through push constants. Generations never cross the CPU/GPU
// boundary: GPU code trusts the index, the CPU enforces the version.
type PackedId uint32

// Pack drops the version and keeps only the slot index, ready to upload.
func (r ResourceId) Pack() PackedId {
	return PackedId(r.Index)
}

// ImageId identifies a slot in a resource pool's image arena.
type ImageId struct {
	ResourceId
}

// BufferId identifies a slot in a resource pool's buffer arena.
type BufferId struct {
	ResourceId
}

func (id ImageId) Pack() PackedId  { return id.ResourceId.Pack() }
func (id BufferId) Pack() PackedId { return id.ResourceId.Pack() }
