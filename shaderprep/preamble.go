package shaderprep

import "fmt"

// defaultMaxImages matches paya.DefaultMaxImages (resourcepool.go). Kept
// as a private literal so that shaderprep does not import paya.
const defaultMaxImages = 1000

// Preamble is BuildPreamble(defaultMaxImages), matching a ResourcePool
// built with its own defaults.
var Preamble = BuildPreamble(defaultMaxImages)

// BuildPreamble renders the bindless preamble for a given image count.
// ExpandIncludes always prepends Preamble, the defaultMaxImages rendering;
// it takes no image count of its own. The preamble declares the
// bindless resource bindings paya's ResourcePool wires up (binding 0: the
// address table, binding 1: the storage-image array, sized to maxImages —
// which must match the ResourcePool's own MaxBindlessImages/maxImages, or
// WithResourcePoolLimits' argument, or shader compilation will disagree with
// the descriptor set layout about the array's length) plus the macros
// shader authors use to declare buffer-reference types against those
// addresses.
func BuildPreamble(maxImages uint32) string {
	return fmt.Sprintf(`#version 450

#extension GL_EXT_shader_explicit_arithmetic_types_int8 : enable
#extension GL_EXT_shader_explicit_arithmetic_types_int16 : enable
#extension GL_EXT_shader_explicit_arithmetic_types_int32 : enable
#extension GL_EXT_shader_explicit_arithmetic_types_int64 : enable
#extension GL_EXT_buffer_reference : enable
#extension GL_EXT_debug_printf : enable

layout (set = 0, binding = 0) readonly buffer BufferAddresses {
  uint64_t addresses[];
} u_addresses;
layout (set = 0, binding = 1, rgba8) uniform image2D u_images[%d];

struct ResourceId {
  uint32_t index;
};

#define DECL_PUSH_CONSTANTS layout(push_constant) uniform PushConstants
#define DECL_BUFFER(alignment) layout(std430, buffer_reference, buffer_reference_align = alignment) readonly buffer
#define DECL_BUFFER_WRITE(alignment) layout(std430, buffer_reference, buffer_reference_align = alignment) writeonly buffer
#define DECL_BUFFER_VOLATILE(alignment) layout(std430, buffer_reference, buffer_reference_align = alignment) volatile buffer
#define DECL_BUFFER_COHERENT(alignment) layout(std430, buffer_reference, buffer_reference_align = alignment) coherent buffer

#define get_buffer(id, type) type(u_addresses.addresses[id.index]);
#define get_storage_image(id) u_images[id.index]
`, maxImages)
}
