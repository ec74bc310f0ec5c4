// gpu_scene_handles.go - the GPU-resident scene resource bundle (spec §9,
// "GPU handle ownership"). Owned exclusively by the render role; created on
// scene hot-swap, destroyed on the next hot-swap or engine shutdown.

package main

import vk "github.com/goki/vulkan"

// gpuSceneHandles bundles the three device buffers backing the currently
// bound scene (vertex stream, material stream, flattened BVH) plus their
// backing allocations and the triangle count the shader dispatches over.
// When the empty scene is bound, all three buffer fields hold the renderer's
// dummy buffer, the memory fields are null and the triangle count is 0 (see
// render_vulkan.go bindDummyScene); such a bundle is never passed to destroy,
// since the dummy buffer is freed separately.
type gpuSceneHandles struct {
	vertexBuffer   vk.Buffer
	vertexMemory   vk.DeviceMemory
	materialBuffer vk.Buffer
	materialMemory vk.DeviceMemory
	bvhBuffer      vk.Buffer
	bvhMemory      vk.DeviceMemory
	triangleCount  uint32
}

// destroy issues the six destroy calls in creation-reverse order. Safe to
// call on a zero-value handles struct (e.g. before the first scene ever
// loads) since vk.NullHandle buffers/memory are simply skipped.
func (h *gpuSceneHandles) destroy(device vk.Device) {
	if h == nil {
		return
	}
	destroyBuffer(device, h.bvhBuffer, h.bvhMemory)
	destroyBuffer(device, h.materialBuffer, h.materialMemory)
	destroyBuffer(device, h.vertexBuffer, h.vertexMemory)
	*h = gpuSceneHandles{}
}

func destroyBuffer(device vk.Device, buf vk.Buffer, mem vk.DeviceMemory) {
	if buf != vk.NullBuffer {
		vk.DestroyBuffer(device, buf, nil)
	}
	if mem != vk.NullDeviceMemory {
		vk.FreeMemory(device, mem, nil)
	}
}
