package vkres

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// ByteSource is anything that can be uploaded into a buffer.
type ByteSource interface {
	Bytes() []byte
}

// IndexSource is a ByteSource holding vertex indices.
type IndexSource interface {
	ByteSource
	IndexType() vk.IndexType
}

// RawBytes uploads a byte slice as is.
type RawBytes []byte

func (r RawBytes) Bytes() []byte { return r }

type IndexSliceUint16 []uint16

// Bytes aliases the slice's memory.
func (i IndexSliceUint16) Bytes() []byte {
	if len(i) == 0 {
		return nil
	}
	return ToBytes(unsafe.Pointer(&i[0]), len(i)*int(unsafe.Sizeof(i[0])))
}

func (i IndexSliceUint16) IndexType() vk.IndexType {
	return vk.IndexTypeUint16
}

type IndexSliceUint32 []uint32

// Bytes aliases the slice's memory.
func (i IndexSliceUint32) Bytes() []byte {
	if len(i) == 0 {
		return nil
	}
	return ToBytes(unsafe.Pointer(&i[0]), len(i)*int(unsafe.Sizeof(i[0])))
}

func (i IndexSliceUint32) IndexType() vk.IndexType {
	return vk.IndexTypeUint32
}

// usageFor returns the buffer usage a source implies.
func usageFor(src ByteSource) vk.BufferUsageFlagBits {
	if _, ok := src.(IndexSource); ok {
		return vk.BufferUsageIndexBufferBit
	}
	return 0
}
