package dsp

import (
	"encoding/binary"

	"github.com/viterin/vek/vek32"
)

const downmixShift = 12

// DownmixInt16 converts the accumulated samples into 16-bit little endian PCM.
// dst must fit 2*len(src) bytes.
func DownmixInt16(dst []byte, src []int32, amp int, unsigned bool) {
	shift := downmixShift - amp
	offset := 0
	if unsigned {
		offset = 0x8000
	}
	for i, v := range src {
		smp := int(v >> shift)
		if smp > 32767 {
			smp = 32767
		} else if smp < -32768 {
			smp = -32768
		}
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(int16(smp)+int16(offset)))
	}
}

// DownmixInt8 converts the accumulated samples into 8-bit PCM.
// dst must fit len(src) bytes.
func DownmixInt8(dst []byte, src []int32, amp int, unsigned bool) {
	shift := downmixShift + 8 - amp
	offset := 0
	if unsigned {
		offset = 0x80
	}
	for i, v := range src {
		smp := int(v >> shift)
		if smp > 127 {
			smp = 127
		} else if smp < -128 {
			smp = -128
		}
		dst[i] = uint8(int8(smp) + int8(offset))
	}
}

// DownmixFloat32 converts the accumulated samples into [-1, 1] floats.
// It matches the DownmixInt16 scale without its quantization.
func DownmixFloat32(dst []float32, src []int32, amp int) []float32 {
	dst = vek32.FromInt32_Into(dst[:0], src)
	vek32.MulNumber_Inplace(dst, 1.0/float32(int(1)<<(downmixShift-amp+15)))
	vek32.MinimumNumber_Inplace(dst, 1)
	vek32.MaximumNumber_Inplace(dst, -1)
	return dst
}
