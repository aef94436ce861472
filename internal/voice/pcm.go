package voice

import (
	"encoding/binary"
	"math"
)

// EncodePCM16 将 float32 采样转换为 16 位小端 PCM。
// 采样值先被钳制到 [-1, 1]，越界输入不会回绕。
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodeFloat32 将小端 float32 字节流解析为采样切片。
// 末尾不足 4 字节的残余数据被丢弃。
func DecodeFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
