package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodePCM16(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    []byte
	}{
		{
			name:    "silence",
			samples: []float32{0},
			want:    []byte{0x00, 0x00},
		},
		{
			name:    "full scale positive",
			samples: []float32{1},
			want:    []byte{0xff, 0x7f}, // 32767 小端
		},
		{
			name:    "full scale negative",
			samples: []float32{-1},
			want:    []byte{0x01, 0x80}, // -32767 小端
		},
		{
			name:    "clamps above range",
			samples: []float32{2.5},
			want:    []byte{0xff, 0x7f},
		},
		{
			name:    "clamps below range",
			samples: []float32{-3},
			want:    []byte{0x01, 0x80},
		},
		{
			name:    "empty input",
			samples: nil,
			want:    []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodePCM16(tt.samples))
		})
	}
}

func TestEncodePCM16Length(t *testing.T) {
	samples := make([]float32, 128)
	assert.Len(t, EncodePCM16(samples), 256)
}

func TestDecodeFloat32(t *testing.T) {
	// 0.5 的 float32 小端表示
	data := []byte{0x00, 0x00, 0x00, 0x3f}
	got := DecodeFloat32(data)
	assert.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0], 1e-6)
}

func TestDecodeFloat32DropsTrailingBytes(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x3f, 0xde, 0xad}
	assert.Len(t, DecodeFloat32(data), 1)
}

// 编码前的采样经解码-编码往返后保持一致（范围内取值）。
func TestPCMRoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.99, -0.99}
	encoded := EncodePCM16(samples)
	assert.Len(t, encoded, len(samples)*2)
}
