package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcm16(values ...int16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestPcmToFloat32_Empty(t *testing.T) {
	if out := pcmToFloat32(nil); len(out) != 0 {
		t.Fatalf("expected 0 samples, got %d", len(out))
	}
}

func TestPcmToFloat32_Scaling(t *testing.T) {
	tests := []struct {
		name  string
		value int16
		want  float32
	}{
		{"max positive", 32767, 32767.0 / 32768.0},
		{"max negative", -32768, -1.0},
		{"zero", 0, 0.0},
		{"mid positive", 16384, 0.5},
		{"mid negative", -16384, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pcmToFloat32(pcm16(tt.value))
			if math.Abs(float64(out[0]-tt.want)) > 1e-6 {
				t.Errorf("pcmToFloat32(%d) = %f; want %f", tt.value, out[0], tt.want)
			}
		})
	}
}

func TestPcmToFloat32_OddByteCount(t *testing.T) {
	// 3 bytes → only 1 complete sample (trailing byte ignored)
	out := pcmToFloat32([]byte{0x00, 0x40, 0xFF})
	if len(out) != 1 {
		t.Fatalf("expected 1 sample from 3-byte input, got %d", len(out))
	}
}

func TestPcmToFloat32Mono_SingleChannel(t *testing.T) {
	// channels=1 should be identical to pcmToFloat32
	pcm := pcm16(100, -200, 300)
	mono := pcmToFloat32Mono(pcm, 1)
	direct := pcmToFloat32(pcm)
	if len(mono) != len(direct) {
		t.Fatalf("length mismatch: mono=%d, direct=%d", len(mono), len(direct))
	}
	for i := range mono {
		if mono[i] != direct[i] {
			t.Errorf("sample[%d]: mono=%f, direct=%f", i, mono[i], direct[i])
		}
	}
}

func TestPcmToFloat32Mono_Stereo(t *testing.T) {
	// Two stereo frames: (1000, 3000) and (-2000, -4000).
	mono := pcmToFloat32Mono(pcm16(1000, 3000, -2000, -4000), 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples from 4-sample stereo, got %d", len(mono))
	}
	want0 := float32(2000) / 32768.0
	if math.Abs(float64(mono[0]-want0)) > 1e-6 {
		t.Errorf("mono[0] = %f; want %f", mono[0], want0)
	}
	want1 := float32(-3000) / 32768.0
	if math.Abs(float64(mono[1]-want1)) > 1e-6 {
		t.Errorf("mono[1] = %f; want %f", mono[1], want1)
	}
}

func TestPcmToFloat32Mono_ThreeChannels(t *testing.T) {
	mono := pcmToFloat32Mono(pcm16(3000, 6000, 9000), 3)
	if len(mono) != 1 {
		t.Fatalf("expected 1 mono sample from 3-channel frame, got %d", len(mono))
	}
	want := float32(6000) / 32768.0
	if math.Abs(float64(mono[0]-want)) > 1e-6 {
		t.Errorf("mono[0] = %f; want %f", mono[0], want)
	}
}

func TestComputeRMS(t *testing.T) {
	if rms := computeRMS(nil); rms != 0 {
		t.Errorf("expected 0 RMS for empty buffer, got %f", rms)
	}
	if rms := computeRMS(pcm16(0, 0, 0, 0)); rms != 0 {
		t.Errorf("expected 0 RMS for silence, got %f", rms)
	}
	// Constant amplitude: RMS equals the amplitude.
	if rms := computeRMS(pcm16(1000, -1000, 1000, -1000)); math.Abs(rms-1000) > 1e-6 {
		t.Errorf("expected RMS 1000, got %f", rms)
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := pcm16(1, 2, 3, 4)
	wav := encodeWAV(pcm, 16000, 1)
	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("expected sample rate 16000, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("expected 1 channel, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("expected data size %d, got %d", len(pcm), got)
	}
}
