// ABOUTME: Audio type definitions
// ABOUTME: Defines wire chunks, decoded buffers and sample conversions
package audio

import "math"

const (
	// 16-bit PCM scale used on the wire
	MaxInt16 = 32767
	MinInt16 = -32768

	// InputSampleRate is the capture rate sent to the endpoint
	InputSampleRate = 16000

	// OutputSampleRate is the rate inbound chunks are decoded at
	OutputSampleRate = 24000

	// Byte time-domain silence level used by analysis buffers
	ByteCenter = 128
)

// EncodedChunk is one unit of encoded audio on the message channel.
type EncodedChunk struct {
	Data     string // base64 little-endian int16 PCM
	MimeType string // e.g. "audio/pcm;rate=16000"
}

// DecodedBuffer is playable PCM, one float32 slice per channel
type DecodedBuffer struct {
	Channels   [][]float32
	SampleRate int
	Duration   float64 // seconds
}

// Frames returns the number of sample frames in the buffer
func (b DecodedBuffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// NewDecodedBuffer builds a buffer and derives its duration
func NewDecodedBuffer(channels [][]float32, sampleRate int) DecodedBuffer {
	buf := DecodedBuffer{Channels: channels, SampleRate: sampleRate}
	if sampleRate > 0 {
		buf.Duration = float64(buf.Frames()) / float64(sampleRate)
	}
	return buf
}

// Clamp limits a sample to [-1, 1]
func Clamp(sample float32) float32 {
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}

// SampleToInt16 quantizes a float sample to 16-bit PCM
func SampleToInt16(sample float32) int16 {
	return int16(math.Round(float64(Clamp(sample)) * MaxInt16))
}

// SampleFromInt16 converts a 16-bit PCM sample back to float in [-1, 1]
func SampleFromInt16(sample int16) float32 {
	return Clamp(float32(sample) / MaxInt16)
}

// SampleToByte maps a float sample to the unsigned byte time-domain range
// (0-255, silence at 128)
func SampleToByte(sample float32) byte {
	v := math.Round(ByteCenter * (1 + float64(sample)))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
