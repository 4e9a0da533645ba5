// ABOUTME: PCM audio encoder
// ABOUTME: Encodes float32 capture frames to base64 16-bit PCM chunks
package encode

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/livevoice/livevoice-go/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	mimeType  string
	channels  int
	frameSize int
}

// NewPCM creates a new PCM encoder. frameSize is the expected number of
// samples per frame, or 0 to accept any length.
func NewPCM(sampleRate, channels, frameSize int) (*PCMEncoder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if frameSize < 0 {
		return nil, fmt.Errorf("invalid frame size: %d", frameSize)
	}

	return &PCMEncoder{
		mimeType:  MimeType(sampleRate, channels),
		channels:  channels,
		frameSize: frameSize,
	}, nil
}

// MimeType builds the hint describing a PCM stream
func MimeType(sampleRate, channels int) string {
	if channels == 1 {
		return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
	}
	return fmt.Sprintf("audio/pcm;rate=%d;channels=%d", sampleRate, channels)
}

// Encode converts interleaved float32 samples to a base64 PCM chunk
func (e *PCMEncoder) Encode(frame []float32) (audio.EncodedChunk, error) {
	if len(frame) == 0 {
		return audio.EncodedChunk{}, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	if e.frameSize > 0 && len(frame) != e.frameSize {
		return audio.EncodedChunk{}, fmt.Errorf("%w: got %d samples, want %d",
			ErrInvalidFrame, len(frame), e.frameSize)
	}
	if len(frame)%e.channels != 0 {
		return audio.EncodedChunk{}, fmt.Errorf("%w: %d samples is not a multiple of %d channels",
			ErrInvalidFrame, len(frame), e.channels)
	}

	// 16-bit PCM: 2 bytes per sample
	output := make([]byte, len(frame)*2)
	for i, sample := range frame {
		if math.IsNaN(float64(sample)) {
			return audio.EncodedChunk{}, fmt.Errorf("%w: NaN at sample %d", ErrInvalidFrame, i)
		}
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}

	return audio.EncodedChunk{
		Data:     base64.StdEncoding.EncodeToString(output),
		MimeType: e.mimeType,
	}, nil
}
