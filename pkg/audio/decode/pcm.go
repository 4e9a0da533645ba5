// ABOUTME: PCM audio decoder
// ABOUTME: Decodes base64 16-bit PCM chunks into per-channel float buffers
package decode

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"mime"
	"strconv"

	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/resample"
)

// PCMDecoder decodes PCM audio. The zero value is ready to use.
type PCMDecoder struct{}

// NewPCM creates a new PCM decoder
func NewPCM() *PCMDecoder {
	return &PCMDecoder{}
}

// Decode converts a base64 PCM chunk to a buffer at targetRate with
// targetChannels channels. A chunk without a MIME hint is taken to be at
// the target rate and channel count already.
func (d *PCMDecoder) Decode(chunk audio.EncodedChunk, targetRate, targetChannels int) (audio.DecodedBuffer, error) {
	if targetRate <= 0 || targetChannels <= 0 {
		return audio.DecodedBuffer{}, fmt.Errorf("%w: invalid target %dHz/%dch", ErrDecode, targetRate, targetChannels)
	}

	srcRate, srcChannels, err := parseHint(chunk.MimeType, targetRate, targetChannels)
	if err != nil {
		return audio.DecodedBuffer{}, err
	}

	data, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		return audio.DecodedBuffer{}, fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return audio.DecodedBuffer{}, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if len(data)%2 != 0 {
		return audio.DecodedBuffer{}, fmt.Errorf("%w: odd payload length %d", ErrDecode, len(data))
	}
	if len(data)%(2*srcChannels) != 0 {
		return audio.DecodedBuffer{}, fmt.Errorf("%w: payload length %d is not whole %d-channel frames",
			ErrDecode, len(data), srcChannels)
	}

	// 16-bit PCM: 2 bytes per sample, interleaved
	frames := len(data) / (2 * srcChannels)
	channels := make([][]float32, srcChannels)
	for ch := range channels {
		channels[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < srcChannels; ch++ {
			off := (i*srcChannels + ch) * 2
			channels[ch][i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[off:])))
		}
	}

	channels = reframe(channels, targetChannels)

	if srcRate != targetRate {
		for ch := range channels {
			channels[ch] = resample.Linear(channels[ch], srcRate, targetRate)
		}
	}

	return audio.NewDecodedBuffer(channels, targetRate), nil
}

// parseHint extracts rate and channel count from a hint such as
// "audio/pcm;rate=16000;channels=2"
func parseHint(hint string, defRate, defChannels int) (int, int, error) {
	if hint == "" {
		return defRate, defChannels, nil
	}

	mediaType, params, err := mime.ParseMediaType(hint)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid MIME hint %q: %v", ErrDecode, hint, err)
	}
	if mediaType != "audio/pcm" {
		return 0, 0, fmt.Errorf("%w: unsupported encoding %q", ErrDecode, mediaType)
	}

	rate, channels := defRate, defChannels
	if v, ok := params["rate"]; ok {
		rate, err = strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return 0, 0, fmt.Errorf("%w: invalid rate %q", ErrDecode, v)
		}
	}
	if v, ok := params["channels"]; ok {
		channels, err = strconv.Atoi(v)
		if err != nil || channels <= 0 {
			return 0, 0, fmt.Errorf("%w: invalid channel count %q", ErrDecode, v)
		}
	}

	return rate, channels, nil
}

// reframe maps source channels onto the target layout. Mono is duplicated
// to every output, multi-channel folds to mono by averaging, otherwise
// the first channels are kept and the last is repeated.
func reframe(channels [][]float32, target int) [][]float32 {
	src := len(channels)
	if src == target {
		return channels
	}

	out := make([][]float32, target)
	switch {
	case src == 1:
		for ch := range out {
			if ch == 0 {
				out[ch] = channels[0]
				continue
			}
			out[ch] = append([]float32(nil), channels[0]...)
		}
	case target == 1:
		frames := len(channels[0])
		mono := make([]float32, frames)
		for i := 0; i < frames; i++ {
			var sum float32
			for ch := 0; ch < src; ch++ {
				sum += channels[ch][i]
			}
			mono[i] = sum / float32(src)
		}
		out[0] = mono
	default:
		for ch := range out {
			if ch < src {
				out[ch] = channels[ch]
			} else {
				out[ch] = append([]float32(nil), channels[src-1]...)
			}
		}
	}
	return out
}
