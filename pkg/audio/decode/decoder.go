// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for inbound chunk decoders
package decode

import (
	"errors"

	"github.com/livevoice/livevoice-go/pkg/audio"
)

// ErrDecode is returned for malformed or unsupported inbound chunks
var ErrDecode = errors.New("decode error")

// Decoder converts received chunks into playable buffers
type Decoder interface {
	// Decode converts a chunk to a buffer at the target rate and channel count
	Decode(chunk audio.EncodedChunk, targetRate, targetChannels int) (audio.DecodedBuffer, error)
}
