// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for capture-side audio encoders
package encode

import (
	"errors"

	"github.com/livevoice/livevoice-go/pkg/audio"
)

// ErrInvalidFrame is returned when a frame cannot be encoded
var ErrInvalidFrame = errors.New("invalid frame")

// Encoder encodes captured float samples for the message channel
type Encoder interface {
	// Encode converts one capture frame into a wire chunk
	Encode(frame []float32) (audio.EncodedChunk, error)
}
