// ABOUTME: LiveVoice message type definitions
// ABOUTME: Outbound audio/reset and inbound audio/interrupted/error shapes
package protocol

import (
	"encoding/json"

	"github.com/livevoice/livevoice-go/pkg/audio"
)

// Outbound is a client to endpoint message. Exactly one of the audio
// fields or Reset is set.
type Outbound struct {
	Audio    string `json:"audio,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Reset    bool   `json:"reset,omitempty"`
}

// Inbound is an endpoint to client message
type Inbound struct {
	Audio       string `json:"audio,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
	Error       string `json:"error,omitempty"`
}

// InboundKind classifies an inbound message
type InboundKind int

const (
	KindUnknown InboundKind = iota
	KindAudio
	KindInterrupted
	KindError
)

func (k InboundKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindInterrupted:
		return "interrupted"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Kind reports which field the message carries, checked in the order
// audio, interrupted, error
func (m Inbound) Kind() InboundKind {
	switch {
	case m.Audio != "":
		return KindAudio
	case m.Interrupted:
		return KindInterrupted
	case m.Error != "":
		return KindError
	default:
		return KindUnknown
	}
}

// Chunk returns the inbound audio as an encoded chunk. Inbound audio has
// no MIME hint and is read at the output format.
func (m Inbound) Chunk() audio.EncodedChunk {
	return audio.EncodedChunk{Data: m.Audio}
}

// AudioMessage wraps an encoded capture chunk
func AudioMessage(chunk audio.EncodedChunk) Outbound {
	return Outbound{Audio: chunk.Data, MimeType: chunk.MimeType}
}

// ResetMessage asks the endpoint to clear its session
func ResetMessage() Outbound {
	return Outbound{Reset: true}
}

// ParseInbound decodes one text frame
func ParseInbound(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, err
	}
	return msg, nil
}
