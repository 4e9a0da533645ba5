// ABOUTME: Tests for LiveVoice message types
// ABOUTME: Verifies JSON shapes and inbound classification
package protocol

import (
	"encoding/json"
	"testing"

	"github.com/livevoice/livevoice-go/pkg/audio"
)

func TestOutboundShapes(t *testing.T) {
	tests := []struct {
		name string
		msg  Outbound
		want string
	}{
		{
			name: "audio",
			msg:  AudioMessage(audio.EncodedChunk{Data: "AAA=", MimeType: "audio/pcm;rate=16000"}),
			want: `{"audio":"AAA=","mimeType":"audio/pcm;rate=16000"}`,
		},
		{
			name: "reset",
			msg:  ResetMessage(),
			want: `{"reset":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestParseInbound(t *testing.T) {
	tests := []struct {
		data string
		kind InboundKind
	}{
		{`{"audio":"AAA="}`, KindAudio},
		{`{"interrupted":true}`, KindInterrupted},
		{`{"error":"quota exceeded"}`, KindError},
		{`{"interrupted":false}`, KindUnknown},
		{`{"turnComplete":true}`, KindUnknown},
	}

	for _, tt := range tests {
		msg, err := ParseInbound([]byte(tt.data))
		if err != nil {
			t.Fatalf("ParseInbound(%s) failed: %v", tt.data, err)
		}
		if msg.Kind() != tt.kind {
			t.Errorf("%s: kind = %v, want %v", tt.data, msg.Kind(), tt.kind)
		}
	}

	if _, err := ParseInbound([]byte("not json")); err == nil {
		t.Error("expected error for malformed message")
	}
}

func TestInboundChunkHasNoHint(t *testing.T) {
	chunk := Inbound{Audio: "AAA="}.Chunk()
	if chunk.Data != "AAA=" || chunk.MimeType != "" {
		t.Errorf("unexpected chunk %+v", chunk)
	}
}
