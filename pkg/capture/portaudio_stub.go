//go:build !portaudio

// ABOUTME: PortAudio capture stub when the library is not built in
// ABOUTME: Keeps the package pure Go; Open reports no usable device
package capture

import "fmt"

// PortAudio capture source (stub)
type PortAudio struct{}

// NewPortAudio creates a PortAudio capture source
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(sampleRate, channels, frameSize int) (Stream, error) {
	return nil, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrDeviceUnavailable)
}
