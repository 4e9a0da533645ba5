//go:build portaudio

// ABOUTME: PortAudio capture source
// ABOUTME: Opens the default input device in blocking read mode
package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio opens the system default input device
type PortAudio struct{}

// NewPortAudio creates a PortAudio capture source
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Open initializes PortAudio and starts a blocking input stream
func (p *PortAudio) Open(sampleRate, channels, frameSize int) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	buf := make([]float32, frameSize*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), frameSize, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, mapOpenError(err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, mapOpenError(err)
	}

	log.Printf("PortAudio input opened: %dHz, %d channels, %d frames/buffer", sampleRate, channels, frameSize)
	return &portAudioStream{stream: stream, buf: buf}, nil
}

// mapOpenError classifies PortAudio failures. Host errors are what the
// platform audio layer returns when microphone access is refused.
func mapOpenError(err error) error {
	if errors.Is(err, portaudio.UnanticipatedHostError) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}

type portAudioStream struct {
	stream    *portaudio.Stream
	buf       []float32
	closeOnce sync.Once
}

func (s *portAudioStream) Read(frame []float32) error {
	if err := s.stream.Read(); err != nil {
		// An overflow still leaves a full buffer of usable samples
		if !errors.Is(err, portaudio.InputOverflowed) {
			return err
		}
	}
	copy(frame, s.buf)
	return nil
}

func (s *portAudioStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.stream.Stop()
		err = s.stream.Close()
		portaudio.Terminate()
	})
	return err
}
