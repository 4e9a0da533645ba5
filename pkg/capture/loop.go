// ABOUTME: Capture loop reading device frames into the encoder
// ABOUTME: Gates forwarding on the recording flag and stops synchronously
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/analysis"
	"github.com/livevoice/livevoice-go/pkg/audio/encode"
)

var (
	// ErrPermissionDenied means the capture device refused access
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable means no usable capture device exists
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrStreamFailed means an open stream stopped delivering frames.
	// The loop has ended and released the device when it is reported.
	ErrStreamFailed = errors.New("capture stream failed")
)

// Stream is an open capture device delivering float frames
type Stream interface {
	// Read blocks until len(frame) samples are captured
	Read(frame []float32) error
	Close() error
}

// Source acquires a capture stream
type Source interface {
	Open(sampleRate, channels, frameSize int) (Stream, error)
}

// Sink receives encoded frames
type Sink interface {
	Send(chunk audio.EncodedChunk) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(chunk audio.EncodedChunk) error

// Send implements Sink
func (f SinkFunc) Send(chunk audio.EncodedChunk) error { return f(chunk) }

// Config holds capture loop configuration
type Config struct {
	Source     Source
	Sink       Sink
	Encoder    encode.Encoder
	SampleRate int
	Channels   int
	FrameSize  int

	// Tap, when set, receives every captured frame (mono fold)
	Tap *analysis.Tap

	// OnError reports send failures and, wrapped in ErrStreamFailed,
	// device read failures
	OnError func(error)
}

// Loop captures frames from a Source and forwards them to a Sink
type Loop struct {
	config Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	recording atomic.Bool
	frames    atomic.Int64
	sent      atomic.Int64
}

// New creates a capture loop
func New(config Config) (*Loop, error) {
	if config.Source == nil || config.Sink == nil || config.Encoder == nil {
		return nil, errors.New("capture: source, sink and encoder are required")
	}
	if config.SampleRate <= 0 {
		config.SampleRate = audio.InputSampleRate
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.FrameSize <= 0 {
		config.FrameSize = 256
	}
	return &Loop{config: config}, nil
}

// Start opens the device and begins forwarding frames. Starting a running
// loop only re-enables recording.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		l.recording.Store(true)
		return nil
	}

	stream, err := l.config.Source.Open(l.config.SampleRate, l.config.Channels, l.config.FrameSize)
	if err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.recording.Store(true)

	go l.run(runCtx, stream, l.done)

	log.Printf("Capture started: rate=%d, channels=%d, frame=%d",
		l.config.SampleRate, l.config.Channels, l.config.FrameSize)
	return nil
}

// SetRecording gates forwarding without releasing the device
func (l *Loop) SetRecording(recording bool) {
	l.recording.Store(recording)
}

// Running reports whether a device stream is open
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}

// Recording reports whether frames are being forwarded
func (l *Loop) Recording() bool {
	return l.recording.Load()
}

// Stop ends capture and releases the device. No frame is forwarded after
// Stop returns. Safe to call when never started and more than once.
func (l *Loop) Stop() {
	l.recording.Store(false)

	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
	log.Printf("Capture stopped: frames=%d, sent=%d", l.frames.Load(), l.sent.Load())
}

// Frames returns the number of frames read from the device
func (l *Loop) Frames() int64 { return l.frames.Load() }

// Sent returns the number of frames accepted by the sink
func (l *Loop) Sent() int64 { return l.sent.Load() }

func (l *Loop) run(ctx context.Context, stream Stream, done chan struct{}) {
	var readErr error
	defer func() {
		if err := stream.Close(); err != nil {
			log.Printf("Failed to close capture stream: %v", err)
		}
		if readErr != nil {
			l.detach(done)
		}
		close(done)
		if readErr != nil {
			l.reportError(fmt.Errorf("%w: %v", ErrStreamFailed, readErr))
		}
	}()

	frame := make([]float32, l.config.FrameSize*l.config.Channels)
	var mono []float32
	if l.config.Channels > 1 {
		mono = make([]float32, l.config.FrameSize)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			readErr = err
			return
		}
		l.frames.Add(1)

		if l.config.Tap != nil {
			l.config.Tap.Write(fold(frame, mono, l.config.Channels))
		}

		// Recording may have been switched off while Read blocked
		if !l.recording.Load() || ctx.Err() != nil {
			continue
		}

		chunk, err := l.config.Encoder.Encode(frame)
		if err != nil {
			log.Printf("Dropping capture frame: %v", err)
			continue
		}
		if err := l.config.Sink.Send(chunk); err != nil {
			l.reportError(err)
			continue
		}
		l.sent.Add(1)
	}
}

// detach forgets a run that ended on its own so the next Start reopens
// the device. A Stop or Start that already replaced done is left alone.
func (l *Loop) detach(done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != done {
		return
	}
	l.cancel()
	l.cancel, l.done = nil, nil
	l.recording.Store(false)
}

func (l *Loop) reportError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
		return
	}
	log.Printf("Capture error: %v", err)
}

// fold averages interleaved channels into mono
func fold(frame, mono []float32, channels int) []float32 {
	if channels == 1 {
		return frame
	}
	for i := range mono {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += frame[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
