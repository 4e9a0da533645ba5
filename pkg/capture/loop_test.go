// ABOUTME: Tests for the capture loop
// ABOUTME: Uses a fake stream to check recording gating and stop safety
package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/analysis"
	"github.com/livevoice/livevoice-go/pkg/audio/encode"
)

// fakeStream yields constant frames at a fixed pace
type fakeStream struct {
	value  float32
	pace   time.Duration
	closed atomic.Bool
	reads  atomic.Int64
	failAt int64
}

func (s *fakeStream) Read(frame []float32) error {
	if s.closed.Load() {
		return errors.New("stream closed")
	}
	n := s.reads.Add(1)
	if s.failAt > 0 && n >= s.failAt {
		return errors.New("device unplugged")
	}
	time.Sleep(s.pace)
	for i := range frame {
		frame[i] = s.value
	}
	return nil
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeSource struct {
	stream *fakeStream
	err    error
	opens  atomic.Int32

	// fresh, when set, builds a new stream for every Open
	fresh func() *fakeStream
}

func (f *fakeSource) Open(sampleRate, channels, frameSize int) (Stream, error) {
	f.opens.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.fresh != nil {
		return f.fresh(), nil
	}
	return f.stream, nil
}

// recordingSink collects everything sent to it
type recordingSink struct {
	mu     sync.Mutex
	chunks []audio.EncodedChunk
	err    error
}

func (r *recordingSink) Send(chunk audio.EncodedChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

func newTestLoop(t *testing.T, src Source, sink Sink, tap *analysis.Tap) *Loop {
	t.Helper()
	enc, err := encode.NewPCM(16000, 1, 256)
	if err != nil {
		t.Fatalf("NewPCM failed: %v", err)
	}
	loop, err := New(Config{
		Source:     src,
		Sink:       sink,
		Encoder:    enc,
		SampleRate: 16000,
		FrameSize:  256,
		Tap:        tap,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return loop
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty config")
	}
}

func TestCaptureForwardsWhileRecording(t *testing.T) {
	src := &fakeSource{stream: &fakeStream{value: 0.5, pace: time.Millisecond}}
	sink := &recordingSink{}
	tap := analysis.NewTap(256)
	loop := newTestLoop(t, src, sink, tap)

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	if !loop.Recording() {
		t.Error("expected recording after Start")
	}
	waitFor(t, func() bool { return sink.count() >= 3 })

	sink.mu.Lock()
	chunk := sink.chunks[0]
	sink.mu.Unlock()
	if chunk.MimeType != "audio/pcm;rate=16000" {
		t.Errorf("unexpected MIME hint %q", chunk.MimeType)
	}

	window := make([]float32, 256)
	tap.Window(window)
	if window[255] != 0.5 {
		t.Errorf("expected input tap to receive frames, got %v", window[255])
	}
}

func TestCaptureGating(t *testing.T) {
	src := &fakeSource{stream: &fakeStream{pace: time.Millisecond}}
	sink := &recordingSink{}
	loop := newTestLoop(t, src, sink, nil)

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	waitFor(t, func() bool { return sink.count() >= 1 })

	loop.SetRecording(false)
	// Let any frame read before the flag flipped drain
	time.Sleep(10 * time.Millisecond)
	paused := sink.count()
	framesBefore := loop.Frames()

	waitFor(t, func() bool { return loop.Frames() >= framesBefore+5 })
	if sink.count() != paused {
		t.Errorf("expected no frames forwarded while paused, got %d more", sink.count()-paused)
	}

	// Restarting a running loop re-enables recording without reopening
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if src.opens.Load() != 1 {
		t.Errorf("expected device opened once, got %d", src.opens.Load())
	}
	waitFor(t, func() bool { return sink.count() > paused })
}

func TestCaptureStopIsSynchronous(t *testing.T) {
	stream := &fakeStream{pace: time.Millisecond}
	sink := &recordingSink{}
	loop := newTestLoop(t, &fakeSource{stream: stream}, sink, nil)

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return sink.count() >= 2 })

	loop.Stop()
	if loop.Recording() {
		t.Error("expected recording false after Stop")
	}
	if !stream.closed.Load() {
		t.Error("expected stream closed when Stop returns")
	}

	after := sink.count()
	time.Sleep(10 * time.Millisecond)
	if sink.count() != after {
		t.Error("expected no frames after Stop returned")
	}
	if loop.Sent() != int64(after) {
		t.Errorf("expected sent counter %d, got %d", after, loop.Sent())
	}

	// Idempotent
	loop.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	loop := newTestLoop(t, &fakeSource{stream: &fakeStream{}}, &recordingSink{}, nil)
	loop.Stop()
	loop.Stop()
}

func TestStartPermissionDenied(t *testing.T) {
	src := &fakeSource{err: ErrPermissionDenied}
	loop := newTestLoop(t, src, &recordingSink{}, nil)

	err := loop.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if loop.Recording() {
		t.Error("expected recording to stay false")
	}
	loop.Stop()
}

func TestSendErrorsDoNotStopLoop(t *testing.T) {
	sink := &recordingSink{err: errors.New("not connected")}
	enc, _ := encode.NewPCM(16000, 1, 256)

	var reported atomic.Int32
	loop, err := New(Config{
		Source:    &fakeSource{stream: &fakeStream{pace: time.Millisecond}},
		Sink:      sink,
		Encoder:   enc,
		FrameSize: 256,
		OnError:   func(error) { reported.Add(1) },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Stop()

	waitFor(t, func() bool { return reported.Load() >= 3 })
	if loop.Sent() != 0 {
		t.Errorf("expected nothing sent, got %d", loop.Sent())
	}
}

func TestReadErrorEndsLoop(t *testing.T) {
	stream := &fakeStream{pace: time.Millisecond, failAt: 3}
	enc, _ := encode.NewPCM(16000, 1, 256)

	errs := make(chan error, 1)
	loop, err := New(Config{
		Source:    &fakeSource{stream: stream},
		Sink:      &recordingSink{},
		Encoder:   enc,
		FrameSize: 256,
		OnError:   func(err error) { errs <- err },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, ErrStreamFailed) {
			t.Errorf("expected ErrStreamFailed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected read error to be reported")
	}
	if !stream.closed.Load() {
		t.Error("expected stream closed before the error is reported")
	}
	if loop.Running() || loop.Recording() {
		t.Error("expected a failed loop to report not running and not recording")
	}
	loop.Stop()
}

func TestStartAfterReadErrorReopensDevice(t *testing.T) {
	var streams []*fakeStream
	var mu sync.Mutex
	src := &fakeSource{fresh: func() *fakeStream {
		mu.Lock()
		defer mu.Unlock()
		// Only the first stream fails
		s := &fakeStream{pace: time.Millisecond}
		if len(streams) == 0 {
			s.failAt = 3
		}
		streams = append(streams, s)
		return s
	}}
	sink := &recordingSink{}
	enc, _ := encode.NewPCM(16000, 1, 256)

	failed := make(chan struct{}, 1)
	loop, err := New(Config{
		Source:    src,
		Sink:      sink,
		Encoder:   enc,
		FrameSize: 256,
		OnError: func(err error) {
			if errors.Is(err, ErrStreamFailed) {
				failed <- struct{}{}
			}
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the first stream to fail")
	}
	before := sink.count()

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	defer loop.Stop()

	if src.opens.Load() != 2 {
		t.Fatalf("expected the device to be reopened, got %d opens", src.opens.Load())
	}
	waitFor(t, func() bool { return sink.count() > before+3 })
	if !loop.Recording() {
		t.Error("expected recording after restart")
	}
}

func TestFoldStereo(t *testing.T) {
	mono := make([]float32, 2)
	got := fold([]float32{1, 0, -1, -0.5}, mono, 2)
	if got[0] != 0.5 || got[1] != -0.75 {
		t.Errorf("unexpected fold %v", got)
	}
}
