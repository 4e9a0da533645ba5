// ABOUTME: Tests for the gapless playback scheduler
// ABOUTME: Uses a fake device clock to check ordering, interrupt and removal
package playback

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/output"
)

// fakeDevice records schedule/stop calls against a manually advanced clock
type fakeDevice struct {
	mu      sync.Mutex
	now     float64
	next    output.Handle
	starts  []float64
	ended   map[output.Handle]func()
	stopped []output.Handle
}

func newFakeDevice(now float64) *fakeDevice {
	return &fakeDevice{now: now, ended: make(map[output.Handle]func())}
}

func (d *fakeDevice) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

func (d *fakeDevice) Schedule(buf audio.DecodedBuffer, startTime float64, onEnded func()) output.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.starts = append(d.starts, startTime)
	d.ended[d.next] = onEnded
	return d.next
}

func (d *fakeDevice) Stop(h output.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = append(d.stopped, h)
}

func (d *fakeDevice) advance(to float64) {
	d.mu.Lock()
	d.now = to
	d.mu.Unlock()
}

// finish fires the completion callback of h as the render thread would
func (d *fakeDevice) finish(h output.Handle) {
	d.mu.Lock()
	fn := d.ended[h]
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func buffer(seconds float64) audio.DecodedBuffer {
	frames := int(math.Round(seconds * 1000))
	return audio.NewDecodedBuffer([][]float32{make([]float32, frames)}, 1000)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEnqueueBackToBack(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewScheduler(dev)

	durations := []float64{0.1, 0.25, 0.05, 0.2}
	var prev ScheduledSource
	for i, d := range durations {
		src, err := s.Enqueue(buffer(d))
		if err != nil {
			t.Fatalf("Enqueue #%d failed: %v", i, err)
		}
		if i > 0 && !approx(src.StartTime, prev.StartTime+prev.Buffer.Duration) {
			t.Errorf("buffer %d starts at %v, want %v", i, src.StartTime, prev.StartTime+prev.Buffer.Duration)
		}
		prev = src
	}

	if !approx(s.NextStartTime(), 0.6) {
		t.Errorf("expected next start 0.6, got %v", s.NextStartTime())
	}
	if s.Active() != len(durations) {
		t.Errorf("expected %d active, got %d", len(durations), s.Active())
	}
}

func TestEnqueueClampsToDeviceClock(t *testing.T) {
	dev := newFakeDevice(2.0)
	s := NewScheduler(dev)

	src, err := s.Enqueue(buffer(0.1))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !approx(src.StartTime, 2.0) {
		t.Errorf("expected start at device time 2.0, got %v", src.StartTime)
	}

	// Scheduler idles while the device runs ahead
	dev.advance(5.0)
	src, err = s.Enqueue(buffer(0.1))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !approx(src.StartTime, 5.0) {
		t.Errorf("expected start at 5.0 after idle, got %v", src.StartTime)
	}
	if !approx(s.NextStartTime(), 5.1) {
		t.Errorf("expected next start 5.1, got %v", s.NextStartTime())
	}
}

func TestEnqueueRejectsEmptyBuffer(t *testing.T) {
	dev := newFakeDevice(1.0)
	s := NewScheduler(dev)

	_, err := s.Enqueue(audio.DecodedBuffer{SampleRate: 24000})
	if !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("expected ErrEmptyBuffer, got %v", err)
	}
	if s.Active() != 0 || !approx(s.NextStartTime(), 1.0) {
		t.Errorf("expected state untouched, active=%d next=%v", s.Active(), s.NextStartTime())
	}
	if len(dev.starts) != 0 {
		t.Error("expected nothing scheduled on the device")
	}
}

func TestInterruptClearsState(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewScheduler(dev)

	for i := 0; i < 3; i++ {
		if _, err := s.Enqueue(buffer(0.5)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	// First source has started, the others are still pending
	dev.advance(0.2)
	if n := s.Interrupt(); n != 3 {
		t.Errorf("expected 3 stopped, got %d", n)
	}

	if len(dev.stopped) != 3 {
		t.Errorf("expected every source stopped, got %v", dev.stopped)
	}
	if s.Active() != 0 {
		t.Errorf("expected empty set, got %d", s.Active())
	}
	if s.NextStartTime() != 0 {
		t.Errorf("expected clock reset to 0, got %v", s.NextStartTime())
	}

	// The next buffer starts at the device time, not the reset clock
	src, err := s.Enqueue(buffer(0.1))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !approx(src.StartTime, 0.2) {
		t.Errorf("expected start at 0.2, got %v", src.StartTime)
	}
}

func TestInterruptWhenIdle(t *testing.T) {
	s := NewScheduler(newFakeDevice(0))
	if n := s.Interrupt(); n != 0 {
		t.Errorf("expected 0 stopped, got %d", n)
	}
}

func TestCompletionRemovesSource(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewScheduler(dev)

	a, _ := s.Enqueue(buffer(0.1))
	b, _ := s.Enqueue(buffer(0.1))

	dev.finish(a.Handle)
	if s.Active() != 1 {
		t.Fatalf("expected 1 active after completion, got %d", s.Active())
	}

	// Duplicate notification is a no-op
	dev.finish(a.Handle)
	if s.Active() != 1 {
		t.Errorf("expected duplicate removal to be ignored, got %d", s.Active())
	}

	dev.finish(b.Handle)
	if stats := s.Stats(); stats.Completed != 2 || stats.Enqueued != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCompletionAfterInterruptIsNoop(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewScheduler(dev)

	old, _ := s.Enqueue(buffer(0.1))
	s.Interrupt()

	fresh, _ := s.Enqueue(buffer(0.1))

	// Late callback for the interrupted source must not touch the new one
	dev.finish(old.Handle)
	if s.Active() != 1 {
		t.Fatalf("expected fresh source to stay tracked, got %d", s.Active())
	}

	stats := s.Stats()
	if stats.Completed != 0 || stats.Interrupted != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	dev.finish(fresh.Handle)
	if s.Active() != 0 {
		t.Errorf("expected empty set, got %d", s.Active())
	}
}

func TestConcurrentEnqueueAndInterrupt(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewScheduler(dev)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				src, err := s.Enqueue(buffer(0.01))
				if err != nil {
					t.Error(err)
					return
				}
				if j%3 == 0 {
					dev.finish(src.Handle)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			s.Interrupt()
		}
	}()
	wg.Wait()

	s.Interrupt()
	if s.Active() != 0 {
		t.Errorf("expected empty set after final interrupt, got %d", s.Active())
	}
}

func TestSchedulerWithMixer(t *testing.T) {
	mixer := output.NewMixer(1000, 1, nil)
	s := NewScheduler(mixer)

	for i := 0; i < 3; i++ {
		if _, err := s.Enqueue(buffer(0.01)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	mixer.Render(make([]float32, 25))
	if s.Active() != 1 {
		t.Errorf("expected 1 source left after 25ms, got %d", s.Active())
	}

	s.Interrupt()
	if mixer.Active() != 0 {
		t.Errorf("expected mixer voices stopped, got %d", mixer.Active())
	}

	// The deferred stop notification must not disturb scheduler state
	mixer.Render(make([]float32, 10))
	if stats := s.Stats(); stats.Completed != 2 || stats.Interrupted != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
