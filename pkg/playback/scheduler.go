// ABOUTME: Gapless playback scheduler
// ABOUTME: Places buffers back to back on the device clock and tracks them
package playback

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/output"
)

// ErrEmptyBuffer is returned for buffers with no playable duration
var ErrEmptyBuffer = errors.New("empty buffer")

// ScheduledSource is one buffer playing or waiting to play
type ScheduledSource struct {
	Buffer    audio.DecodedBuffer
	StartTime float64
	Handle    output.Handle
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Enqueued    int64
	Completed   int64
	Interrupted int64
}

// Scheduler owns the playback clock and the set of tracked sources.
// Enqueue, Interrupt and completion callbacks are serialized by one lock.
type Scheduler struct {
	device output.Device

	mu            sync.Mutex
	nextStartTime float64
	sources       map[output.Handle]*ScheduledSource
	stats         SchedulerStats
}

// NewScheduler creates a scheduler whose clock starts at the device's
// current time
func NewScheduler(device output.Device) *Scheduler {
	return &Scheduler{
		device:        device,
		nextStartTime: device.Now(),
		sources:       make(map[output.Handle]*ScheduledSource),
	}
}

// Enqueue schedules buf to start when the previously enqueued buffer
// ends, or immediately if that moment has already passed.
func (s *Scheduler) Enqueue(buf audio.DecodedBuffer) (ScheduledSource, error) {
	if buf.Duration <= 0 || buf.Frames() == 0 {
		return ScheduledSource{}, fmt.Errorf("enqueue: %w", ErrEmptyBuffer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startAt := s.nextStartTime
	if now := s.device.Now(); now > startAt {
		startAt = now
	}

	src := &ScheduledSource{Buffer: buf, StartTime: startAt}
	// The device never invokes onEnded from inside Schedule, so the
	// callback cannot race with the map insert below.
	src.Handle = s.device.Schedule(buf, startAt, func() { s.remove(src.Handle) })
	s.sources[src.Handle] = src
	s.nextStartTime = startAt + buf.Duration

	if s.stats.Enqueued < 5 {
		log.Printf("Scheduled buffer #%d: start=%.4fs, duration=%.4fs",
			s.stats.Enqueued, startAt, buf.Duration)
	}
	s.stats.Enqueued++

	return *src, nil
}

// remove drops a finished source. Removing an absent handle is a no-op,
// which covers callbacks for sources Interrupt already cleared.
func (s *Scheduler) remove(h output.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[h]; !ok {
		return
	}
	delete(s.sources, h)
	s.stats.Completed++
}

// Interrupt stops every tracked source, started or not, clears the set
// and resets the clock. It returns the number of sources stopped.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.sources)
	for h := range s.sources {
		s.device.Stop(h)
	}
	clear(s.sources)
	s.nextStartTime = 0
	s.stats.Interrupted += int64(n)

	if n > 0 {
		log.Printf("Playback interrupted: stopped=%d", n)
	}
	return n
}

// Active returns the number of tracked sources
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// NextStartTime returns the start time the next buffer would get if the
// device clock has not passed it
func (s *Scheduler) NextStartTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStartTime
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
