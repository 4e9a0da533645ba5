// ABOUTME: Analysis sampler producing byte time-domain windows
// ABOUTME: Explicit Bind/Rebind replaces implicit re-creation on assignment
package analysis

import "github.com/livevoice/livevoice-go/pkg/audio"

// DefaultSize matches the analyser window of the original visualizer
const DefaultSize = 2048

// Sampler holds a tap and a fixed-size byte window of its recent audio.
// It is owned by a single goroutine (the display loop).
type Sampler struct {
	tap     *Tap
	data    []byte
	scratch []float32
	seq     uint64
	fresh   bool
}

// NewSampler creates an unbound sampler with a window of size samples
func NewSampler(size int) *Sampler {
	if size <= 0 {
		size = DefaultSize
	}
	s := &Sampler{
		data:    make([]byte, size),
		scratch: make([]float32, size),
	}
	s.silence()
	return s
}

// Bind attaches the sampler to a tap
func (s *Sampler) Bind(tap *Tap) {
	s.tap = tap
	s.fresh = true
	s.silence()
}

// Rebind moves the sampler to another tap, discarding the old window
func (s *Sampler) Rebind(tap *Tap) {
	s.Bind(tap)
}

// Update copies the tap's current window into the buffer. When the tap
// has not been written since the previous Update the buffer is left as is.
func (s *Sampler) Update() {
	if s.tap == nil {
		return
	}
	if !s.fresh && s.tap.Seq() == s.seq {
		return
	}
	s.seq = s.tap.Window(s.scratch)
	s.fresh = false
	for i, v := range s.scratch {
		s.data[i] = audio.SampleToByte(v)
	}
}

// Data returns the current window. Callers must treat it as read-only.
func (s *Sampler) Data() []byte {
	return s.data
}

// Bound reports whether the sampler has a tap
func (s *Sampler) Bound() bool {
	return s.tap != nil
}

func (s *Sampler) silence() {
	for i := range s.data {
		s.data[i] = audio.ByteCenter
	}
}
