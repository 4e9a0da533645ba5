// ABOUTME: Ring-buffer tap on a live audio signal
// ABOUTME: Written from audio callbacks, read by analysis samplers
package analysis

import "sync"

// Tap copies samples passing through an audio path into a ring buffer
type Tap struct {
	mu   sync.Mutex
	buf  []float32
	pos  int
	size int
	seq  uint64
}

// NewTap creates a tap holding the last size samples
func NewTap(size int) *Tap {
	if size <= 0 {
		size = DefaultSize
	}
	return &Tap{
		buf:  make([]float32, size),
		size: size,
	}
}

// Write records samples. It never blocks on anything but the tap's own
// lock and does not allocate.
func (t *Tap) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	t.mu.Lock()
	// Only the tail can survive in the ring
	if len(samples) > t.size {
		samples = samples[len(samples)-t.size:]
	}
	for _, s := range samples {
		t.buf[t.pos] = s
		t.pos = (t.pos + 1) % t.size
	}
	t.seq++
	t.mu.Unlock()
}

// Window copies the most recent len(dst) samples into dst in
// chronological order and returns the write sequence they belong to.
// Samples older than the ring are reported as silence.
func (t *Tap) Window(dst []float32) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(dst)
	pad := 0
	if n > t.size {
		pad = n - t.size
		n = t.size
	}
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		dst[pad+i] = t.buf[(start+i)%t.size]
	}
	return t.seq
}

// Seq returns the number of writes so far
func (t *Tap) Seq() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// Size returns the ring capacity in samples
func (t *Tap) Size() int {
	return t.size
}
