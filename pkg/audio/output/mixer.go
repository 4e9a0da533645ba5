// ABOUTME: Sample-accurate software mixer and playback clock
// ABOUTME: Schedules buffers at device times and renders them for a backend
package output

import (
	"encoding/binary"
	"log"
	"math"
	"sync"

	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/analysis"
	"github.com/livevoice/livevoice-go/pkg/audio/resample"
)

// Handle identifies one scheduled buffer on a device
type Handle uint64

// Device is the playback boundary used by the scheduler: a clock plus
// schedule/stop primitives with completion notification.
type Device interface {
	// Now returns the device clock in seconds
	Now() float64

	// Schedule starts buf at startTime (seconds on the device clock).
	// onEnded runs on the render thread once the buffer finished or was
	// stopped. A start time in the past plays immediately.
	Schedule(buf audio.DecodedBuffer, startTime float64, onEnded func()) Handle

	// Stop silences a scheduled buffer whether or not it has started
	Stop(h Handle)
}

type voice struct {
	samples    [][]float32
	startFrame int64
	pos        int
	onEnded    func()
}

// Mixer mixes scheduled buffers into one output stream. Its clock is the
// number of frames rendered so far, so it advances exactly as fast as the
// backend pulls audio.
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	rendered   int64
	nextHandle Handle
	voices     map[Handle]*voice
	pending    []func()
	tap        *analysis.Tap
	volume     int
	muted      bool

	mix  []float32
	mono []float32
}

// NewMixer creates a mixer rendering at sampleRate with channels outputs.
// tap, when non-nil, receives a mono copy of everything rendered.
func NewMixer(sampleRate, channels int, tap *analysis.Tap) *Mixer {
	if channels <= 0 {
		channels = 1
	}
	return &Mixer{
		sampleRate: sampleRate,
		channels:   channels,
		voices:     make(map[Handle]*voice),
		tap:        tap,
		volume:     100,
	}
}

// SampleRate returns the render rate
func (m *Mixer) SampleRate() int { return m.sampleRate }

// Channels returns the output channel count
func (m *Mixer) Channels() int { return m.channels }

// Now returns the device clock in seconds
func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.rendered) / float64(m.sampleRate)
}

// Schedule queues buf to start at startTime
func (m *Mixer) Schedule(buf audio.DecodedBuffer, startTime float64, onEnded func()) Handle {
	samples := buf.Channels
	if buf.SampleRate != m.sampleRate && buf.SampleRate > 0 {
		samples = make([][]float32, len(buf.Channels))
		for ch := range buf.Channels {
			samples[ch] = resample.Linear(buf.Channels[ch], buf.SampleRate, m.sampleRate)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	startFrame := int64(math.Round(startTime * float64(m.sampleRate)))
	if startFrame < m.rendered {
		startFrame = m.rendered
	}

	m.nextHandle++
	h := m.nextHandle
	m.voices[h] = &voice{
		samples:    samples,
		startFrame: startFrame,
		onEnded:    onEnded,
	}
	return h
}

// Stop removes a voice. Its completion notification is delivered from
// the next render, never from inside Stop.
func (m *Mixer) Stop(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.voices[h]
	if !ok {
		return
	}
	delete(m.voices, h)
	if v.onEnded != nil {
		m.pending = append(m.pending, v.onEnded)
	}
}

// Active returns the number of voices playing or waiting to play
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Render fills out (interleaved float32 frames) with the mix and advances
// the clock. Completion callbacks run after the mixer lock is released.
// Render and Read belong to the backend's render goroutine; they must not
// be called concurrently with each other.
func (m *Mixer) Render(out []float32) {
	frames := len(out) / m.channels
	for i := range out {
		out[i] = 0
	}

	m.mu.Lock()
	blockStart := m.rendered
	blockEnd := blockStart + int64(frames)
	ended := m.pending
	m.pending = nil

	for h, v := range m.voices {
		if v.startFrame >= blockEnd || len(v.samples) == 0 {
			if len(v.samples) == 0 {
				delete(m.voices, h)
				if v.onEnded != nil {
					ended = append(ended, v.onEnded)
				}
			}
			continue
		}

		offset := 0
		if v.startFrame > blockStart {
			offset = int(v.startFrame - blockStart)
		}
		length := len(v.samples[0])
		for f := offset; f < frames && v.pos < length; f++ {
			for ch := 0; ch < m.channels; ch++ {
				src := v.samples[ch%len(v.samples)]
				out[f*m.channels+ch] += src[v.pos]
			}
			v.pos++
		}

		if v.pos >= length {
			delete(m.voices, h)
			if v.onEnded != nil {
				ended = append(ended, v.onEnded)
			}
		}
	}

	gain := float32(getVolumeMultiplier(m.volume, m.muted))
	for i := range out {
		out[i] = audio.Clamp(out[i] * gain)
	}

	m.rendered = blockEnd
	m.mu.Unlock()

	m.tapMono(out, frames)

	for _, fn := range ended {
		fn()
	}
}

// tapMono forwards a mono fold of the rendered block to the output tap
func (m *Mixer) tapMono(out []float32, frames int) {
	if m.tap == nil {
		return
	}
	if cap(m.mono) < frames {
		m.mono = make([]float32, frames)
	}
	mono := m.mono[:frames]
	for f := 0; f < frames; f++ {
		var sum float32
		for ch := 0; ch < m.channels; ch++ {
			sum += out[f*m.channels+ch]
		}
		mono[f] = sum / float32(m.channels)
	}
	m.tap.Write(mono)
}

// Read renders 16-bit little-endian interleaved PCM. It implements
// io.Reader for pull-based backends and never blocks.
func (m *Mixer) Read(p []byte) (int, error) {
	frameBytes := 2 * m.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	n := frames * m.channels
	if cap(m.mix) < n {
		m.mix = make([]float32, n)
	}
	mix := m.mix[:n]
	m.Render(mix)

	for i, s := range mix {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return frames * frameBytes, nil
}

// SetVolume sets the volume (0-100)
func (m *Mixer) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	m.mu.Lock()
	m.volume = volume
	m.mu.Unlock()
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (m *Mixer) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
	log.Printf("Muted: %v", muted)
}

// GetVolume returns current volume
func (m *Mixer) GetVolume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// IsMuted returns mute state
func (m *Mixer) IsMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
