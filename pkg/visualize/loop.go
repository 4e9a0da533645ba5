// ABOUTME: Display-rate visualization loop
// ABOUTME: Updates both samplers per tick and strokes their waveforms
package visualize

import (
	"context"
	"sync"
	"time"

	"github.com/livevoice/livevoice-go/pkg/audio/analysis"
)

// DefaultFPS is the refresh rate used when none is configured
const DefaultFPS = 60

// Config holds visualization loop configuration
type Config struct {
	Input  *analysis.Sampler
	Output *analysis.Sampler

	// FPS is the refresh rate (default 60)
	FPS int

	// PixelRatio is passed to the surface factory on Start (default 1)
	PixelRatio float64

	// OnFrame runs after each frame is drawn
	OnFrame func(Surface)
}

// Loop draws frames on a ticker until stopped
type Loop struct {
	config Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a visualization loop
func NewLoop(config Config) *Loop {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.PixelRatio <= 0 {
		config.PixelRatio = 1
	}
	return &Loop{config: config}
}

// Start creates a fresh surface and begins drawing on it. A running loop
// is stopped first.
func (l *Loop) Start(ctx context.Context, newSurface func(pixelRatio float64) Surface) {
	l.Stop()

	surface := newSurface(l.config.PixelRatio)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel, l.done = cancel, done
	l.mu.Unlock()

	go func() {
		defer close(done)
		l.Run(runCtx, surface)
	}()
}

// Stop cancels the pending tick. No frame is drawn after Stop returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
}

// Run draws on surface at the configured rate until ctx is cancelled
func (l *Loop) Run(ctx context.Context, surface Surface) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// A tick and cancellation can be ready together
			if ctx.Err() != nil {
				return nil
			}
			l.DrawFrame(surface)
		}
	}
}

// DrawFrame updates both samplers and renders one frame
func (l *Loop) DrawFrame(surface Surface) {
	surface.Clear()

	if l.config.Input != nil && l.config.Output != nil {
		l.config.Input.Update()
		l.config.Output.Update()

		_, height := surface.Size()
		drawWaveform(surface, l.config.Input.Data(), InputColor, height/4)
		drawWaveform(surface, l.config.Output.Data(), OutputColor, height*3/4)
	}

	if l.config.OnFrame != nil {
		l.config.OnFrame(surface)
	}
}

// drawWaveform strokes data as a path with y = v*h/4 + offset, v = b/128
func drawWaveform(surface Surface, data []byte, color string, offset float64) {
	if len(data) == 0 {
		return
	}
	width, height := surface.Size()

	surface.BeginPath()
	surface.SetStroke(color, LineWidth)

	step := width / float64(len(data))
	x := 0.0
	for i, b := range data {
		v := float64(b) / 128.0
		y := v*height/4 + offset
		if i == 0 {
			surface.MoveTo(x, y)
		} else {
			surface.LineTo(x, y)
		}
		x += step
	}
	surface.Stroke()
}
