// ABOUTME: Wall-clock driven output without a sound card
// ABOUTME: Pulls the mixer on a ticker so scheduling works headless
package output

import (
	"context"
	"time"
)

// Null renders the mixer in real time and discards the audio
type Null struct {
	mixer  *Mixer
	period time.Duration
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNull creates a null output rendering one block per period
func NewNull(mixer *Mixer, period time.Duration) *Null {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	return &Null{mixer: mixer, period: period}
}

// Open starts the render loop
func (n *Null) Open() error {
	if n.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	go n.run(ctx)
	return nil
}

func (n *Null) run(ctx context.Context) {
	defer close(n.done)

	ticker := time.NewTicker(n.period)
	defer ticker.Stop()

	frames := int(int64(n.mixer.SampleRate()) * int64(n.period) / int64(time.Second))
	block := make([]float32, frames*n.mixer.Channels())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.mixer.Render(block)
		}
	}
}

// Close stops the render loop
func (n *Null) Close() error {
	if n.cancel == nil {
		return nil
	}
	n.cancel()
	<-n.done
	n.cancel = nil
	return nil
}
