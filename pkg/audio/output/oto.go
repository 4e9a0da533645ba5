// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams the mixer to the system device as 16-bit PCM using oto
package output

import (
	"fmt"
	"log"
	"time"

	"github.com/ebitengine/oto/v3"
)

// otoBufferSize is the context buffer between oto's mux and the device
const otoBufferSize = 40 * time.Millisecond

// playerBufferPeriod bounds the audio an oto player reads ahead of the
// device. Anything read ahead still plays after an interrupt.
const playerBufferPeriod = 20 * time.Millisecond

// playerBufferBytes returns the player read-ahead for 16-bit PCM, rounded
// down to whole frames
func playerBufferBytes(sampleRate, channels int) int {
	frameBytes := 2 * channels
	frames := int(int64(sampleRate) * int64(playerBufferPeriod) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}
	return frames * frameBytes
}

// Oto output implementation using oto library
type Oto struct {
	mixer  *Mixer
	otoCtx *oto.Context
	player *oto.Player
	ready  bool
}

// NewOto creates a new Oto output pulling from mixer
func NewOto(mixer *Mixer) *Oto {
	return &Oto{mixer: mixer}
}

// Open initializes the output device
func (o *Oto) Open() error {
	if o.ready {
		return nil
	}

	// oto allows one context per process, so a reopen resumes it
	if o.otoCtx != nil {
		log.Printf("Audio output already initialized, resuming context")
		o.otoCtx.Resume()
	} else {
		op := &oto.NewContextOptions{
			SampleRate:   o.mixer.SampleRate(),
			ChannelCount: o.mixer.Channels(),
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   otoBufferSize,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}

		<-readyChan
		o.otoCtx = ctx
	}

	// Persistent player pulling from the mixer; the mixer never runs dry,
	// it renders silence between scheduled buffers
	o.player = o.otoCtx.NewPlayer(o.mixer)
	o.player.SetBufferSize(playerBufferBytes(o.mixer.SampleRate(), o.mixer.Channels()))
	o.player.Play()

	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels",
		o.mixer.SampleRate(), o.mixer.Channels())

	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil && o.ready {
		o.otoCtx.Suspend()
		o.ready = false
	}
	return nil
}
