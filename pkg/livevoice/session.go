// ABOUTME: LiveVoice session controller
// ABOUTME: Owns session state and runs the inbound, display and channel tasks
package livevoice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/analysis"
	"github.com/livevoice/livevoice-go/pkg/audio/decode"
	"github.com/livevoice/livevoice-go/pkg/audio/encode"
	"github.com/livevoice/livevoice-go/pkg/audio/output"
	"github.com/livevoice/livevoice-go/pkg/capture"
	"github.com/livevoice/livevoice-go/pkg/playback"
	"github.com/livevoice/livevoice-go/pkg/protocol"
	"github.com/livevoice/livevoice-go/pkg/visualize"
	"golang.org/x/sync/errgroup"
)

// Status texts
const (
	StatusRequestingMic = "Requesting microphone access..."
	StatusMicGranted    = "Microphone access granted. Starting capture..."
	StatusRecording     = "Recording... Capturing PCM chunks."
	StatusStopping      = "Stopping recording..."
	StatusStopped       = "Recording stopped. Press space to begin again."
	StatusConnected     = "Connected to server"
	StatusCleared       = "Session cleared."
)

// ErrRecording is returned by Reset while recording
var ErrRecording = errors.New("reset is disabled while recording")

// SessionState is the user-visible session state
type SessionState struct {
	Recording bool
	Status    string
	Error     string
}

// Channel is the message channel the session talks over
type Channel interface {
	Connect(ctx context.Context) error
	Send(msg protocol.Outbound) error
	Messages() <-chan protocol.Inbound
	IsConnected() bool
	Close()
}

// Config holds session configuration
type Config struct {
	// ServerAddr is the endpoint address (host:port)
	ServerAddr string

	// Path is the websocket path (default "/")
	Path string

	InputRate    int // capture rate (default 16000)
	OutputRate   int // inbound decode and playback rate (default 24000)
	FrameSize    int // capture frame in samples (default 256)
	AnalysisSize int // waveform window (default 2048)
	FPS          int // display refresh rate (default 60)

	// Dial creates the message channel; default is a websocket client
	Dial func(protocol.Config) Channel

	// Source acquires the microphone; default is PortAudio
	Source capture.Source

	// NewOutput creates the playback backend; default is oto
	NewOutput func(*output.Mixer) output.Output

	// NewSurface creates the waveform surface; nil disables drawing
	NewSurface func(pixelRatio float64) visualize.Surface

	// OnFrame runs after each waveform frame is drawn
	OnFrame func(visualize.Surface)

	// OnStateChange is called whenever SessionState changes
	OnStateChange func(SessionState)

	// OnError is called for asynchronous pipeline errors
	OnError func(error)
}

// Stats contains session statistics
type Stats struct {
	FramesCaptured int64
	FramesSent     int64
	FramesDropped  int64
	ChunksReceived int64
	DecodeErrors   int64
	Interruptions  int64
	ChannelErrors  int64
	ActiveSources  int
	Connected      bool
	Playback       playback.SchedulerStats
}

// Session is one bidirectional voice session
type Session struct {
	config Config
	id     string

	channel   Channel
	decoder   decode.Decoder
	mixer     *output.Mixer
	out       output.Output
	scheduler *playback.Scheduler
	capture   *capture.Loop
	vis       *visualize.Loop

	mu    sync.Mutex
	state SessionState
	ctx   context.Context

	dropped       atomic.Int64
	received      atomic.Int64
	decodeErrors  atomic.Int64
	interruptions atomic.Int64
	channelErrs   atomic.Int64
}

// New creates a session. Nothing is opened until Run.
func New(config Config) (*Session, error) {
	if config.InputRate == 0 {
		config.InputRate = audio.InputSampleRate
	}
	if config.OutputRate == 0 {
		config.OutputRate = audio.OutputSampleRate
	}
	if config.FrameSize == 0 {
		config.FrameSize = 256
	}
	if config.AnalysisSize == 0 {
		config.AnalysisSize = analysis.DefaultSize
	}
	if config.Dial == nil {
		config.Dial = func(c protocol.Config) Channel { return protocol.NewClient(c) }
	}
	if config.Source == nil {
		config.Source = capture.NewPortAudio()
	}
	if config.NewOutput == nil {
		config.NewOutput = func(m *output.Mixer) output.Output { return output.NewOto(m) }
	}

	s := &Session{
		config:  config,
		id:      uuid.New().String(),
		decoder: decode.NewPCM(),
		state:   SessionState{Status: "Idle"},
	}

	s.channel = config.Dial(protocol.Config{
		ServerAddr: config.ServerAddr,
		Path:       config.Path,
		SessionID:  s.id,
		OnOpen:     s.handleOpen,
		OnClose:    s.handleClose,
		OnError:    s.handleChannelError,
	})

	inputTap := analysis.NewTap(config.AnalysisSize)
	outputTap := analysis.NewTap(config.AnalysisSize)

	s.mixer = output.NewMixer(config.OutputRate, 1, outputTap)
	s.out = config.NewOutput(s.mixer)
	s.scheduler = playback.NewScheduler(s.mixer)

	enc, err := encode.NewPCM(config.InputRate, 1, config.FrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	s.capture, err = capture.New(capture.Config{
		Source:     config.Source,
		Sink:       capture.SinkFunc(s.sendAudio),
		Encoder:    enc,
		SampleRate: config.InputRate,
		Channels:   1,
		FrameSize:  config.FrameSize,
		Tap:        inputTap,
		OnError:    s.handleCaptureError,
	})
	if err != nil {
		return nil, err
	}

	inputSampler := analysis.NewSampler(config.AnalysisSize)
	inputSampler.Bind(inputTap)
	outputSampler := analysis.NewSampler(config.AnalysisSize)
	outputSampler.Bind(outputTap)

	s.vis = visualize.NewLoop(visualize.Config{
		Input:   inputSampler,
		Output:  outputSampler,
		FPS:     config.FPS,
		OnFrame: config.OnFrame,
	})

	return s, nil
}

// ID returns the session id sent on connect
func (s *Session) ID() string { return s.id }

// Mixer returns the playback mixer
func (s *Session) Mixer() *output.Mixer { return s.mixer }

// Run opens playback, connects the channel and serves the session until
// ctx is cancelled. A failed connection is reported through state and
// does not end the session.
func (s *Session) Run(ctx context.Context) error {
	if err := s.out.Open(); err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer s.out.Close()

	g, gctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.ctx = gctx
	s.mu.Unlock()

	// Channel lifecycle
	g.Go(func() error {
		if err := s.channel.Connect(gctx); err != nil {
			log.Printf("Connect failed: %v", err)
		}
		<-gctx.Done()
		s.channel.Close()
		return nil
	})

	// Inbound messages
	g.Go(func() error {
		messages := s.channel.Messages()
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-messages:
				if !ok {
					// Channel closed; queued audio keeps playing
					messages = nil
					continue
				}
				s.handleMessage(msg)
			}
		}
	})

	// Display refresh
	g.Go(func() error {
		if s.config.NewSurface != nil {
			s.vis.Start(gctx, s.config.NewSurface)
		}
		<-gctx.Done()
		s.vis.Stop()
		return nil
	})

	err := g.Wait()
	s.capture.Stop()
	log.Printf("Session %s ended", s.id)
	return err
}

// Resize restarts drawing on a freshly created surface. It does nothing
// unless Run is serving the session.
func (s *Session) Resize(newSurface func(pixelRatio float64) visualize.Surface) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.vis.Start(ctx, newSurface)
}

// StartRecording acquires the microphone and starts sending frames
func (s *Session) StartRecording(ctx context.Context) error {
	if s.State().Recording {
		return nil
	}

	s.setStatus(StatusRequestingMic)

	if err := s.capture.Start(ctx); err != nil {
		log.Printf("Error starting recording: %v", err)
		s.update(func(st *SessionState) {
			st.Recording = false
			st.Status = "Error: " + err.Error()
		})
		s.capture.Stop()
		return err
	}

	s.setStatus(StatusMicGranted)
	s.update(func(st *SessionState) {
		// The stream may already have failed and reported its error
		if !s.capture.Running() {
			return
		}
		st.Recording = true
		st.Status = StatusRecording
	})
	return nil
}

// StopRecording stops sending frames and releases the microphone
func (s *Session) StopRecording() {
	if !s.State().Recording && !s.capture.Recording() {
		return
	}

	s.setStatus(StatusStopping)
	s.capture.Stop()
	s.update(func(st *SessionState) {
		st.Recording = false
		st.Status = StatusStopped
	})
}

// Reset asks the endpoint to clear its session. It is refused while
// recording.
func (s *Session) Reset() error {
	if s.State().Recording {
		return ErrRecording
	}

	if s.channel.IsConnected() {
		if err := s.channel.Send(protocol.ResetMessage()); err != nil {
			log.Printf("Failed to send reset: %v", err)
		}
	}
	s.setStatus(StatusCleared)
	return nil
}

// State returns a snapshot of the session state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns session statistics
func (s *Session) Stats() Stats {
	return Stats{
		FramesCaptured: s.capture.Frames(),
		FramesSent:     s.capture.Sent(),
		FramesDropped:  s.dropped.Load(),
		ChunksReceived: s.received.Load(),
		DecodeErrors:   s.decodeErrors.Load(),
		Interruptions:  s.interruptions.Load(),
		ChannelErrors:  s.channelErrs.Load(),
		ActiveSources:  s.scheduler.Active(),
		Connected:      s.channel.IsConnected(),
		Playback:       s.scheduler.Stats(),
	}
}

// handleMessage routes one inbound message
func (s *Session) handleMessage(msg protocol.Inbound) {
	switch msg.Kind() {
	case protocol.KindAudio:
		s.received.Add(1)
		buf, err := s.decoder.Decode(msg.Chunk(), s.config.OutputRate, 1)
		if err != nil {
			s.decodeErrors.Add(1)
			s.reportError(err)
			s.setError(err.Error())
			return
		}
		if _, err := s.scheduler.Enqueue(buf); err != nil {
			s.reportError(err)
		}

	case protocol.KindInterrupted:
		s.interruptions.Add(1)
		log.Printf("Interruption signal received")
		s.scheduler.Interrupt()

	case protocol.KindError:
		s.setError(msg.Error)
	}
}

// sendAudio forwards a capture chunk while the channel is open
func (s *Session) sendAudio(chunk audio.EncodedChunk) error {
	if !s.channel.IsConnected() {
		return protocol.ErrNotConnected
	}
	return s.channel.Send(protocol.AudioMessage(chunk))
}

func (s *Session) handleCaptureError(err error) {
	if errors.Is(err, protocol.ErrNotConnected) {
		s.dropped.Add(1)
		return
	}
	if errors.Is(err, capture.ErrStreamFailed) {
		log.Printf("Capture ended: %v", err)
		s.update(func(st *SessionState) {
			st.Recording = false
			st.Status = "Error: " + err.Error()
		})
	}
	s.reportError(err)
}

func (s *Session) handleOpen() {
	s.setStatus(StatusConnected)
}

func (s *Session) handleClose(reason string) {
	s.setStatus("Disconnected from server: " + reason)
}

func (s *Session) handleChannelError(detail string) {
	s.channelErrs.Add(1)
	s.setError("WebSocket error: " + detail)
}

func (s *Session) reportError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
		return
	}
	log.Printf("Session error: %v", err)
}

func (s *Session) setStatus(status string) {
	s.update(func(st *SessionState) { st.Status = status })
}

func (s *Session) setError(msg string) {
	s.update(func(st *SessionState) { st.Error = msg })
}

// update mutates state and notifies outside the lock
func (s *Session) update(fn func(*SessionState)) {
	s.mu.Lock()
	fn(&s.state)
	state := s.state
	s.mu.Unlock()

	if s.config.OnStateChange != nil {
		s.config.OnStateChange(state)
	}
}
