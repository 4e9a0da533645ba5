// ABOUTME: Loopback development endpoint for LiveVoice clients
// ABOUTME: Echoes captured audio back at the output rate and acknowledges resets
package echo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/livevoice/livevoice-go/internal/discovery"
	"github.com/livevoice/livevoice-go/pkg/audio"
	"github.com/livevoice/livevoice-go/pkg/audio/decode"
	"github.com/livevoice/livevoice-go/pkg/audio/encode"
	"github.com/livevoice/livevoice-go/pkg/audio/resample"
	"github.com/livevoice/livevoice-go/pkg/protocol"
)

// Config holds endpoint configuration
type Config struct {
	Addr       string // listen address, default ":3000"
	Name       string
	Path       string // websocket path, default "/"
	EnableMDNS bool
	InputRate  int // rate assumed for audio without a hint, default 16000
	OutputRate int // rate of echoed audio, default 24000
}

// Server is the echo endpoint
type Server struct {
	config   Config
	serverID string

	httpServer *http.Server
	mux        *http.ServeMux
	mdns       *discovery.Manager
	sessions   atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates an endpoint. Call Start to serve it or use Handler directly.
func New(config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":3000"
	}
	if config.Path == "" {
		config.Path = "/"
	}
	if config.InputRate <= 0 {
		config.InputRate = 16000
	}
	if config.OutputRate <= 0 {
		config.OutputRate = 24000
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the websocket path
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the number of open sessions
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}

// Start listens and serves until Stop is called or the listener fails
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	log.Printf("Echo endpoint starting: %s (ID: %s)", s.config.Name, s.serverID)
	log.Printf("WebSocket endpoint listening on %s%s", ln.Addr(), s.config.Path)

	if s.config.EnableMDNS {
		port := ln.Addr().(*net.TCPAddr).Port
		s.mdns = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        port,
			Path:        s.config.Path,
		})
		if err := s.mdns.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Echo endpoint shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	if s.mdns != nil {
		s.mdns.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops a running endpoint
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sessionID := r.Header.Get(protocol.SessionHeader)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	log.Printf("New session %s from %s", sessionID, r.RemoteAddr)

	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	sess, err := newSession(s.config.InputRate, s.config.OutputRate)
	if err != nil {
		log.Printf("Session %s setup failed: %v", sessionID, err)
		return
	}

	ctx := r.Context()
	for {
		var msg protocol.Outbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 {
				log.Printf("Session %s read error: %v", sessionID, err)
			}
			log.Printf("Session %s closed", sessionID)
			return
		}

		reply, ok := sess.handle(msg)
		if !ok {
			continue
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			log.Printf("Session %s write error: %v", sessionID, err)
			return
		}
	}
}

// session is the per-connection echo state. The resampler carries phase
// across chunks so the echoed stream stays continuous.
type session struct {
	inputRate int
	decoder   *decode.PCMDecoder
	encoder   *encode.PCMEncoder
	resampler *resample.Resampler
}

func newSession(inputRate, outputRate int) (*session, error) {
	encoder, err := encode.NewPCM(outputRate, 1, 0)
	if err != nil {
		return nil, err
	}
	return &session{
		inputRate: inputRate,
		decoder:   decode.NewPCM(),
		encoder:   encoder,
		resampler: resample.New(inputRate, outputRate, 1),
	}, nil
}

// handle returns the reply for one client message, if any
func (s *session) handle(msg protocol.Outbound) (protocol.Inbound, bool) {
	if msg.Reset {
		s.resampler.Reset()
		return protocol.Inbound{Interrupted: true}, true
	}
	if msg.Audio == "" {
		return protocol.Inbound{}, false
	}

	chunk := audio.EncodedChunk{Data: msg.Audio, MimeType: msg.MimeType}
	buf, err := s.decoder.Decode(chunk, s.inputRate, 1)
	if err != nil {
		return protocol.Inbound{Error: err.Error()}, true
	}

	samples := s.resampler.Resample(buf.Channels[0])
	if len(samples) == 0 {
		return protocol.Inbound{}, false
	}
	out, err := s.encoder.Encode(samples)
	if err != nil {
		return protocol.Inbound{Error: err.Error()}, true
	}
	return protocol.Inbound{Audio: out.Data}, true
}
