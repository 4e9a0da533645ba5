// ABOUTME: WebSocket client for the LiveVoice message channel
// ABOUTME: Handles connection, message routing and lifecycle callbacks
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livevoice/livevoice-go/pkg/audio"
)

// ErrNotConnected is returned by sends on a closed or unopened channel
var ErrNotConnected = errors.New("not connected")

// SessionHeader carries the client session id on the upgrade request
const SessionHeader = "X-Session-ID"

const (
	writeTimeout   = 5 * time.Second
	inboundBacklog = 100
)

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // default "/"
	SessionID  string

	// OnMessage, when set, receives inbound messages on the reader
	// goroutine instead of the Messages channel
	OnMessage func(Inbound)
	OnOpen    func()
	OnClose   func(reason string)
	OnError   func(detail string)
}

// Client represents a WebSocket client
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	wmu    sync.Mutex

	messages  chan Inbound
	connected bool
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		messages: make(chan Inbound, inboundBacklog),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// URL returns the endpoint address the client dials
func (c *Client) URL() string {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	return u.String()
}

// Connect dials the endpoint and starts the message reader
func (c *Client) Connect(ctx context.Context) error {
	target := c.URL()
	log.Printf("Connecting to %s", target)

	header := http.Header{}
	if c.config.SessionID != "" {
		header.Set(SessionHeader, c.config.SessionID)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		c.reportError(err.Error())
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	log.Printf("Connected to %s", target)
	if c.config.OnOpen != nil {
		c.config.OnOpen()
	}

	go c.readMessages()
	return nil
}

// Messages returns the inbound message channel. It is closed when the
// connection ends.
func (c *Client) Messages() <-chan Inbound {
	return c.messages
}

// Send writes one outbound message
func (c *Client) Send(msg Outbound) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// SendAudio sends an encoded capture chunk
func (c *Client) SendAudio(chunk audio.EncodedChunk) error {
	return c.Send(AudioMessage(chunk))
}

// SendReset asks the endpoint to clear its session
func (c *Client) SendReset() error {
	return c.Send(ResetMessage())
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.disconnect(err)
			return
		}

		msg, err := ParseInbound(data)
		if err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}
		if msg.Kind() == KindUnknown {
			log.Printf("Ignoring message without audio, interrupted or error")
			continue
		}

		if c.config.OnMessage != nil {
			c.config.OnMessage(msg)
			continue
		}

		select {
		case c.messages <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// disconnect handles the end of the read loop
func (c *Client) disconnect(err error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	reason := ""
	var closeErr *websocket.CloseError
	switch {
	case errors.As(err, &closeErr):
		reason = closeErr.Text
		if reason == "" {
			reason = fmt.Sprintf("code %d", closeErr.Code)
		}
	case !wasConnected || c.ctx.Err() != nil:
		reason = "client closed"
	default:
		log.Printf("Read error: %v", err)
		c.reportError(err.Error())
		reason = "connection lost"
	}

	c.conn.Close()
	c.notifyClose(reason)
}

func (c *Client) notifyClose(reason string) {
	c.closeOnce.Do(func() {
		log.Printf("Connection closed: %s", reason)
		if c.config.OnClose != nil {
			c.config.OnClose(reason)
		}
	})
}

func (c *Client) reportError(detail string) {
	if c.config.OnError != nil {
		c.config.OnError(detail)
	}
}

// Close sends a close frame and shuts the connection
func (c *Client) Close() {
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.connected = false
	c.mu.Unlock()

	c.cancel()
	if !connected {
		return
	}

	c.wmu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closed")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.wmu.Unlock()

	conn.Close()
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
