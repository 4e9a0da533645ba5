// ABOUTME: Tests for the websocket message channel client
// ABOUTME: Runs against an httptest server using gorilla's upgrader
package protocol

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livevoice/livevoice-go/pkg/audio"
)

var upgrader = websocket.Upgrader{}

// echoServer replays scripted replies and records what it receives
type echoServer struct {
	received  chan Outbound
	sessionID chan string
	replies   []string
	closeWith string
}

func (s *echoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.sessionID <- r.Header.Get(SessionHeader)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for _, reply := range s.replies {
		conn.WriteMessage(websocket.TextMessage, []byte(reply))
	}
	if s.closeWith != "" {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, s.closeWith))
		return
	}

	for {
		var msg Outbound
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		s.received <- msg
	}
}

func newEchoServer(replies ...string) (*echoServer, *httptest.Server) {
	es := &echoServer{
		received:  make(chan Outbound, 10),
		sessionID: make(chan string, 1),
		replies:   replies,
	}
	return es, httptest.NewServer(es)
}

func addr(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestClientSendAndReceive(t *testing.T) {
	es, srv := newEchoServer(`{"audio":"AAA="}`, `{"interrupted":true}`, `garbage`, `{"error":"boom"}`)
	defer srv.Close()

	opened := make(chan struct{}, 1)
	client := NewClient(Config{
		ServerAddr: addr(srv),
		SessionID:  "session-1",
		OnOpen:     func() { opened <- struct{}{} },
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case <-opened:
	default:
		t.Error("expected OnOpen before Connect returned")
	}
	if got := <-es.sessionID; got != "session-1" {
		t.Errorf("expected session header, got %q", got)
	}

	want := []InboundKind{KindAudio, KindInterrupted, KindError}
	for _, kind := range want {
		select {
		case msg := <-client.Messages():
			if msg.Kind() != kind {
				t.Errorf("got %v, want %v", msg.Kind(), kind)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %v", kind)
		}
	}

	chunk := audio.EncodedChunk{Data: "AQI=", MimeType: "audio/pcm;rate=16000"}
	if err := client.SendAudio(chunk); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}
	if err := client.SendReset(); err != nil {
		t.Fatalf("SendReset failed: %v", err)
	}

	first := <-es.received
	if first.Audio != "AQI=" || first.MimeType != "audio/pcm;rate=16000" {
		t.Errorf("unexpected audio message %+v", first)
	}
	if second := <-es.received; !second.Reset {
		t.Errorf("expected reset message, got %+v", second)
	}
}

func TestClientCloseReason(t *testing.T) {
	es, srv := newEchoServer()
	es.closeWith = "session expired"
	defer srv.Close()

	reasons := make(chan string, 1)
	client := NewClient(Config{
		ServerAddr: addr(srv),
		OnClose:    func(reason string) { reasons <- reason },
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case reason := <-reasons:
		if reason != "session expired" {
			t.Errorf("expected close reason, got %q", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}

	// Messages is closed once the reader exits
	if _, ok := <-client.Messages(); ok {
		t.Error("expected closed message channel")
	}
	if client.IsConnected() {
		t.Error("expected disconnected client")
	}
	if err := client.SendReset(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestClientSendBeforeConnect(t *testing.T) {
	client := NewClient(Config{ServerAddr: "localhost:1"})
	if err := client.SendReset(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	client.Close()
}

func TestClientDialFailureReportsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var detail string
	client := NewClient(Config{
		ServerAddr: addr(srv),
		OnError:    func(d string) { detail = d },
	})
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected dial failure")
	}
	if detail == "" {
		t.Error("expected OnError detail")
	}
}

func TestClientOnMessageCallback(t *testing.T) {
	_, srv := newEchoServer(`{"audio":"AAA="}`)
	defer srv.Close()

	got := make(chan Inbound, 1)
	client := NewClient(Config{
		ServerAddr: addr(srv),
		OnMessage:  func(m Inbound) { got <- m },
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case msg := <-got:
		if msg.Audio != "AAA=" {
			t.Errorf("unexpected message %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestClientURL(t *testing.T) {
	client := NewClient(Config{ServerAddr: "localhost:3000"})
	if client.URL() != "ws://localhost:3000/" {
		t.Errorf("unexpected URL %s", client.URL())
	}
}
