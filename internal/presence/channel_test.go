package presence

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"airtrack/internal/logging"
	"airtrack/internal/services"
)

type presenceTestServer struct {
	srv   *httptest.Server
	inbox chan Event

	mu    sync.Mutex
	conns []*websocket.Conn
	seen  int
	token string
}

func newPresenceTestServer(t *testing.T, snapshot []User) *presenceTestServer {
	t.Helper()
	s := &presenceTestServer{inbox: make(chan Event, 32)}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.seen++
		s.token = r.URL.Query().Get("token")
		s.mu.Unlock()
		if err := conn.WriteJSON(Event{Kind: KindUsersList, Users: snapshot}); err != nil {
			return
		}
		go func() {
			for {
				var event Event
				if err := conn.ReadJSON(&event); err != nil {
					return
				}
				select {
				case s.inbox <- event:
				default:
				}
			}
		}()
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *presenceTestServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *presenceTestServer) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen
}

func (s *presenceTestServer) lastToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *presenceTestServer) send(t *testing.T, event Event) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		t.Fatal("no active server connection")
	}
	if err := s.conns[len(s.conns)-1].WriteJSON(event); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
}

func (s *presenceTestServer) dropActive(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		t.Fatal("no active server connection")
	}
	_ = s.conns[len(s.conns)-1].Close()
}

func testSettings(url string) Settings {
	return Settings{
		URL:          url,
		DocumentID:   "log-2026-08-29",
		Token:        "secret-token",
		Username:     "local",
		PingInterval: time.Minute,
		Backoff:      Policy{Base: time.Millisecond, Max: 4 * time.Millisecond, MaxAttempts: 3},
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestChannelConnectDeliversSnapshot(t *testing.T) {
	server := newPresenceTestServer(t, []User{
		{UserID: "u1", Username: "dana"},
		{UserID: "u2", Username: "alex"},
	})
	channel := NewChannel(testSettings(server.url()), logging.NewNop())
	defer channel.Disconnect()

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if channel.Status() != StatusConnected {
		t.Fatalf("expected connected status, got %q", channel.Status())
	}
	if got := server.lastToken(); got != "secret-token" {
		t.Fatalf("expected auth token in query string, got %q", got)
	}
	waitFor(t, func() bool { return channel.Collaborators().Len() == 2 },
		"initial users_list snapshot was not applied")

	channel.Disconnect()
	if channel.Status() != StatusDisconnected {
		t.Fatalf("expected disconnected status, got %q", channel.Status())
	}
	if channel.Collaborators().Len() != 0 {
		t.Fatal("disconnect must reset the collaborator set")
	}
}

func TestChannelAppliesEventsAndDropsUnknown(t *testing.T) {
	server := newPresenceTestServer(t, nil)

	var mu sync.Mutex
	var handled []EventKind
	channel := NewChannel(testSettings(server.url()), logging.NewNop(),
		WithEventHandler(func(event Event) {
			mu.Lock()
			handled = append(handled, event.Kind)
			mu.Unlock()
		}))
	defer channel.Disconnect()

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	server.send(t, Event{Kind: KindPong})
	server.send(t, Event{Kind: EventKind("room_renamed"), Username: "dana"})
	server.send(t, Event{Kind: KindUserJoined, UserID: "u1", Username: "dana"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) > 0 && handled[len(handled)-1] == KindUserJoined
	}, "user_joined event never reached the handler")

	if channel.Collaborators().Len() != 1 {
		t.Fatalf("expected one collaborator, got %d", channel.Collaborators().Len())
	}
	mu.Lock()
	defer mu.Unlock()
	for _, kind := range handled {
		if kind == KindPong || !kind.Known() {
			t.Fatalf("handler must not see %q events", kind)
		}
	}
}

func TestChannelReconnectsAfterDrop(t *testing.T) {
	server := newPresenceTestServer(t, []User{{UserID: "u1", Username: "dana"}})
	channel := NewChannel(testSettings(server.url()), logging.NewNop())
	defer channel.Disconnect()

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	waitFor(t, func() bool { return channel.Collaborators().Len() == 1 },
		"initial snapshot missing")

	server.dropActive(t)

	waitFor(t, func() bool { return server.connections() == 2 },
		"channel did not reconnect after connection loss")
	waitFor(t, func() bool { return channel.Status() == StatusConnected },
		"channel did not return to connected status")
	if channel.Attempts() != 0 {
		t.Fatalf("successful reconnect must reset attempts, got %d", channel.Attempts())
	}
}

func TestChannelStopsAtReconnectCeiling(t *testing.T) {
	server := newPresenceTestServer(t, nil)

	var failDial atomic.Bool
	dial := func(ctx context.Context, endpoint string) (*websocket.Conn, error) {
		if failDial.Load() {
			return nil, errors.New("connection refused")
		}
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return conn, err
	}

	channel := NewChannel(testSettings(server.url()), logging.NewNop(), WithDialFunc(dial))
	defer channel.Disconnect()

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	failDial.Store(true)
	server.dropActive(t)

	waitFor(t, func() bool { return channel.Attempts() == 3 },
		"expected retries up to the attempt ceiling")
	waitFor(t, func() bool { return channel.Status() == StatusDisconnected },
		"channel must stay disconnected once the ceiling is reached")

	before := server.connections()
	time.Sleep(20 * time.Millisecond)
	if server.connections() != before {
		t.Fatal("no further dials are allowed after the ceiling without manual reconnect")
	}

	failDial.Store(false)
	if err := channel.Reconnect(context.Background()); err != nil {
		t.Fatalf("manual reconnect failed: %v", err)
	}
	if channel.Status() != StatusConnected {
		t.Fatalf("expected connected status after manual reconnect, got %q", channel.Status())
	}
	if channel.Attempts() != 0 {
		t.Fatalf("manual reconnect must reset attempts, got %d", channel.Attempts())
	}
}

func TestChannelConnectFailureWrapsConnectionLost(t *testing.T) {
	dial := func(ctx context.Context, endpoint string) (*websocket.Conn, error) {
		return nil, errors.New("connection refused")
	}
	channel := NewChannel(testSettings("ws://127.0.0.1:1/presence"), logging.NewNop(), WithDialFunc(dial))

	err := channel.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect error")
	}
	if !errors.Is(err, services.ErrConnectionLost) {
		t.Fatalf("expected wrapped connection error, got %v", err)
	}
	if channel.Status() != StatusDisconnected {
		t.Fatalf("expected disconnected status, got %q", channel.Status())
	}
}

func TestChannelConnectIsIdempotent(t *testing.T) {
	server := newPresenceTestServer(t, nil)
	channel := NewChannel(testSettings(server.url()), logging.NewNop())
	defer channel.Disconnect()

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("second connect must be a no-op: %v", err)
	}
	if err := channel.Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect while connected must be a no-op: %v", err)
	}
	if server.connections() != 1 {
		t.Fatalf("expected a single connection, got %d", server.connections())
	}
}

func TestChannelSendRequiresConnection(t *testing.T) {
	channel := NewChannel(testSettings("ws://127.0.0.1:1/presence"), logging.NewNop())
	err := channel.SendCursor(Cursor{Row: 1, Column: 2})
	if !errors.Is(err, services.ErrConnectionLost) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestChannelSendsPresenceFrames(t *testing.T) {
	server := newPresenceTestServer(t, nil)
	channel := NewChannel(testSettings(server.url()), logging.NewNop())
	defer channel.Disconnect()

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := channel.SendCursor(Cursor{Row: 7, Column: 3}); err != nil {
		t.Fatalf("send cursor failed: %v", err)
	}
	if err := channel.SendSpotUpdate("spot-12"); err != nil {
		t.Fatalf("send spot update failed: %v", err)
	}

	var got []Event
	for len(got) < 2 {
		select {
		case event := <-server.inbox:
			got = append(got, event)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for presence frames, got %v", got)
		}
	}
	if got[0].Kind != KindCursorUpdate || got[0].Cursor == nil || got[0].Cursor.Row != 7 {
		t.Fatalf("unexpected cursor frame: %#v", got[0])
	}
	if got[1].Kind != KindSpotUpdate || got[1].SpotID != "spot-12" {
		t.Fatalf("unexpected spot frame: %#v", got[1])
	}
	if got[0].Username != "local" {
		t.Fatalf("frames must carry the local username, got %q", got[0].Username)
	}
}
