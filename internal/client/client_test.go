package client

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hdxremote/internal/player/backend"
	"hdxremote/internal/protocol"
	"hdxremote/internal/session"
	"hdxremote/internal/transport"
	"hdxremote/internal/wire"
)

func startServer(t *testing.T) *transport.MemoryRouter {
	t.Helper()
	router := transport.NewMemoryRouter()
	cfg := session.DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	srv := session.New(cfg, router, backend.NewNull(zerolog.Nop()), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return router
}

func dial(t *testing.T, router *transport.MemoryRouter, name string, typ protocol.ClientType) *Client {
	t.Helper()
	hs := protocol.Handshake{Name: name, Type: typ, MachineID: "m-" + name}
	c, err := Dial(context.Background(), router.Dial(NewIdentity()), "", hs, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("Dial(%s): %v", name, err)
	}
	return c
}

func mustInvocation(t *testing.T, name string, reply bool, params ...any) protocol.Invocation {
	t.Helper()
	inv, err := protocol.NewInvocation(name, reply, params...)
	if err != nil {
		t.Fatal(err)
	}
	return inv
}

func TestDialHandshake(t *testing.T) {
	router := startServer(t)
	c := dial(t, router, "cli", protocol.ClientCommandLineInteractive)
	defer c.Close()

	if c.Server().ServerState.State != "IDLE" {
		t.Fatalf("state = %q", c.Server().ServerState.State)
	}
	if c.Server().APIVersion != 1 {
		t.Fatalf("api = %d", c.Server().APIVersion)
	}
}

func TestDialTimeout(t *testing.T) {
	router := transport.NewMemoryRouter() // nobody serves it
	sock := router.Dial("lonely")
	hs := protocol.Handshake{Name: "x", Type: protocol.ClientCommandLineAction, MachineID: "m"}

	_, err := Dial(context.Background(), sock, "", hs, 50*time.Millisecond, zerolog.Nop())
	hte, ok := err.(*HandshakeTimeoutError)
	if !ok {
		t.Fatalf("err = %v (%T)", err, err)
	}
	if hte.Timeout != 50*time.Millisecond || !strings.Contains(err.Error(), "server did not respond within 50ms") {
		t.Fatalf("message = %q", err)
	}
	if _, err := sock.Receive(0); err != transport.ErrReleased {
		t.Fatalf("socket not released: %v", err)
	}
}

func TestCallAndEvents(t *testing.T) {
	router := startServer(t)
	listener := dial(t, router, "listener", protocol.ClientCommandLineInteractive)
	defer listener.Close()
	actor := dial(t, router, "actor", protocol.ClientCommandLineAction)
	defer actor.Close()

	var got []protocol.EventMessage
	listener.OnEvent(func(e protocol.EventMessage) { got = append(got, e) })

	replies, err := actor.Call(context.Background(),
		mustInvocation(t, "addItem", true, "song.wav", "Song"),
		mustInvocation(t, "setVolume", false, 10),
		mustInvocation(t, "getState", true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(replies) != 2 || !replies[0].Success || !replies[1].Success {
		t.Fatalf("replies = %+v", replies)
	}
	var item protocol.Item
	if err := json.Unmarshal(replies[0].Result.(json.RawMessage), &item); err != nil {
		t.Fatal(err)
	}
	if item.URI != "song.wav" || item.Title != "Song" {
		t.Fatalf("item = %+v", item)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 2 && time.Now().Before(deadline) {
		if _, err := listener.PollEvents(context.Background(), 50*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if len(got) != 2 || got[0].Kind != "ITEM_ADDED" || got[1].Kind != "PROPERTY_CHANGED" {
		t.Fatalf("events = %+v", got)
	}
}

func TestCallWithoutReplyReturnsImmediately(t *testing.T) {
	router := startServer(t)
	c := dial(t, router, "cli", protocol.ClientCommandLineAction)
	defer c.Close()

	replies, err := c.Call(context.Background(), mustInvocation(t, "addItem", false, "a.wav"))
	if err != nil || replies != nil {
		t.Fatalf("Call = %v, %v", replies, err)
	}
}

func TestCloseDisconnects(t *testing.T) {
	router := startServer(t)
	a := dial(t, router, "a", protocol.ClientCommandLineAction)
	b := dial(t, router, "b", protocol.ClientCommandLineAction)
	defer b.Close()

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		replies, err := b.Call(context.Background(), mustInvocation(t, "getClients", true))
		if err != nil {
			t.Fatal(err)
		}
		var infos []protocol.ClientInfo
		json.Unmarshal(replies[0].Result.(json.RawMessage), &infos)
		if len(infos) == 1 && infos[0].Name == "b" && infos[0].IsCaller {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("closed client still registered")
}

// timedSocket records when the last send and the release happened.
type timedSocket struct {
	transport.Socket
	lastSend []string
	sentAt   time.Time
	released time.Time
}

func (s *timedSocket) Send(to transport.Route, parts [][]byte) error {
	frames, err := wire.Decode(parts)
	if err != nil {
		return err
	}
	s.lastSend, s.sentAt = frames, time.Now()
	return s.Socket.Send(to, parts)
}

func (s *timedSocket) Release() error {
	s.released = time.Now()
	return s.Socket.Release()
}

func TestCloseLingersAfterDisconnect(t *testing.T) {
	router := transport.NewMemoryRouter()
	sock := &timedSocket{Socket: router.Dial("lingering")}
	c := &Client{log: zerolog.Nop(), sock: sock, Linger: 80 * time.Millisecond}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if len(sock.lastSend) != 2 || sock.lastSend[0] != "disconnect" {
		t.Fatalf("last send = %q", sock.lastSend)
	}
	if sock.released.IsZero() {
		t.Fatal("socket not released")
	}
	if gap := sock.released.Sub(sock.sentAt); gap < 80*time.Millisecond {
		t.Fatalf("released %s after the disconnect, want at least 80ms", gap)
	}
}
