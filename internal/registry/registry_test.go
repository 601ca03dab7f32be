/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package registry

import (
	"testing"

	"github.com/pkg/errors"

	"hdxremote/internal/protocol"
	"hdxremote/internal/transport"
)

func route(id string) transport.Route { return transport.Route{ID: []byte(id)} }

func handshake(name string, ct protocol.ClientType) protocol.Handshake {
	return protocol.Handshake{Name: name, Type: ct, MachineID: "m"}
}

func TestRegisterAssignsLowestFreeID(t *testing.T) {
	r := New()
	a, err := r.Register(route("a"), handshake("a", protocol.ClientPlayer))
	if err != nil {
		t.Fatalf("register a: %v", err)
	}
	b, _ := r.Register(route("b"), handshake("b", protocol.ClientPlayer))
	if a.ID != 0 || b.ID != 1 {
		t.Fatalf("expected ids 0 and 1, got %d and %d", a.ID, b.ID)
	}
	if a.State != Active {
		t.Fatalf("expected ACTIVE, got %v", a.State)
	}

	removed, err := r.Remove(a.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.State != Disconnected {
		t.Fatalf("expected DISCONNECTED, got %v", removed.State)
	}
	c, _ := r.Register(route("c"), handshake("c", protocol.ClientPlayer))
	if c.ID != 0 {
		t.Fatalf("expected freed id 0 to be reused, got %d", c.ID)
	}
	if _, ok := r.ByRoute(route("a")); ok {
		t.Fatalf("removed route must not resolve")
	}
}

func TestRegisterRejectsDuplicateRoute(t *testing.T) {
	r := New()
	if _, err := r.Register(route("a"), handshake("a", protocol.ClientPlayer)); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := r.Register(route("a"), handshake("again", protocol.ClientPlayer))
	if errors.Cause(err) != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 client, got %d", r.Len())
	}
}

func TestReceivers(t *testing.T) {
	r := New()
	r.Register(route("cli"), handshake("cli", protocol.ClientCommandLineAction))
	r.Register(route("ui"), handshake("ui", protocol.ClientCommandLineInteractive))
	r.Register(route("pl"), handshake("pl", protocol.ClientPlayerStandalone))

	got := r.Receivers()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected receivers: %v", got)
	}
	pl, _ := r.ByID(2)
	if !pl.PlaysAudio() {
		t.Fatalf("standalone player should play audio")
	}
	if _, err := r.Remove(42); errors.Cause(err) != ErrUnknownClient {
		t.Fatalf("expected ErrUnknownClient, got %v", err)
	}
}
