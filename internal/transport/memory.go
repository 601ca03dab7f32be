/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package transport

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

const memoryQueueSize = 1024

// ErrQueueFull is returned when an in-memory peer is not draining its inbox.
var ErrQueueFull = errors.New("peer queue full")

// MemoryRouter is an in-process ROUTER. Peers are created with Dial. It is
// used by tests and by embedders that run client and server in one process.
type MemoryRouter struct {
	mu       sync.Mutex
	inbox    chan Message
	peers    map[string]*MemoryDealer
	released bool
}

// NewMemoryRouter returns an unbound in-memory router.
func NewMemoryRouter() *MemoryRouter {
	return &MemoryRouter{
		inbox: make(chan Message, memoryQueueSize),
		peers: make(map[string]*MemoryDealer),
	}
}

// Dial creates a dealer attached to r with the given routing identity.
// A previous dealer with the same identity is detached.
func (r *MemoryRouter) Dial(identity string) *MemoryDealer {
	d := &MemoryDealer{
		id:     []byte(identity),
		router: r,
		inbox:  make(chan [][]byte, memoryQueueSize),
	}
	r.mu.Lock()
	r.peers[identity] = d
	r.mu.Unlock()
	return d
}

func (r *MemoryRouter) Bind(int) error {
	if r.isReleased() {
		return ErrReleased
	}
	return nil
}

func (r *MemoryRouter) Connect(string) error { return ErrNotSupported }

func (r *MemoryRouter) Receive(timeout time.Duration) (*Message, error) {
	if r.isReleased() {
		return nil, ErrReleased
	}
	return receive(r.inbox, timeout, func(m Message) *Message { return &m })
}

func (r *MemoryRouter) Send(to Route, parts [][]byte) error {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return ErrReleased
	}
	peer, ok := r.peers[to.Key()]
	r.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownPeer, "route %q", to.ID)
	}
	return peer.deliver(copyParts(parts))
}

func (r *MemoryRouter) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
	return nil
}

func (r *MemoryRouter) isReleased() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

func (r *MemoryRouter) detach(d *MemoryDealer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.peers[string(d.id)] == d {
		delete(r.peers, string(d.id))
	}
}

// MemoryDealer is the client half of a MemoryRouter connection.
type MemoryDealer struct {
	id     []byte
	router *MemoryRouter
	inbox  chan [][]byte

	mu       sync.Mutex
	released bool
}

func (d *MemoryDealer) Bind(int) error { return ErrNotSupported }

func (d *MemoryDealer) Connect(string) error {
	if d.isReleased() {
		return ErrReleased
	}
	return nil
}

func (d *MemoryDealer) Receive(timeout time.Duration) (*Message, error) {
	if d.isReleased() {
		return nil, ErrReleased
	}
	return receive(d.inbox, timeout, func(p [][]byte) *Message { return &Message{Parts: p} })
}

func (d *MemoryDealer) Send(_ Route, parts [][]byte) error {
	if d.isReleased() {
		return ErrReleased
	}
	if d.router.isReleased() {
		return ErrReleased
	}
	msg := Message{Route: Route{ID: append([]byte(nil), d.id...)}, Parts: copyParts(parts)}
	select {
	case d.router.inbox <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDealer) Release() error {
	d.mu.Lock()
	already := d.released
	d.released = true
	d.mu.Unlock()
	if !already {
		d.router.detach(d)
	}
	return nil
}

func (d *MemoryDealer) deliver(parts [][]byte) error {
	if d.isReleased() {
		return ErrReleased
	}
	select {
	case d.inbox <- parts:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDealer) isReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

func receive[T any](ch <-chan T, timeout time.Duration, wrap func(T) *Message) (*Message, error) {
	select {
	case v := <-ch:
		return wrap(v), nil
	default:
	}
	if timeout <= 0 {
		return nil, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-ch:
		return wrap(v), nil
	case <-timer.C:
		return nil, nil
	}
}

func copyParts(parts [][]byte) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = append([]byte(nil), p...)
	}
	return out
}
