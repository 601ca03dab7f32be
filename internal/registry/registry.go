/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package registry tracks the identity of every connected client from
// handshake to disconnection. It is not safe for concurrent use; the
// session loop is its only owner.
package registry

import (
	"sort"

	"github.com/pkg/errors"

	"hdxremote/internal/protocol"
	"hdxremote/internal/transport"
)

var (
	ErrAlreadyRegistered = errors.New("routing id already registered")
	ErrUnknownClient     = errors.New("unknown client")
)

// State of a client session.
type State int

const (
	Unregistered State = iota
	Active
	Disconnected
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "UNREGISTERED"
	}
}

// ClientSession is the identity of one connected peer. Handshake fields are
// immutable after registration.
type ClientSession struct {
	ID         int
	Route      transport.Route
	Name       string
	Type       protocol.ClientType
	Language   string
	MachineID  string
	PlayerPort *int
	State      State
}

func (c *ClientSession) ReceivesEvents() bool { return c.Type.ReceivesEvents() }
func (c *ClientSession) PlaysAudio() bool     { return c.Type.PlaysAudio() }

// Info renders the public view of the session. isCaller marks the client the
// view is addressed to.
func (c *ClientSession) Info(isCaller bool) protocol.ClientInfo {
	return protocol.ClientInfo{
		ID:         c.ID,
		Name:       c.Name,
		Type:       c.Type,
		Language:   c.Language,
		MachineID:  c.MachineID,
		IsCaller:   isCaller,
		PlayerPort: c.PlayerPort,
	}
}

// Registry maps routing ids and client ids to sessions.
type Registry struct {
	byID    map[int]*ClientSession
	byRoute map[string]*ClientSession
}

func New() *Registry {
	return &Registry{
		byID:    make(map[int]*ClientSession),
		byRoute: make(map[string]*ClientSession),
	}
}

// Register moves a previously unseen routing id to ACTIVE.
func (r *Registry) Register(route transport.Route, hs protocol.Handshake) (*ClientSession, error) {
	if _, ok := r.byRoute[route.Key()]; ok {
		return nil, errors.Wrapf(ErrAlreadyRegistered, "route %q", route.ID)
	}
	c := &ClientSession{
		ID:         r.nextID(),
		Route:      route,
		Name:       hs.Name,
		Type:       hs.Type,
		Language:   hs.Language,
		MachineID:  hs.MachineID,
		PlayerPort: hs.PlayerPort,
		State:      Active,
	}
	r.byID[c.ID] = c
	r.byRoute[route.Key()] = c
	return c, nil
}

// nextID returns the lowest id not held by a live session.
func (r *Registry) nextID() int {
	id := 0
	for {
		if _, taken := r.byID[id]; !taken {
			return id
		}
		id++
	}
}

// Remove marks the client DISCONNECTED and frees its id.
func (r *Registry) Remove(id int) (*ClientSession, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownClient, "client %d", id)
	}
	c.State = Disconnected
	delete(r.byID, id)
	delete(r.byRoute, c.Route.Key())
	return c, nil
}

func (r *Registry) ByID(id int) (*ClientSession, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *Registry) ByRoute(route transport.Route) (*ClientSession, bool) {
	c, ok := r.byRoute[route.Key()]
	return c, ok
}

// Active returns every live session ordered by id.
func (r *Registry) Active() []*ClientSession {
	out := make([]*ClientSession, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Receivers returns the ids of live sessions classified as event receivers.
func (r *Registry) Receivers() []int {
	var ids []int
	for _, c := range r.Active() {
		if c.ReceivesEvents() {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (r *Registry) Len() int { return len(r.byID) }
