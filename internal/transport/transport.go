/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package transport wraps the message-queue sockets used by the remote
// control protocol. Servers hold a ROUTER, clients a DEALER. All sockets
// move physical multipart messages; framing lives in package wire.
package transport

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrReleased is returned by operations on a released socket.
	ErrReleased = errors.New("socket released")
	// ErrUnknownPeer is returned when a routed send names a peer that is gone.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrNotSupported is returned by operations a socket kind cannot perform.
	ErrNotSupported = errors.New("operation not supported")
)

// Route addresses one peer of a ROUTER socket. ID is opaque and only ever
// echoed back. Envelope is set for REQ peers, which expect an empty
// delimiter frame between the identity and the payload.
type Route struct {
	ID       []byte
	Envelope bool
}

// Key returns the route identity as a map key.
func (r Route) Key() string { return string(r.ID) }

// Message is one inbound physical multipart message.
type Message struct {
	Route Route
	Parts [][]byte
}

// Socket is the contract shared by ROUTER and DEALER sockets.
type Socket interface {
	// Bind listens on the given TCP port. Fails if the port is in use.
	Bind(port int) error
	// Connect dials address ("host:port" or a full endpoint).
	Connect(address string) error
	// Receive waits at most timeout. It returns nil, nil on timeout.
	Receive(timeout time.Duration) (*Message, error)
	// Send queues parts for delivery. The route is ignored by DEALER sockets.
	Send(to Route, parts [][]byte) error
	// Release tears the socket down. It is idempotent.
	Release() error
}

// splitEnvelope strips the ROUTER identity frame and an optional REQ
// delimiter from a raw inbound message.
func splitEnvelope(frames [][]byte) (Message, bool) {
	if len(frames) == 0 {
		return Message{}, false
	}
	msg := Message{Route: Route{ID: append([]byte(nil), frames[0]...)}}
	rest := frames[1:]
	if len(rest) > 0 && len(rest[0]) == 0 {
		msg.Route.Envelope = true
		rest = rest[1:]
	}
	msg.Parts = rest
	return msg, true
}

// joinEnvelope is the inverse of splitEnvelope.
func joinEnvelope(to Route, parts [][]byte) [][]byte {
	out := make([][]byte, 0, len(parts)+2)
	out = append(out, to.ID)
	if to.Envelope {
		out = append(out, []byte{})
	}
	return append(out, parts...)
}
