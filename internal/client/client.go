/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package client talks to an HDX remote server over a DEALER socket. A
// Client is not safe for concurrent use.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hdxremote/internal/protocol"
	"hdxremote/internal/transport"
	"hdxremote/internal/wire"
	"hdxremote/pkg/spec"
)

// HandshakeTimeoutError is returned by Dial when the server stays silent.
type HandshakeTimeoutError struct {
	Timeout time.Duration
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("server did not respond within %s", e.Timeout)
}

// ErrNoReply is returned by Call when the reply batch does not arrive in time.
var ErrNoReply = errors.New("no reply from server")

// EventHandler receives every event the server delivers.
type EventHandler func(protocol.EventMessage)

// NewIdentity returns a fresh routing identity.
func NewIdentity() string { return uuid.NewString() }

type Client struct {
	log     zerolog.Logger
	sock    transport.Socket
	server  protocol.ServerHandshake
	onEvent EventHandler

	// ReplyTimeout bounds Call when ctx has no deadline.
	ReplyTimeout time.Duration
	// Linger is how long Close keeps the socket open after sending the
	// disconnect so the frame leaves before release.
	Linger time.Duration
}

const defaultLinger = 100 * time.Millisecond

// Dial connects sock to address and performs the handshake. On failure the
// socket is released.
func Dial(ctx context.Context, sock transport.Socket, address string, hs protocol.Handshake, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	c := &Client{
		log:          log.With().Str("component", "client").Logger(),
		sock:         sock,
		ReplyTimeout: spec.HandshakeTimeout,
		Linger:       defaultLinger,
	}
	if err := sock.Connect(address); err != nil {
		sock.Release()
		return nil, err
	}
	b, err := json.Marshal(hs)
	if err != nil {
		sock.Release()
		return nil, errors.Wrap(err, "marshal handshake")
	}
	if err := c.send([]string{string(b)}); err != nil {
		sock.Release()
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for {
		frames, err := c.receiveUntil(ctx, deadline)
		if err != nil {
			sock.Release()
			return nil, err
		}
		if frames == nil {
			sock.Release()
			return nil, &HandshakeTimeoutError{Timeout: timeout}
		}
		if protocol.Classify(frames) != protocol.KindObject {
			c.log.Debug().Int("frames", len(frames)).Msg("ignoring message before handshake")
			continue
		}
		if err := json.Unmarshal([]byte(frames[0]), &c.server); err != nil {
			sock.Release()
			return nil, errors.Wrap(err, "decode server handshake")
		}
		c.log.Debug().Str("server", c.server.Name).Str("device", c.server.DeviceName).Msg("connected")
		return c, nil
	}
}

// Server returns the handshake the server answered with.
func (c *Client) Server() protocol.ServerHandshake { return c.server }

// OnEvent installs the event handler. Events are acknowledged whether or
// not a handler is set.
func (c *Client) OnEvent(h EventHandler) { c.onEvent = h }

// Call sends one batch. It waits for the reply batch only when at least one
// invocation asked for a reply.
func (c *Client) Call(ctx context.Context, invs ...protocol.Invocation) ([]protocol.Reply, error) {
	if len(invs) == 0 {
		return nil, nil
	}
	if err := c.send(protocol.EncodeBatch(invs)); err != nil {
		return nil, err
	}
	want := 0
	for _, inv := range invs {
		if inv.WantReply {
			want++
		}
	}
	if want == 0 {
		return nil, nil
	}

	deadline := time.Now().Add(c.ReplyTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	for {
		frames, err := c.receiveUntil(ctx, deadline)
		if err != nil {
			return nil, err
		}
		if frames == nil {
			return nil, ErrNoReply
		}
		switch protocol.Classify(frames) {
		case protocol.KindBatch:
			if err := c.serveBatch(frames); err != nil {
				return nil, err
			}
		case protocol.KindReplies:
			replies, err := protocol.DecodeReplies(frames[0])
			if err != nil {
				return nil, err
			}
			if len(replies) != want {
				c.log.Warn().Int("want", want).Int("got", len(replies)).Msg("reply count mismatch")
			}
			return replies, nil
		default:
			c.log.Debug().Int("frames", len(frames)).Msg("unexpected message")
		}
	}
}

// PollEvents handles incoming event batches for up to timeout and returns
// how many events were handled.
func (c *Client) PollEvents(ctx context.Context, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	handled := 0
	for {
		frames, err := c.receiveUntil(ctx, deadline)
		if err != nil {
			return handled, err
		}
		if frames == nil {
			return handled, nil
		}
		if protocol.Classify(frames) != protocol.KindBatch {
			c.log.Debug().Int("frames", len(frames)).Msg("unexpected message")
			continue
		}
		if err := c.serveBatch(frames); err != nil {
			return handled, err
		}
		handled += len(frames) / 2
	}
}

// Close announces the disconnect, lingers for Linger, then releases the
// socket.
func (c *Client) Close() error {
	inv, err := protocol.NewInvocation(spec.ActionDisconnect, false)
	if err == nil {
		if err := c.send(protocol.EncodeBatch([]protocol.Invocation{inv})); err != nil {
			c.log.Debug().Err(err).Msg("send disconnect")
		} else {
			c.linger()
		}
	}
	return c.sock.Release()
}

// linger drains inbound messages until Linger has passed.
func (c *Client) linger() {
	deadline := time.Now().Add(c.Linger)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return
		}
		if _, err := c.sock.Receive(left); err != nil {
			return
		}
	}
}

// serveBatch runs a server-initiated batch. Only onEvent is understood.
func (c *Client) serveBatch(frames []string) error {
	invs, err := protocol.ParseBatch(frames)
	if err != nil {
		c.log.Warn().Err(err).Msg("malformed batch from server")
		return nil
	}
	var replies []protocol.Reply
	for _, inv := range invs {
		reply := c.serveOne(inv)
		if inv.WantReply {
			replies = append(replies, reply)
		}
	}
	if len(replies) == 0 {
		return nil
	}
	frame, err := protocol.EncodeReplies(replies)
	if err != nil {
		return err
	}
	return c.send([]string{frame})
}

func (c *Client) serveOne(inv protocol.Invocation) protocol.Reply {
	failed := fmt.Sprintf("Executing action %s(%s) failed", inv.Name, inv.Params)
	if inv.Name != spec.ActionOnEvent {
		return protocol.Failure(failed, "unknown action")
	}
	var events []protocol.EventMessage
	if err := json.Unmarshal(inv.Params, &events); err != nil {
		return protocol.Failure(failed, err.Error())
	}
	for _, e := range events {
		if c.onEvent != nil {
			c.onEvent(e)
		}
	}
	return protocol.OK(protocol.EventIDs(events))
}

func (c *Client) send(frames []string) error {
	return errors.Wrap(c.sock.Send(transport.Route{}, wire.Encode(frames)), "send")
}

// receiveUntil returns the next decoded message, or nil once deadline passes.
func (c *Client) receiveUntil(ctx context.Context, deadline time.Time) ([]string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		left := time.Until(deadline)
		if left <= 0 {
			return nil, nil
		}
		if left > spec.PollInterval {
			left = spec.PollInterval
		}
		msg, err := c.sock.Receive(left)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		frames, err := wire.Decode(msg.Parts)
		if err != nil {
			c.log.Warn().Err(err).Msg("framing error")
			continue
		}
		return frames, nil
	}
}
