/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const inboxSize = 256

// ZMQSocket is a Socket backed by go-zeromq. A reader goroutine started on
// Bind/Connect feeds inbound messages into a channel so Receive can poll
// with a timeout.
type ZMQSocket struct {
	log    zerolog.Logger
	router bool
	sock   zmq4.Socket
	cancel context.CancelFunc

	inbox chan zmq4.Msg
	errs  chan error
	done  chan struct{}

	startOnce   sync.Once
	releaseOnce sync.Once
	mu          sync.Mutex
	released    bool
}

// NewRouter creates the server side socket.
func NewRouter(log zerolog.Logger) *ZMQSocket {
	ctx, cancel := context.WithCancel(context.Background())
	return &ZMQSocket{
		log:    log.With().Str("component", "transport").Str("socket", "router").Logger(),
		router: true,
		sock:   zmq4.NewRouter(ctx),
		cancel: cancel,
		inbox:  make(chan zmq4.Msg, inboxSize),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// NewDealer creates a client side socket. identity becomes the routing id
// the server sees; it must be unique among connected clients.
func NewDealer(log zerolog.Logger, identity string, dialTimeout time.Duration) *ZMQSocket {
	ctx, cancel := context.WithCancel(context.Background())
	opts := []zmq4.Option{
		zmq4.WithID(zmq4.SocketIdentity(identity)),
		zmq4.WithDialerTimeout(dialTimeout),
	}
	return &ZMQSocket{
		log:    log.With().Str("component", "transport").Str("socket", "dealer").Logger(),
		sock:   zmq4.NewDealer(ctx, opts...),
		cancel: cancel,
		inbox:  make(chan zmq4.Msg, inboxSize),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Endpoint turns "host:port" into a tcp endpoint. Full endpoints pass through.
func Endpoint(address string) string {
	if strings.Contains(address, "://") {
		return address
	}
	return "tcp://" + address
}

func (s *ZMQSocket) Bind(port int) error {
	if s.isReleased() {
		return ErrReleased
	}
	ep := fmt.Sprintf("tcp://*:%d", port)
	if err := s.sock.Listen(ep); err != nil {
		return errors.Wrapf(err, "bind %s", ep)
	}
	s.log.Info().Str("endpoint", ep).Msg("listening")
	s.start()
	return nil
}

func (s *ZMQSocket) Connect(address string) error {
	if s.isReleased() {
		return ErrReleased
	}
	ep := Endpoint(address)
	if err := s.sock.Dial(ep); err != nil {
		return errors.Wrapf(err, "connect %s", ep)
	}
	s.log.Debug().Str("endpoint", ep).Msg("connected")
	s.start()
	return nil
}

func (s *ZMQSocket) start() {
	s.startOnce.Do(func() { go s.readLoop() })
}

func (s *ZMQSocket) readLoop() {
	for {
		msg, err := s.sock.Recv()
		if err != nil {
			if !s.isReleased() {
				select {
				case s.errs <- errors.Wrap(err, "receive"):
				default:
				}
			}
			return
		}
		select {
		case s.inbox <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *ZMQSocket) Receive(timeout time.Duration) (*Message, error) {
	if s.isReleased() {
		return nil, ErrReleased
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case raw := <-s.inbox:
		if !s.router {
			return &Message{Parts: raw.Frames}, nil
		}
		msg, ok := splitEnvelope(raw.Frames)
		if !ok {
			return nil, nil
		}
		return &msg, nil
	case err := <-s.errs:
		return nil, err
	case <-timer.C:
		return nil, nil
	}
}

func (s *ZMQSocket) Send(to Route, parts [][]byte) error {
	if s.isReleased() {
		return ErrReleased
	}
	frames := parts
	if s.router {
		frames = joinEnvelope(to, parts)
	}
	if err := s.sock.SendMulti(zmq4.NewMsgFrom(frames...)); err != nil {
		return errors.Wrap(err, "send")
	}
	return nil
}

func (s *ZMQSocket) Release() error {
	var err error
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()
		close(s.done)
		s.cancel()
		err = s.sock.Close()
		s.log.Debug().Msg("released")
	})
	return err
}

func (s *ZMQSocket) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
