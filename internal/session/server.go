/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package session runs the server loop: it registers clients, dispatches
// their action batches and delivers player events until halted.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hdxremote/internal/action"
	"hdxremote/internal/event"
	"hdxremote/internal/player"
	"hdxremote/internal/player/backend"
	"hdxremote/internal/protocol"
	"hdxremote/internal/registry"
	"hdxremote/internal/store"
	"hdxremote/internal/transport"
	"hdxremote/internal/wire"
	"hdxremote/pkg/spec"
)

// input is one item of the loop's single ordered stream.
type input struct {
	msg  *transport.Message
	note *backend.Notification
	err  error
}

// delivery tracks the unacknowledged event batch of one client.
type delivery struct {
	sent    time.Time
	retries int
}

// Option customises a Server.
type Option func(*Server)

// WithStore persists the player queue in st.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithProber looks up item durations when they are queued.
func WithProber(fn player.Prober) Option {
	return func(s *Server) { s.player.SetProber(fn) }
}

// WithSeed queues uris at startup when the restored queue is empty.
func WithSeed(uris []string) Option {
	return func(s *Server) { s.seed = uris }
}

type Server struct {
	cfg     Config
	log     zerolog.Logger
	sock    transport.Socket
	backend backend.Backend
	store   *store.Store
	seed    []string

	reg        *registry.Registry
	events     *event.Engine
	player     *player.Player
	dispatcher *action.Dispatcher

	inbox      chan input
	deliveries map[int]*delivery
	leaving    map[int]bool

	halt        chan struct{}
	haltOnce    sync.Once
	releaseOnce sync.Once
}

// New wires a server around sock and b. The server owns both from Run on.
func New(cfg Config, sock transport.Socket, b backend.Backend, log zerolog.Logger, opts ...Option) *Server {
	log = log.With().Str("component", "session").Logger()
	reg := registry.New()
	events := event.NewEngine(reg, log)
	s := &Server{
		cfg:        cfg,
		log:        log,
		sock:       sock,
		backend:    b,
		reg:        reg,
		events:     events,
		player:     player.New(b, events, log),
		inbox:      make(chan input, 64),
		deliveries: make(map[int]*delivery),
		leaving:    make(map[int]bool),
		halt:       make(chan struct{}),
	}
	s.dispatcher = action.NewDispatcher(action.NewRegistry(s.actions(), player.Actions(s.player)), log)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Halt asks Run to return. It is safe to call from any goroutine.
func (s *Server) Halt() {
	s.haltOnce.Do(func() { close(s.halt) })
}

// Run binds the socket and serves until ctx ends, Halt is called or the
// transport fails. The socket is released on every path.
func (s *Server) Run(ctx context.Context) error {
	defer s.release()

	if err := s.sock.Bind(s.cfg.Port); err != nil {
		return errors.Wrapf(err, "bind port %d", s.cfg.Port)
	}
	s.restore(ctx)
	s.log.Info().Int("port", s.cfg.Port).Str("device", s.cfg.DeviceName).Msg("serving")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go s.pumpTransport(stop, &wg)
	go s.pumpBackend(stop, &wg)
	defer func() {
		close(stop)
		wg.Wait()
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if s.halted(ctx) {
			s.shutdown()
			return nil
		}
		select {
		case <-ctx.Done():
		case <-s.halt:
		case in := <-s.inbox:
			if in.err != nil {
				s.shutdown()
				return errors.Wrap(in.err, "transport")
			}
			if in.note != nil {
				s.player.HandleNotification(*in.note)
			} else {
				s.handle(in.msg)
			}
		case now := <-ticker.C:
			s.checkDeliveries(now)
		}
		s.flushEvents()
	}
}

func (s *Server) halted(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.halt:
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	s.releaseOnce.Do(func() {
		if err := s.sock.Release(); err != nil {
			s.log.Warn().Err(err).Msg("release socket")
		}
	})
}

// shutdown drops undelivered events and saves the player state.
func (s *Server) shutdown() {
	if n := s.events.LiveCount(); n > 0 {
		s.log.Info().Int("events", n).Msg("dropping undelivered events")
	}
	s.persist()
	s.log.Info().Int("clients", s.reg.Len()).Msg("halted")
}

// ===============================
// Input pumps
// ===============================

func (s *Server) pumpTransport(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}
		msg, err := s.sock.Receive(s.cfg.PollInterval)
		if err != nil {
			if errors.Cause(err) == transport.ErrReleased {
				return
			}
			select {
			case s.inbox <- input{err: err}:
			case <-stop:
			}
			return
		}
		if msg == nil {
			continue
		}
		select {
		case s.inbox <- input{msg: msg}:
		case <-stop:
			return
		}
	}
}

func (s *Server) pumpBackend(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	notes := s.backend.Notifications()
	for {
		select {
		case <-stop:
			return
		case n, ok := <-notes:
			if !ok {
				return
			}
			select {
			case s.inbox <- input{note: &n}:
			case <-stop:
				return
			}
		}
	}
}

// ===============================
// Routing
// ===============================

func (s *Server) handle(msg *transport.Message) {
	frames, err := wire.Decode(msg.Parts)
	if err != nil {
		s.log.Warn().Err(err).Msg("framing error")
		return
	}
	c, known := s.reg.ByRoute(msg.Route)
	kind := protocol.Classify(frames)

	switch {
	case !known && kind == protocol.KindObject:
		s.handshake(msg.Route, frames[0])
	case !known:
		s.log.Warn().Str("kind", kind.String()).Msg("message from unregistered peer")
	case kind == protocol.KindReplies:
		s.acknowledge(c, frames[0])
	case kind == protocol.KindBatch:
		s.batch(c, frames)
	default:
		s.log.Warn().Int("client", c.ID).Str("kind", kind.String()).Int("frames", len(frames)).Msg("unexpected message")
	}
}

func (s *Server) handshake(route transport.Route, frame string) {
	hs, err := protocol.DecodeHandshake(frame)
	if err != nil {
		s.log.Warn().Err(err).Msg("rejected handshake")
		return
	}
	c, err := s.reg.Register(route, hs)
	if err != nil {
		s.log.Warn().Err(err).Msg("register")
		return
	}
	s.log.Info().Int("client", c.ID).Str("name", c.Name).Str("type", string(c.Type)).Msg("client connected")

	var replies []protocol.Reply
	if len(hs.Actions) > 0 {
		invs, err := protocol.ParseBatch(hs.Actions)
		if err != nil {
			s.log.Warn().Err(err).Int("client", c.ID).Msg("handshake actions")
		} else {
			replies = s.dispatch(c, invs)
		}
	}

	reply := protocol.ServerHandshake{
		Name:          s.cfg.Name,
		DeviceName:    s.cfg.DeviceName,
		APIVersion:    spec.APIVersion,
		ServerState:   s.player.Snapshot(),
		MachineID:     s.cfg.MachineID,
		ActionReplies: replies,
	}
	b, err := json.Marshal(reply)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal server handshake")
		return
	}
	s.send(c, []string{string(b)})
	s.settleLeaving()
}

func (s *Server) batch(c *registry.ClientSession, frames []string) {
	invs, err := protocol.ParseBatch(frames)
	if err != nil {
		s.log.Warn().Err(err).Int("client", c.ID).Msg("framing error")
		return
	}
	replies := s.dispatch(c, invs)
	if len(replies) > 0 {
		frame, err := protocol.EncodeReplies(replies)
		if err != nil {
			s.log.Error().Err(err).Msg("encode replies")
		} else {
			s.send(c, []string{frame})
		}
	}
	s.settleLeaving()
}

func (s *Server) dispatch(c *registry.ClientSession, invs []protocol.Invocation) []protocol.Reply {
	res := s.dispatcher.Dispatch(action.Call{ClientID: c.ID}, invs)
	if res.PlayerTouched {
		s.persist()
	}
	return res.Replies
}

// settleLeaving removes clients that asked to disconnect once their replies
// are out.
func (s *Server) settleLeaving() {
	for id := range s.leaving {
		s.disconnect(id, "client request")
		delete(s.leaving, id)
	}
}

// send delivers frames to c. A send failure is fatal to that client only.
func (s *Server) send(c *registry.ClientSession, frames []string) bool {
	if err := s.sock.Send(c.Route, wire.Encode(frames)); err != nil {
		s.log.Warn().Err(err).Int("client", c.ID).Msg("send failed")
		s.disconnect(c.ID, "send failure")
		return false
	}
	return true
}

func (s *Server) disconnect(id int, reason string) {
	c, err := s.reg.Remove(id)
	if err != nil {
		return
	}
	s.events.Forget(id)
	delete(s.deliveries, id)
	s.log.Info().Int("client", id).Str("name", c.Name).Str("reason", reason).Msg("client disconnected")
}

// ===============================
// Event delivery
// ===============================

// acknowledge releases the in-flight events named by the client's reply
// batch. A batch naming nothing in flight, such as a late ack of a resend,
// changes nothing.
func (s *Server) acknowledge(c *registry.ClientSession, frame string) {
	replies, err := protocol.DecodeReplies(frame)
	if err != nil {
		s.log.Warn().Err(err).Int("client", c.ID).Msg("framing error")
		return
	}
	for _, r := range replies {
		if !r.Success {
			s.log.Debug().Int("client", c.ID).Str("error", r.Error).Msg("client rejected event")
		}
	}
	if n := s.events.Ack(c.ID, protocol.AckedEventIDs(replies)); n == 0 {
		s.log.Debug().Int("client", c.ID).Msg("reply batch acknowledges nothing in flight")
		return
	}
	if len(s.events.InFlight(c.ID)) == 0 {
		delete(s.deliveries, c.ID)
	}
}

// flushEvents sends the next batch to every client that has nothing in flight.
func (s *Server) flushEvents() {
	for _, id := range s.events.Backlog() {
		c, ok := s.reg.ByID(id)
		if !ok {
			s.events.Forget(id)
			continue
		}
		batch := s.events.TakeBatch(id, s.cfg.MaxEventsPerBatch)
		if len(batch) == 0 {
			continue
		}
		if s.sendEvents(c, batch) {
			s.deliveries[id] = &delivery{sent: time.Now()}
		}
	}
}

func (s *Server) sendEvents(c *registry.ClientSession, batch []*event.Event) bool {
	frames := make([]string, 0, len(batch)*2)
	header := string(spec.ReplySigil) + spec.ActionOnEvent
	for _, e := range batch {
		b, err := json.Marshal([]protocol.EventMessage{e.Message()})
		if err != nil {
			s.log.Error().Err(err).Uint64("event", e.ID).Msg("marshal event")
			continue
		}
		frames = append(frames, header, string(b))
	}
	return s.send(c, frames)
}

// checkDeliveries resends overdue batches and drops clients that stay silent.
func (s *Server) checkDeliveries(now time.Time) {
	for id, d := range s.deliveries {
		if now.Sub(d.sent) < s.cfg.AckTimeout {
			continue
		}
		c, ok := s.reg.ByID(id)
		if !ok {
			delete(s.deliveries, id)
			continue
		}
		if d.retries >= s.cfg.MaxRetries {
			s.disconnect(id, "event delivery timeout")
			continue
		}
		d.retries++
		d.sent = now
		s.log.Debug().Int("client", id).Int("retry", d.retries).Msg("resending events")
		s.sendEvents(c, s.events.InFlight(id))
	}
}

// ===============================
// Persistence
// ===============================

func (s *Server) restore(ctx context.Context) {
	if s.store != nil {
		snap, err := s.store.Load(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("load saved state")
		} else {
			s.player.Restore(snap.Queue, player.RepeatMode(snap.RepeatMode), snap.Volume)
			s.log.Info().Int("items", len(snap.Queue)).Msg("restored queue")
		}
	}
	if len(s.player.Queue()) > 0 {
		return
	}
	for _, uri := range s.seed {
		if _, err := s.player.AddItem(uri, "", -1, nil); err != nil {
			s.log.Warn().Err(err).Str("uri", uri).Msg("seed queue")
		}
	}
}

func (s *Server) persist() {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.store.Save(ctx, store.Snapshot{
		Queue:      s.player.Queue(),
		RepeatMode: string(s.player.Repeat()),
		Volume:     s.player.Volume(),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("save state")
	}
}
