/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package event

import (
	"sort"

	"github.com/rs/zerolog"
)

// Recipients lists the ids of clients that currently receive events.
type Recipients interface {
	Receivers() []int
}

// Engine owns the live event table and every recipient's queue. It is not
// safe for concurrent use.
type Engine struct {
	log        zerolog.Logger
	recipients Recipients

	nextID   uint64
	live     map[uint64]*Event
	queues   map[int]*queue
	inflight map[int][]*Event
}

func NewEngine(recipients Recipients, log zerolog.Logger) *Engine {
	return &Engine{
		log:        log.With().Str("component", "events").Logger(),
		recipients: recipients,
		live:       make(map[uint64]*Event),
		queues:     make(map[int]*queue),
		inflight:   make(map[int][]*Event),
	}
}

// Emit creates an event and queues it for every receiver. An event nobody
// has to receive is retired before Emit returns.
func (g *Engine) Emit(kind Kind, props map[string]any, instigator *int) *Event {
	g.nextID++
	e := &Event{
		ID:         g.nextID,
		Kind:       kind,
		Props:      props,
		Instigator: instigator,
		ident:      identity(kind, props),
	}

	var targets []int
	for _, id := range g.recipients.Receivers() {
		if kind.NoEcho() && instigator != nil && *instigator == id {
			continue
		}
		targets = append(targets, id)
	}
	e.pending = len(targets)
	if e.pending == 0 {
		g.log.Debug().Uint64("event", e.ID).Str("kind", string(kind)).Msg("event retired without recipients")
		return e
	}
	g.live[e.ID] = e

	for _, id := range targets {
		q, ok := g.queues[id]
		if !ok {
			q = newQueue()
			g.queues[id] = q
		}
		if old := q.push(e); old != nil {
			g.log.Debug().Int("client", id).Uint64("replaced", old.ID).Uint64("by", e.ID).Msg("event coalesced")
			g.release(old)
		}
	}
	return e
}

// TakeBatch moves up to max queued events of client into flight. It returns
// nil while a previous batch is still unacknowledged.
func (g *Engine) TakeBatch(client, max int) []*Event {
	if len(g.inflight[client]) > 0 {
		return nil
	}
	q, ok := g.queues[client]
	if !ok || q.len() == 0 {
		return nil
	}
	batch := q.pop(max)
	g.inflight[client] = batch
	return batch
}

// InFlight returns the unacknowledged batch of client.
func (g *Engine) InFlight(client int) []*Event {
	return g.inflight[client]
}

// Ack releases the in-flight events of client named by ids and returns how
// many matched. Ids that are not in flight, such as a repeated ack of a
// resent batch, are ignored. Unmatched in-flight events stay for a resend.
func (g *Engine) Ack(client int, ids []uint64) int {
	batch := g.inflight[client]
	if len(batch) == 0 || len(ids) == 0 {
		return 0
	}
	acked := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		acked[id] = true
	}
	var rest []*Event
	for _, e := range batch {
		if acked[e.ID] {
			g.release(e)
		} else {
			rest = append(rest, e)
		}
	}
	if len(rest) == 0 {
		delete(g.inflight, client)
	} else {
		g.inflight[client] = rest
	}
	return len(batch) - len(rest)
}

// Forget drops every obligation of client, queued or in flight.
func (g *Engine) Forget(client int) {
	for _, e := range g.inflight[client] {
		g.release(e)
	}
	delete(g.inflight, client)
	if q, ok := g.queues[client]; ok {
		for _, e := range q.events() {
			g.release(e)
		}
		delete(g.queues, client)
	}
}

// Pending returns the queued, not yet sent, events of client in order.
func (g *Engine) Pending(client int) []*Event {
	if q, ok := g.queues[client]; ok {
		return q.events()
	}
	return nil
}

// Backlog lists clients that have queued events and nothing in flight.
func (g *Engine) Backlog() []int {
	var ids []int
	for id, q := range g.queues {
		if q.len() > 0 && len(g.inflight[id]) == 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Live looks an event up in the live table.
func (g *Engine) Live(id uint64) (*Event, bool) {
	e, ok := g.live[id]
	return e, ok
}

func (g *Engine) LiveCount() int { return len(g.live) }

func (g *Engine) release(e *Event) {
	e.pending--
	if e.pending <= 0 {
		e.pending = 0
		delete(g.live, e.ID)
	}
}
