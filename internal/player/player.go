/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package player owns the queue and playback state served to clients. It is
// driven only from the session loop and is not safe for concurrent use.
package player

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hdxremote/internal/event"
	"hdxremote/internal/player/backend"
	"hdxremote/internal/protocol"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateBuffering State = "BUFFERING"
	StateReady     State = "READY"
	StateEnded     State = "ENDED"
)

type RepeatMode string

const (
	RepeatOff RepeatMode = "OFF"
	RepeatOne RepeatMode = "ONE"
	RepeatAll RepeatMode = "ALL"
)

func (m RepeatMode) Valid() bool {
	return m == RepeatOff || m == RepeatOne || m == RepeatAll
}

// Property keys of PROPERTY_CHANGED events.
const (
	PropState     = "state"
	PropIsPlaying = "is_playing"
	PropRepeat    = "repeat_mode"
	PropVolume    = "volume"
	PropRadio     = "radio"
	PropError     = "error"
)

// Reasons carried by ITEM_TRANSITION events.
const (
	ReasonSeek   = "SEEK"
	ReasonAuto   = "AUTO"
	ReasonRepeat = "REPEAT"
)

var (
	ErrEmptyQueue = errors.New("queue is empty")
	ErrNoItem     = errors.New("no current item")
	ErrOutOfRange = errors.New("index out of range")
)

// Emitter publishes state changes. instigator is nil for changes that did
// not originate from a client.
type Emitter interface {
	Emit(kind event.Kind, props map[string]any, instigator *int) *event.Event
}

// Prober returns the playing time of a queued uri.
type Prober func(uri string) (time.Duration, error)

type Player struct {
	log     zerolog.Logger
	backend backend.Backend
	emit    Emitter
	probe   Prober

	queue    []protocol.Item
	nextID   int64
	current  int
	state    State
	playing  bool
	duration int64
	repeat   RepeatMode
	volume   int
	radio    string
	token    uint64
}

func New(b backend.Backend, emit Emitter, log zerolog.Logger) *Player {
	return &Player{
		log:     log.With().Str("component", "player").Logger(),
		backend: b,
		emit:    emit,
		nextID:  1,
		current: -1,
		state:   StateIdle,
		repeat:  RepeatOff,
		volume:  100,
	}
}

// SetProber installs a duration lookup used when items are queued.
func (p *Player) SetProber(fn Prober) { p.probe = fn }

// Snapshot renders the full player state.
func (p *Player) Snapshot() protocol.ServerState {
	queue := make([]protocol.Item, len(p.queue))
	copy(queue, p.queue)
	var pos int64
	if p.current >= 0 {
		pos = p.backend.Position()
	}
	return protocol.ServerState{
		Queue:             queue,
		State:             string(p.state),
		IsPlaying:         p.playing,
		CurrentItemIndex:  p.current,
		CurrentPositionMs: pos,
		DurationMs:        p.duration,
		RepeatMode:        string(p.repeat),
	}
}

// Restore replaces the queue, repeat mode and volume with previously saved
// values. Nothing is loaded until a client starts playback.
func (p *Player) Restore(queue []protocol.Item, repeat RepeatMode, volume int) {
	p.queue = append([]protocol.Item(nil), queue...)
	for _, it := range p.queue {
		if it.ID >= p.nextID {
			p.nextID = it.ID + 1
		}
	}
	if repeat.Valid() {
		p.repeat = repeat
	}
	if volume >= 0 && volume <= 100 {
		if err := p.backend.SetVolume(volume); err != nil {
			p.log.Warn().Err(err).Msg("restore volume")
		} else {
			p.volume = volume
		}
	}
}

func (p *Player) Queue() []protocol.Item { return p.queue }
func (p *Player) Current() int { return p.current }
func (p *Player) State() State { return p.state }
func (p *Player) IsPlaying() bool { return p.playing }
func (p *Player) Repeat() RepeatMode { return p.repeat }
func (p *Player) Volume() int { return p.volume }
func (p *Player) Radio() string { return p.radio }

// ===============================
// Transport controls
// ===============================

func (p *Player) Play(instigator *int) error {
	if p.current < 0 {
		if len(p.queue) == 0 {
			return ErrEmptyQueue
		}
		p.current = 0
	}
	switch p.state {
	case StateIdle:
		p.transition(p.current, ReasonSeek, instigator)
	case StateEnded:
		if err := p.backend.Seek(0); err != nil {
			return err
		}
		p.setState(StateReady, instigator)
	}
	p.setPlaying(true, instigator)
	if p.state == StateReady {
		return p.backend.Play()
	}
	return nil
}

func (p *Player) Pause(instigator *int) error {
	p.setPlaying(false, instigator)
	if p.current < 0 {
		return nil
	}
	return p.backend.Pause()
}

func (p *Player) PlayPause(instigator *int) error {
	if p.playing {
		return p.Pause(instigator)
	}
	return p.Play(instigator)
}

func (p *Player) Stop(instigator *int) error {
	err := p.backend.Stop()
	p.token = 0
	p.setPlaying(false, instigator)
	p.setState(StateIdle, instigator)
	return err
}

// SeekToNext moves to the following item. At the end of the queue it wraps
// only in RepeatAll; otherwise the current item keeps playing. An ITEM_TRANSITION
// is emitted in every case so clients can resynchronise.
func (p *Player) SeekToNext(instigator *int) error {
	next := p.current + 1
	if next >= len(p.queue) {
		if p.repeat == RepeatAll && len(p.queue) > 0 {
			next = 0
		} else {
			p.emit.Emit(event.ItemTransition, p.transitionProps(ReasonSeek), instigator)
			return nil
		}
	}
	p.transition(next, ReasonSeek, instigator)
	return nil
}

func (p *Player) SeekToPrevious(instigator *int) error {
	prev := p.current - 1
	if prev < 0 {
		switch {
		case len(p.queue) == 0:
			prev = -1
		case p.repeat == RepeatAll:
			prev = len(p.queue) - 1
		default:
			prev = 0
		}
	}
	p.transition(prev, ReasonSeek, instigator)
	return nil
}

func (p *Player) SeekToItem(index int, instigator *int) error {
	if index < 0 || index >= len(p.queue) {
		return errors.Wrapf(ErrOutOfRange, "item %d of %d", index, len(p.queue))
	}
	p.transition(index, ReasonSeek, instigator)
	return nil
}

func (p *Player) SeekTo(positionMs int64, instigator *int) error {
	if p.current < 0 {
		return ErrNoItem
	}
	if positionMs < 0 || (p.duration > 0 && positionMs > p.duration) {
		return errors.Wrapf(ErrOutOfRange, "position %d of %d ms", positionMs, p.duration)
	}
	if err := p.backend.Seek(positionMs); err != nil {
		return err
	}
	if p.state == StateEnded {
		p.setState(StateReady, instigator)
	}
	p.emit.Emit(event.Seek, map[string]any{"position_ms": positionMs}, instigator)
	return nil
}

// ===============================
// Queue
// ===============================

// AddItem inserts uri at position, or appends when position is negative.
func (p *Player) AddItem(uri, title string, position int, instigator *int) (protocol.Item, error) {
	if uri == "" {
		return protocol.Item{}, errors.New("empty uri")
	}
	if position < 0 {
		position = len(p.queue)
	}
	if position > len(p.queue) {
		return protocol.Item{}, errors.Wrapf(ErrOutOfRange, "position %d of %d", position, len(p.queue))
	}
	p.userMutation(instigator)

	item := protocol.Item{ID: p.nextID, URI: uri, Title: title}
	p.nextID++
	if p.probe != nil {
		if d, err := p.probe(uri); err == nil {
			item.DurationMs = d.Milliseconds()
		} else {
			p.log.Debug().Err(err).Str("uri", uri).Msg("probe")
		}
	}

	p.queue = append(p.queue, protocol.Item{})
	copy(p.queue[position+1:], p.queue[position:])
	p.queue[position] = item
	if p.current >= position {
		p.current++
	}
	p.emit.Emit(event.ItemAdded, map[string]any{"index": position, "item": item}, instigator)
	return item, nil
}

func (p *Player) RemoveItem(index int, instigator *int) error {
	if index < 0 || index >= len(p.queue) {
		return errors.Wrapf(ErrOutOfRange, "item %d of %d", index, len(p.queue))
	}
	p.userMutation(instigator)

	removed := p.queue[index]
	p.queue = append(p.queue[:index], p.queue[index+1:]...)
	p.emit.Emit(event.ItemRemoved, map[string]any{"index": index, "item_id": removed.ID}, instigator)

	switch {
	case index < p.current:
		p.current--
	case index == p.current:
		if index < len(p.queue) {
			p.transition(index, ReasonAuto, instigator)
		} else {
			p.current = -1
			p.duration = 0
			return p.Stop(instigator)
		}
	}
	return nil
}

func (p *Player) MoveItem(from, to int, instigator *int) error {
	n := len(p.queue)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errors.Wrapf(ErrOutOfRange, "move %d to %d of %d", from, to, n)
	}
	if from == to {
		return nil
	}
	p.userMutation(instigator)

	item := p.queue[from]
	p.queue = append(p.queue[:from], p.queue[from+1:]...)
	p.queue = append(p.queue[:to], append([]protocol.Item{item}, p.queue[to:]...)...)

	switch {
	case p.current == from:
		p.current = to
	case from < p.current && to >= p.current:
		p.current--
	case from > p.current && to <= p.current:
		p.current++
	}
	p.emit.Emit(event.ItemMoved, map[string]any{"from": from, "to": to}, instigator)
	return nil
}

func (p *Player) ClearQueue(instigator *int) error {
	p.userMutation(instigator)
	p.queue = nil
	p.current = -1
	p.duration = 0
	p.emit.Emit(event.QueueCleared, map[string]any{}, instigator)
	return p.Stop(instigator)
}

// ===============================
// Properties
// ===============================

func (p *Player) SetRepeatMode(mode RepeatMode, instigator *int) error {
	if !mode.Valid() {
		return errors.Errorf("unknown repeat mode %q", mode)
	}
	p.repeat = mode
	p.property(PropRepeat, string(mode), instigator)
	return nil
}

func (p *Player) SetVolume(volume int, instigator *int) error {
	if volume < 0 || volume > 100 {
		return errors.Wrapf(ErrOutOfRange, "volume %d", volume)
	}
	if err := p.backend.SetVolume(volume); err != nil {
		return err
	}
	p.volume = volume
	p.property(PropVolume, volume, instigator)
	return nil
}

// StartRadio seeds endless playback: when the queue runs out the seed is
// queued again.
func (p *Player) StartRadio(uri string, instigator *int) error {
	if uri == "" {
		return errors.New("empty radio seed")
	}
	p.radio = uri
	p.property(PropRadio, uri, instigator)
	if len(p.queue) == 0 {
		if _, err := p.queueSeed(); err != nil {
			return err
		}
	}
	return nil
}

// CancelRadio is a no-op when no radio is active.
func (p *Player) CancelRadio(instigator *int) {
	if p.radio == "" {
		return
	}
	p.radio = ""
	p.emit.Emit(event.RadioCancelled, map[string]any{}, instigator)
}

// userMutation ends radio mode when a client edits the queue by hand.
func (p *Player) userMutation(instigator *int) {
	if instigator != nil {
		p.CancelRadio(instigator)
	}
}

// queueSeed appends the radio seed on behalf of the server.
func (p *Player) queueSeed() (protocol.Item, error) {
	return p.AddItem(p.radio, "", -1, nil)
}

// ===============================
// Backend notifications
// ===============================

// HandleNotification applies a backend report. Reports for items that are
// no longer loaded are ignored.
func (p *Player) HandleNotification(n backend.Notification) {
	if n.Token == 0 || n.Token != p.token {
		p.log.Debug().Str("kind", n.Kind.String()).Uint64("token", n.Token).Msg("stale notification")
		return
	}
	switch n.Kind {
	case backend.Ready:
		if n.DurationMs > 0 {
			p.duration = n.DurationMs
			if p.current >= 0 && p.current < len(p.queue) {
				p.queue[p.current].DurationMs = n.DurationMs
			}
		}
		p.setState(StateReady, nil)
		p.emit.Emit(event.ReadyToPlay, map[string]any{"index": p.current, "duration_ms": p.duration}, nil)
		if p.playing {
			if err := p.backend.Play(); err != nil {
				p.log.Warn().Err(err).Msg("start playback")
			}
		}
	case backend.Ended:
		p.advance()
	case backend.Failed:
		msg := "playback failed"
		if n.Err != nil {
			msg = n.Err.Error()
		}
		p.log.Warn().Err(n.Err).Int64("item", n.ItemID).Msg("backend failure")
		p.token = 0
		p.setPlaying(false, nil)
		p.setState(StateIdle, nil)
		p.property(PropError, msg, nil)
	}
}

func (p *Player) advance() {
	if p.repeat == RepeatOne {
		if err := p.backend.Seek(0); err != nil {
			p.log.Warn().Err(err).Msg("repeat")
		}
		p.emit.Emit(event.ItemTransition, p.transitionProps(ReasonRepeat), nil)
		if p.playing {
			p.backend.Play()
		}
		return
	}

	next := p.current + 1
	switch {
	case next < len(p.queue):
	case p.repeat == RepeatAll && len(p.queue) > 0:
		next = 0
	case p.radio != "":
		if _, err := p.queueSeed(); err != nil {
			p.log.Warn().Err(err).Msg("radio")
			next = -1
		}
	default:
		next = -1
	}
	if next < 0 {
		p.setPlaying(false, nil)
		p.setState(StateEnded, nil)
		return
	}
	p.transition(next, ReasonAuto, nil)
}

// ===============================
// Helpers
// ===============================

// transition makes index current and loads it. index -1 leaves nothing
// loaded.
func (p *Player) transition(index int, reason string, instigator *int) {
	p.current = index
	if index < 0 {
		p.emit.Emit(event.ItemTransition, p.transitionProps(reason), instigator)
		return
	}
	item := p.queue[index]
	p.duration = item.DurationMs
	p.emit.Emit(event.ItemTransition, p.transitionProps(reason), instigator)
	p.setState(StateBuffering, instigator)

	token, err := p.backend.Load(item)
	p.token = token
	if err != nil {
		p.log.Warn().Err(err).Str("uri", item.URI).Msg("load")
	}
}

func (p *Player) transitionProps(reason string) map[string]any {
	props := map[string]any{"index": p.current, "reason": reason}
	if p.current >= 0 && p.current < len(p.queue) {
		props["item"] = p.queue[p.current]
	}
	return props
}

func (p *Player) setState(s State, instigator *int) {
	if p.state == s {
		return
	}
	p.state = s
	p.property(PropState, string(s), instigator)
}

func (p *Player) setPlaying(v bool, instigator *int) {
	if p.playing == v {
		return
	}
	p.playing = v
	p.property(PropIsPlaying, v, instigator)
}

func (p *Player) property(key string, value any, instigator *int) {
	p.emit.Emit(event.PropertyChanged, map[string]any{event.PropertyKey: key, "value": value}, instigator)
}
