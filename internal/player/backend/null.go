/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package backend

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hdxremote/internal/protocol"
)

// Null keeps time without producing sound. Items become ready as soon as
// they are loaded.
type Null struct {
	notifier

	mu      sync.Mutex
	token   uint64
	item    protocol.Item
	loaded  bool
	playing bool
	base    int64
	started time.Time
}

func NewNull(log zerolog.Logger) *Null {
	return &Null{notifier: newNotifier(log.With().Str("backend", "null").Logger())}
}

func (n *Null) Load(item protocol.Item) (uint64, error) {
	n.mu.Lock()
	n.token++
	n.item = item
	n.loaded = true
	n.playing = false
	n.base = 0
	token := n.token
	n.mu.Unlock()

	n.send(Notification{Kind: Ready, ItemID: item.ID, Token: token, DurationMs: item.DurationMs})
	return token, nil
}

func (n *Null) Play() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.loaded && !n.playing {
		n.playing = true
		n.started = time.Now()
	}
	return nil
}

func (n *Null) Pause() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.base = n.position()
	n.playing = false
	return nil
}

func (n *Null) Seek(positionMs int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.base = positionMs
	n.started = time.Now()
	return nil
}

func (n *Null) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loaded = false
	n.playing = false
	n.base = 0
	return nil
}

func (n *Null) SetVolume(int) error { return nil }

func (n *Null) Position() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position()
}

func (n *Null) position() int64 {
	if !n.playing {
		return n.base
	}
	return n.base + time.Since(n.started).Milliseconds()
}

// Finish reports the current item as played to its end.
func (n *Null) Finish() {
	n.mu.Lock()
	if !n.loaded {
		n.mu.Unlock()
		return
	}
	n.playing = false
	n.base = n.item.DurationMs
	note := Notification{Kind: Ended, ItemID: n.item.ID, Token: n.token}
	n.mu.Unlock()
	n.send(note)
}

func (n *Null) Notifications() <-chan Notification { return n.ch }

func (n *Null) Close() error { return n.Stop() }
