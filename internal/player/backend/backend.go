/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package backend renders the player's current item. Backends report
// progress only through their notification channel; every other method is
// called from the session loop.
package backend

import (
	"github.com/rs/zerolog"

	"hdxremote/internal/protocol"
)

type NotificationKind int

const (
	// Ready means the loaded item can start playing.
	Ready NotificationKind = iota
	// Ended means the loaded item played to its end.
	Ended
	// Failed means the loaded item cannot be played.
	Failed
)

func (k NotificationKind) String() string {
	switch k {
	case Ready:
		return "ready"
	case Ended:
		return "ended"
	default:
		return "failed"
	}
}

// Notification reports a change of the item loaded under Token. Receivers
// discard notifications whose token is no longer current.
type Notification struct {
	Kind       NotificationKind
	ItemID     int64
	Token      uint64
	DurationMs int64
	Err        error
}

// Backend plays one item at a time.
type Backend interface {
	// Load replaces the current item, paused at position zero.
	Load(item protocol.Item) (token uint64, err error)
	Play() error
	Pause() error
	Seek(positionMs int64) error
	// Stop unloads the current item.
	Stop() error
	// SetVolume takes a percentage in [0, 100].
	SetVolume(pct int) error
	Position() int64
	Notifications() <-chan Notification
	Close() error
}

const notifyBuffer = 16

// notifier is the single-producer side of a backend's notification channel.
type notifier struct {
	log zerolog.Logger
	ch  chan Notification
}

func newNotifier(log zerolog.Logger) notifier {
	return notifier{log: log, ch: make(chan Notification, notifyBuffer)}
}

// send never blocks the audio path; a full channel drops the notification.
func (n notifier) send(note Notification) {
	select {
	case n.ch <- note:
	default:
		n.log.Warn().Str("kind", note.Kind.String()).Uint64("token", note.Token).Msg("notification dropped")
	}
}
