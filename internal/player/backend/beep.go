/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package backend

import (
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hdxremote/internal/media"
	"hdxremote/internal/protocol"
)

// SpeakerRate is the output rate of the local speaker.
const SpeakerRate = beep.SampleRate(48000)

// ======================================================
// Runtime audio handles (live control)
// ======================================================
type track struct {
	token  uint64
	item   protocol.Item
	src    beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	volume *effects.Volume
}

// Beep plays local files on the default audio device.
type Beep struct {
	notifier
	log zerolog.Logger

	mu    sync.Mutex
	token uint64
	cur   *track
	pct   int
}

// NewBeep initialises the speaker. Only one Beep may exist per process.
func NewBeep(log zerolog.Logger) (*Beep, error) {
	log = log.With().Str("backend", "beep").Logger()
	if err := speaker.Init(SpeakerRate, SpeakerRate.N(100*time.Millisecond)); err != nil {
		return nil, errors.Wrap(err, "init speaker")
	}
	return &Beep{notifier: newNotifier(log), log: log, pct: 100}, nil
}

func (b *Beep) Load(item protocol.Item) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.unload()
	b.token++
	token := b.token

	src, format, err := media.Open(item.URI)
	if err != nil {
		b.send(Notification{Kind: Failed, ItemID: item.ID, Token: token, Err: err})
		return token, err
	}

	vol := &effects.Volume{Streamer: src, Base: 2}
	applyVolume(vol, b.pct)
	ctrl := &beep.Ctrl{Streamer: vol, Paused: true}

	var out beep.Streamer = ctrl
	if format.SampleRate != SpeakerRate {
		out = beep.Resample(4, format.SampleRate, SpeakerRate, ctrl)
	}
	b.cur = &track{token: token, item: item, src: src, format: format, ctrl: ctrl, volume: vol}

	speaker.Play(beep.Seq(out, beep.Callback(func() {
		if err := src.Err(); err != nil {
			b.send(Notification{Kind: Failed, ItemID: item.ID, Token: token, Err: err})
			return
		}
		b.send(Notification{Kind: Ended, ItemID: item.ID, Token: token})
	})))

	duration := format.SampleRate.D(src.Len()).Milliseconds()
	b.log.Debug().Str("uri", item.URI).Int64("duration_ms", duration).Uint64("token", token).Msg("loaded")
	b.send(Notification{Kind: Ready, ItemID: item.ID, Token: token, DurationMs: duration})
	return token, nil
}

func (b *Beep) Play() error  { return b.setPaused(false) }
func (b *Beep) Pause() error { return b.setPaused(true) }

func (b *Beep) setPaused(paused bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return nil
	}
	speaker.Lock()
	b.cur.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

func (b *Beep) Seek(positionMs int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return errors.New("nothing loaded")
	}
	pos := b.cur.format.SampleRate.N(time.Duration(positionMs) * time.Millisecond)
	if pos > b.cur.src.Len() {
		pos = b.cur.src.Len()
	}
	speaker.Lock()
	err := b.cur.src.Seek(pos)
	speaker.Unlock()
	return errors.Wrap(err, "seek")
}

func (b *Beep) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unload()
	return nil
}

func (b *Beep) SetVolume(pct int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pct = pct
	if b.cur != nil {
		speaker.Lock()
		applyVolume(b.cur.volume, pct)
		speaker.Unlock()
	}
	return nil
}

func (b *Beep) Position() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return 0
	}
	speaker.Lock()
	pos := b.cur.src.Position()
	speaker.Unlock()
	return b.cur.format.SampleRate.D(pos).Milliseconds()
}

func (b *Beep) Notifications() <-chan Notification { return b.ch }

func (b *Beep) Close() error {
	b.Stop()
	speaker.Close()
	return nil
}

// unload must be called with b.mu held.
func (b *Beep) unload() {
	if b.cur == nil {
		return
	}
	speaker.Clear()
	if err := b.cur.src.Close(); err != nil {
		b.log.Warn().Err(err).Str("uri", b.cur.item.URI).Msg("close source")
	}
	b.cur = nil
}

// applyVolume maps a percentage onto a base-2 gain.
func applyVolume(v *effects.Volume, pct int) {
	if pct <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(float64(pct) / 100)
}
