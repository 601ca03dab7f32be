/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package backend

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hdxremote/internal/protocol"
)

// MPD delegates playback to a Music Player Daemon. The daemon's queue is
// used as a single-item slot; the session owns the real queue.
type MPD struct {
	notifier
	log      zerolog.Logger
	network  string
	addr     string
	password string
	watcher  *mpd.Watcher
	done     chan struct{}

	mu      sync.Mutex
	token   uint64
	item    protocol.Item
	loaded  bool
	playing bool
}

// NewMPD connects to addr, a host:port pair or a unix socket path.
func NewMPD(addr, password string, log zerolog.Logger) (*MPD, error) {
	log = log.With().Str("backend", "mpd").Str("addr", addr).Logger()
	network := "tcp"
	if strings.HasPrefix(addr, "/") {
		network = "unix"
	}
	m := &MPD{
		notifier: newNotifier(log),
		log:      log,
		network:  network,
		addr:     addr,
		password: password,
		done:     make(chan struct{}),
	}
	if err := m.do(func(c *mpd.Client) error { return c.Ping() }); err != nil {
		return nil, err
	}
	w, err := mpd.NewWatcher(network, addr, password, "player")
	if err != nil {
		return nil, errors.Wrap(err, "mpd watcher")
	}
	m.watcher = w
	go m.watch()
	return m, nil
}

// do runs fn on a fresh connection.
func (m *MPD) do(fn func(*mpd.Client) error) error {
	var c *mpd.Client
	var err error
	if m.password != "" {
		c, err = mpd.DialAuthenticated(m.network, m.addr, m.password)
	} else {
		c, err = mpd.Dial(m.network, m.addr)
	}
	if err != nil {
		return errors.Wrap(err, "mpd dial")
	}
	defer c.Close()
	return fn(c)
}

func (m *MPD) Load(item protocol.Item) (uint64, error) {
	m.mu.Lock()
	m.token++
	token := m.token
	m.item = item
	m.loaded = false
	m.playing = false
	m.mu.Unlock()

	var duration int64
	err := m.do(func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.Add(item.URI); err != nil {
			return err
		}
		songs, err := c.PlaylistInfo(-1, -1)
		if err != nil {
			return err
		}
		if len(songs) > 0 {
			duration = songDuration(songs[0])
		}
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "load %s", item.URI)
		m.send(Notification{Kind: Failed, ItemID: item.ID, Token: token, Err: err})
		return token, err
	}

	m.mu.Lock()
	m.loaded = true
	m.mu.Unlock()
	m.send(Notification{Kind: Ready, ItemID: item.ID, Token: token, DurationMs: duration})
	return token, nil
}

func (m *MPD) Play() error {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return nil
	}
	m.playing = true
	m.mu.Unlock()

	return m.do(func(c *mpd.Client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		if st["state"] == "pause" {
			return c.Pause(false)
		}
		return c.Play(0)
	})
}

func (m *MPD) Pause() error {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
	return m.do(func(c *mpd.Client) error { return c.Pause(true) })
}

func (m *MPD) Seek(positionMs int64) error {
	return m.do(func(c *mpd.Client) error {
		return c.SeekCur(time.Duration(positionMs)*time.Millisecond, false)
	})
}

func (m *MPD) Stop() error {
	m.mu.Lock()
	m.loaded = false
	m.playing = false
	m.mu.Unlock()
	return m.do(func(c *mpd.Client) error { return c.Stop() })
}

func (m *MPD) SetVolume(pct int) error {
	return m.do(func(c *mpd.Client) error { return c.SetVolume(pct) })
}

func (m *MPD) Position() int64 {
	var pos int64
	err := m.do(func(c *mpd.Client) error {
		st, err := c.Status()
		if err != nil {
			return err
		}
		pos = secondsToMs(st["elapsed"])
		return nil
	})
	if err != nil {
		m.log.Debug().Err(err).Msg("position")
	}
	return pos
}

func (m *MPD) Notifications() <-chan Notification { return m.ch }

func (m *MPD) Close() error {
	close(m.done)
	return m.watcher.Close()
}

// watch turns a daemon stop after playback into an Ended notification.
func (m *MPD) watch() {
	for {
		select {
		case <-m.done:
			return
		case err, ok := <-m.watcher.Error:
			if !ok {
				return
			}
			m.log.Warn().Err(err).Msg("watcher")
		case _, ok := <-m.watcher.Event:
			if !ok {
				return
			}
			m.checkEnded()
		}
	}
}

func (m *MPD) checkEnded() {
	var state string
	err := m.do(func(c *mpd.Client) error {
		st, err := c.Status()
		state = st["state"]
		return err
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("status")
		return
	}

	m.mu.Lock()
	if state != "stop" || !m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = false
	note := Notification{Kind: Ended, ItemID: m.item.ID, Token: m.token}
	m.mu.Unlock()
	m.send(note)
}

func songDuration(song mpd.Attrs) int64 {
	if d, ok := song["duration"]; ok {
		return secondsToMs(d)
	}
	return secondsToMs(song["Time"])
}

func secondsToMs(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 1000))
}
