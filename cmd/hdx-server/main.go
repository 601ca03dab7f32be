/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"hdxremote/internal/media"
	"hdxremote/internal/player/backend"
	"hdxremote/internal/session"
	"hdxremote/internal/store"
	"hdxremote/internal/transport"
	"hdxremote/pkg/spec"
)

const (
	storage_data       = ".hdx-remote.db"
	developer_title    = "Developer Hardiyanto"
	developer_subtitle = "Build 27/12/2025 Ebiet Version"
)

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return v
	}
	return def
}

func main() {
	home, _ := os.UserHomeDir()

	var (
		port        int
		stateDB     string
		backendName string
		mpdAddress  string
		mpdPassword string
		queueList   string
		silent      bool
		debug       bool
		version     bool
	)
	flag.IntVarP(&port, "port", "p", envInt("HDX_PORT", spec.DefaultPort), "TCP port of the ROUTER socket")
	flag.StringVar(&stateDB, "state-db", envString("HDX_STATE_DB", filepath.Join(home, storage_data)), "sqlite file holding the queue (empty disables)")
	flag.StringVar(&backendName, "backend", envString("HDX_BACKEND", "beep"), "playback backend: beep, mpd or null")
	flag.StringVar(&mpdAddress, "mpd-address", envString("HDX_MPD_ADDRESS", "localhost:6600"), "MPD host:port or socket path")
	flag.StringVar(&mpdPassword, "mpd-password", os.Getenv("HDX_MPD_PASSWORD"), "MPD password")
	flag.StringVar(&queueList, "queue-list", os.Getenv("HDX_QUEUE_LIST"), "file of uris queued when no saved queue exists")
	flag.BoolVarP(&silent, "silent", "s", false, "log warnings and errors only")
	flag.BoolVar(&debug, "debug", false, "log debug messages")
	flag.BoolVarP(&version, "version", "v", false, "print version and exit")
	flag.Parse()

	if version {
		fmt.Printf("%s V.%d.%d (api %d, framing %d)\n", spec.ServerName, spec.VersionMajor, spec.VersionMinor, spec.APIVersion, spec.FramingVersion)
		fmt.Printf("%s %s\n", developer_title, developer_subtitle)
		return
	}

	log := newLogger(silent, debug)
	if err := run(log, port, stateDB, backendName, mpdAddress, mpdPassword, queueList); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(silent, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case silent:
		level = zerolog.WarnLevel
	case debug:
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func run(log zerolog.Logger, port int, stateDB, backendName, mpdAddress, mpdPassword, queueList string) error {
	b, err := openBackend(log, backendName, mpdAddress, mpdPassword)
	if err != nil {
		return err
	}
	defer b.Close()

	cfg := session.DefaultConfig()
	cfg.Port = port
	opts := []session.Option{}
	if backendName == "beep" {
		opts = append(opts, session.WithProber(media.Probe))
	}

	if stateDB != "" {
		st, err := store.Open(stateDB, 5*time.Second)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, session.WithStore(st))
	}

	if queueList != "" {
		uris, err := readQueueList(queueList)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithSeed(uris))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := session.New(cfg, transport.NewRouter(log), b, log, opts...)
	return srv.Run(ctx)
}

func openBackend(log zerolog.Logger, name, mpdAddress, mpdPassword string) (backend.Backend, error) {
	switch name {
	case "beep":
		return backend.NewBeep(log)
	case "mpd":
		return backend.NewMPD(mpdAddress, mpdPassword, log)
	case "null":
		return backend.NewNull(log), nil
	}
	return nil, errors.Errorf("unknown backend %q", name)
}
