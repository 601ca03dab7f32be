/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"hdxremote/pkg/spec"
)

const (
	app_name           = "HDX-Encode"
	developer_title    = "Developer Hardiyanto"
	developer_subtitle = "Build 27/12/2025 Ebiet Version"
)

func main() {
	var (
		dest      string
		queueList string
		workers   int
		silent    bool
		version   bool
	)
	flag.StringVarP(&dest, "out", "o", "", "destination folder (defaults next to each input)")
	flag.StringVarP(&queueList, "queue-list", "q", "", "write encoded files to this queue list")
	flag.StringVar(&ffmpegPath, "ffmpeg", ffmpegPath, "transcoder for non-WAV inputs")
	flag.IntVarP(&workers, "workers", "w", runtime.NumCPU(), "parallel encoders")
	flag.BoolVarP(&silent, "silent", "s", false, "log errors only")
	flag.BoolVarP(&version, "version", "v", false, "print version and exit")
	flag.Parse()

	if version {
		fmt.Printf("%s V.%d.%d\n", app_name, spec.VersionMajor, spec.VersionMinor)
		fmt.Printf("%s %s\n", developer_title, developer_subtitle)
		return
	}

	level := zerolog.InfoLevel
	if silent {
		level = zerolog.ErrorLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	inputs, err := expandInputs(flag.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("inputs")
	}
	if len(inputs) == 0 {
		inputs, dest, queueList, workers, err = interview(dest, workers)
		if err != nil {
			log.Fatal().Err(err).Msg("interview")
		}
	}
	if len(inputs) == 0 {
		log.Fatal().Msg("nothing to encode")
	}

	results := make([]outcome, 0, len(inputs))
	groups := map[string][]string{}
	for _, in := range inputs {
		d := dest
		if d == "" {
			d = filepath.Dir(in)
		}
		groups[d] = append(groups[d], in)
	}
	progress := NewProgress(os.Stdout, len(inputs))
	for d, ins := range groups {
		results = append(results, encodeAll(log, ins, d, workers, progress)...)
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		}
	}
	if queueList != "" {
		if err := writeQueueList(queueList, results); err != nil {
			log.Fatal().Err(err).Msg("queue list")
		}
		log.Info().Str("path", queueList).Msg("queue list written")
	}
	if failed > 0 {
		log.Error().Int("failed", failed).Msg("some files were not encoded")
		os.Exit(1)
	}
}

func interview(dest string, workers int) ([]string, string, string, int, error) {
	rl, err := readline.NewEx(&readline.Config{Prompt: ">> "})
	if err != nil {
		return nil, "", "", 0, err
	}
	defer rl.Close()

	fmt.Printf("\n%s version %d.%d\n", app_name, spec.VersionMajor, spec.VersionMinor)
	fmt.Printf("%s\n", developer_title)
	fmt.Printf("%s\n", developer_subtitle)
	pattern := ask(rl, "1. Audio files (glob)", "*.wav")
	d := ask(rl, "2. Destination Folder (must exist)", defaultString(dest, "."))
	q := ask(rl, "3. Queue list to write (empty skips)", "")
	w, _ := strconv.Atoi(ask(rl, "4. Worker Threads", strconv.Itoa(workers)))

	inputs, err := filepath.Glob(pattern)
	if err != nil {
		return nil, "", "", 0, err
	}
	return inputs, d, q, w, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func ask(rl *readline.Instance, prompt, def string) string {
	rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, def))
	line, _ := rl.Readline()
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}
