/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hdxremote/internal/media"
)

type job struct {
	index  int
	input  string
	output string
}

type outcome struct {
	job
	duration time.Duration
	err      error
}

// outputPath maps a.wav to <dest>/a.opf.
func outputPath(input, dest string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dest, base+".opf")
}

// encodeAll converts inputs with the given number of workers. Results keep
// the order of inputs.
func encodeAll(log zerolog.Logger, inputs []string, dest string, workers int, progress *Progress) []outcome {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan job)
	results := make([]outcome, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				d, err := prepareAndEncode(j.input, j.output)
				if err != nil {
					log.Error().Err(err).Str("input", j.input).Msg("encode failed")
					os.Remove(j.output)
				} else {
					log.Debug().Str("output", j.output).Dur("duration", d).Msg("encoded")
				}
				results[j.index] = outcome{job: j, duration: d, err: err}
				if progress != nil {
					progress.Done(err == nil)
				}
			}
		}()
	}
	for i, in := range inputs {
		jobs <- job{index: i, input: in, output: outputPath(in, dest)}
	}
	close(jobs)
	wg.Wait()
	return results
}

func prepareAndEncode(input, output string) (time.Duration, error) {
	if !needsTranscode(input) {
		return encodeOne(input, output)
	}
	tmp, err := os.MkdirTemp("", "hdx-encode-")
	if err != nil {
		return 0, errors.Wrap(err, "temp dir")
	}
	defer os.RemoveAll(tmp)
	wavPath, err := transcode(input, tmp)
	if err != nil {
		return 0, err
	}
	return encodeOne(wavPath, output)
}

func encodeOne(input, output string) (time.Duration, error) {
	f, err := os.Create(output)
	if err != nil {
		return 0, errors.Wrap(err, "create output")
	}
	w := bufio.NewWriter(f)
	d, err := media.EncodeWAV(input, w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "close output")
	}
	return d, err
}

// writeQueueList writes successful outputs in a form hdx-server --queue-list
// reads back.
func writeQueueList(path string, results []outcome) error {
	var b strings.Builder
	b.WriteString("# generated by hdx-encode\n")
	for _, r := range results {
		if r.err != nil {
			continue
		}
		out, err := filepath.Abs(r.output)
		if err != nil {
			return errors.Wrap(err, "resolve output")
		}
		fmt.Fprintf(&b, "# %s\n%s\n", r.duration.Round(time.Millisecond), out)
	}
	return errors.Wrap(os.WriteFile(path, []byte(b.String()), 0o644), "write queue list")
}
