package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

func writeTone(t *testing.T, path string, rate, frames int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Data:           make([]int, frames*2),
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		buf.Data[i*2] = int(6000 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
		buf.Data[i*2+1] = buf.Data[i*2]
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath("/music/a.song.wav", "/out"); got != "/out/a.song.opf" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.wav")
	bad := filepath.Join(dir, "bad.wav")
	writeTone(t, good, 48000, 24000)
	writeTone(t, bad, 44100, 4410)

	var out bytes.Buffer
	progress := NewProgress(&out, 2)
	results := encodeAll(zerolog.Nop(), []string{good, bad}, dir, 2, progress)

	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].err != nil {
		t.Fatalf("good file: %v", results[0].err)
	}
	if results[0].duration != 500*time.Millisecond {
		t.Errorf("duration = %s", results[0].duration)
	}
	if results[1].err == nil {
		t.Error("44.1 kHz input accepted")
	}
	if _, err := os.Stat(filepath.Join(dir, "good.opf")); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.opf")); !os.IsNotExist(err) {
		t.Error("failed output left behind")
	}
	if !strings.Contains(out.String(), "(2/2 files, 1 failed)") {
		t.Errorf("progress output %q", out.String())
	}

	list := filepath.Join(dir, "queue.txt")
	if err := writeQueueList(list, results); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(list)
	if err != nil {
		t.Fatal(err)
	}
	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			entries = append(entries, line)
		}
	}
	if len(entries) != 1 || entries[0] != filepath.Join(dir, "good.opf") {
		t.Errorf("queue list entries %v", entries)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "album")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.flac", "a.wav", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(sub, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "single.wav")
	if err := os.WriteFile(single, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := expandInputs([]string{single, sub})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{single, filepath.Join(sub, "a.wav"), filepath.Join(sub, "b.flac")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := expandInputs([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("missing input accepted")
	}
	if needsTranscode("x.WAV") || !needsTranscode("x.flac") {
		t.Error("needsTranscode")
	}
}
