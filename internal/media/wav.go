/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package media

import (
	"os"

	"github.com/faiface/beep"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

func openWAV(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "open wav")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, beep.Format{}, errors.Errorf("%s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "decode wav")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(buf.Format.SampleRate),
		NumChannels: buf.Format.NumChannels,
		Precision:   2,
	}
	return &pcmStreamer{samples: toStereo(buf)}, format, nil
}

// toStereo normalises integer PCM to [-1, 1] stereo frames. Mono is
// duplicated, extra channels beyond two are dropped.
func toStereo(buf *audio.IntBuffer) [][2]float64 {
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	scale := float64(int64(1) << uint(depth-1))

	frames := len(buf.Data) / ch
	out := make([][2]float64, frames)
	for i := 0; i < frames; i++ {
		l := float64(buf.Data[i*ch]) / scale
		r := l
		if ch > 1 {
			r = float64(buf.Data[i*ch+1]) / scale
		}
		out[i] = [2]float64{l, r}
	}
	return out
}

// pcmStreamer plays fully decoded samples.
type pcmStreamer struct {
	samples [][2]float64
	pos     int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if p.pos >= len(p.samples) {
		return 0, false
	}
	n := copy(samples, p.samples[p.pos:])
	p.pos += n
	return n, true
}

func (p *pcmStreamer) Err() error    { return nil }
func (p *pcmStreamer) Len() int      { return len(p.samples) }
func (p *pcmStreamer) Position() int { return p.pos }
func (p *pcmStreamer) Close() error  { return nil }

func (p *pcmStreamer) Seek(pos int) error {
	if pos < 0 || pos > len(p.samples) {
		return errors.Errorf("seek %d out of range [0, %d]", pos, len(p.samples))
	}
	p.pos = pos
	return nil
}
