/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package media

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/hraban/opus"
	"github.com/pkg/errors"
)

// Opus frame files (.opf) hold 48 kHz stereo Opus packets of 20 ms, each
// prefixed by a big-endian uint16 length.
const (
	opusRate      = 48000
	opusChannels  = 2
	opusFrameSize = 960
	opusMaxFrame  = 5760
)

// ======================================================
// Lazy Opus Streamer
// ======================================================

type opusStreamer struct {
	file    *os.File
	dec     *opus.Decoder
	offsets []int64
	packet  int
	buffer  [][2]float64
	skip    int
	err     error
}

func openOpusFrames(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "open opus frames")
	}
	offsets, err := indexPackets(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	dec, err := opus.NewDecoder(opusRate, opusChannels)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, errors.Wrap(err, "opus decoder")
	}
	s := &opusStreamer{file: f, dec: dec, offsets: offsets}
	if err := s.Seek(0); err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	format := beep.Format{SampleRate: opusRate, NumChannels: opusChannels, Precision: 2}
	return s, format, nil
}

// indexPackets records the offset of every length prefix.
func indexPackets(f *os.File) ([]int64, error) {
	r := bufio.NewReader(f)
	var offsets []int64
	var off int64
	for {
		var sz uint16
		if err := binary.Read(r, binary.BigEndian, &sz); err != nil {
			if err == io.EOF {
				return offsets, nil
			}
			return nil, errors.Wrap(err, "index opus frames")
		}
		if _, err := r.Discard(int(sz)); err != nil {
			return nil, errors.Wrap(err, "truncated opus frame")
		}
		offsets = append(offsets, off)
		off += 2 + int64(sz)
	}
}

func (l *opusStreamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if len(l.buffer) == 0 {
			if !l.decodeNext() {
				return filled, filled > 0
			}
			continue
		}
		n := copy(samples[filled:], l.buffer)
		l.buffer = l.buffer[n:]
		filled += n
	}
	return filled, true
}

func (l *opusStreamer) decodeNext() bool {
	if l.packet >= len(l.offsets) {
		return false
	}
	var sz uint16
	if err := binary.Read(l.file, binary.BigEndian, &sz); err != nil {
		l.err = err
		return false
	}
	enc := make([]byte, sz)
	if _, err := io.ReadFull(l.file, enc); err != nil {
		l.err = err
		return false
	}
	l.packet++

	out := make([]int16, opusMaxFrame*opusChannels)
	n, err := l.dec.Decode(enc, out)
	if err != nil {
		// a corrupt packet is skipped, not fatal
		return true
	}
	for i := 0; i < n; i++ {
		l.buffer = append(l.buffer, [2]float64{
			float64(out[i*2]) / 32768.0,
			float64(out[i*2+1]) / 32768.0,
		})
	}
	if l.skip > 0 {
		k := l.skip
		if k > len(l.buffer) {
			k = len(l.buffer)
		}
		l.buffer = l.buffer[k:]
		l.skip -= k
	}
	return true
}

func (l *opusStreamer) Err() error { return l.err }
func (l *opusStreamer) Len() int   { return len(l.offsets) * opusFrameSize }

func (l *opusStreamer) Position() int {
	return l.packet*opusFrameSize - len(l.buffer) + l.skip
}

func (l *opusStreamer) Seek(pos int) error {
	if pos < 0 || pos > l.Len() {
		return errors.Errorf("seek %d out of range [0, %d]", pos, l.Len())
	}
	packet := pos / opusFrameSize
	l.buffer = nil
	l.skip = pos % opusFrameSize
	l.packet = packet
	if packet >= len(l.offsets) {
		return nil
	}
	if _, err := l.file.Seek(l.offsets[packet], io.SeekStart); err != nil {
		return errors.Wrap(err, "seek opus frames")
	}
	return nil
}

func (l *opusStreamer) Close() error { return l.file.Close() }
