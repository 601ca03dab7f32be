/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package media

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hraban/opus"
	"github.com/pkg/errors"
)

// EncodeWAV converts a 48 kHz stereo 16-bit WAV file into an Opus frame
// stream written to w. It returns the encoded playing time.
func EncodeWAV(inputPath string, w io.Writer) (time.Duration, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return 0, errors.Wrap(err, "open wav")
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return 0, errors.Errorf("%s: not a valid wav file", inputPath)
	}
	if dec.SampleRate != opusRate || dec.NumChans != opusChannels || dec.BitDepth != 16 {
		return 0, errors.Errorf("%s: need 48000 Hz stereo 16-bit, got %d Hz %d ch %d-bit",
			inputPath, dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	enc, err := opus.NewEncoder(opusRate, opusChannels, opus.AppAudio)
	if err != nil {
		return 0, errors.Wrap(err, "opus encoder")
	}
	fw := &frameWriter{w: w, enc: enc}

	// read one second per I/O cycle
	intBuf := &audio.IntBuffer{
		Data:   make([]int, opusRate*opusChannels),
		Format: &audio.Format{NumChannels: opusChannels, SampleRate: opusRate},
	}
	total := 0
	for {
		n, err := dec.PCMBuffer(intBuf)
		if err != nil && err != io.EOF {
			return 0, errors.Wrap(err, "read pcm")
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			if err := fw.push(int16(intBuf.Data[i])); err != nil {
				return 0, err
			}
		}
		total += n
		if err == io.EOF {
			break
		}
	}
	if err := fw.flush(); err != nil {
		return 0, err
	}
	return time.Duration(total/opusChannels) * time.Second / opusRate, nil
}

// frameWriter accumulates interleaved samples into 20 ms packets.
type frameWriter struct {
	w   io.Writer
	enc *opus.Encoder
	pcm []int16
	out [1500]byte
}

func (f *frameWriter) push(s int16) error {
	f.pcm = append(f.pcm, s)
	if len(f.pcm) == opusFrameSize*opusChannels {
		return f.emit()
	}
	return nil
}

// flush pads the last partial packet with silence.
func (f *frameWriter) flush() error {
	if len(f.pcm) == 0 {
		return nil
	}
	for len(f.pcm) < opusFrameSize*opusChannels {
		f.pcm = append(f.pcm, 0)
	}
	return f.emit()
}

func (f *frameWriter) emit() error {
	n, err := f.enc.Encode(f.pcm, f.out[:])
	if err != nil {
		return errors.Wrap(err, "opus encode")
	}
	f.pcm = f.pcm[:0]
	if err := binary.Write(f.w, binary.BigEndian, uint16(n)); err != nil {
		return errors.Wrap(err, "write frame size")
	}
	if _, err := f.w.Write(f.out[:n]); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}
