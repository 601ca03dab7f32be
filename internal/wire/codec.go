/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package wire converts logical string frames to the physical frames placed
// on the socket and back.
//
// Every logical frame is written as a 4-byte big-endian length frame followed
// by as many chunk frames as needed to carry the payload, each at most
// spec.MaxFrameSize bytes. An empty logical frame is a bare length frame.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"hdxremote/pkg/spec"
)

const lengthSize = 4

// ErrMalformed is returned (wrapped) when physical frames cannot be
// reassembled into logical frames.
var ErrMalformed = errors.New("malformed multipart message")

// Encode splits logical frames into physical frames.
func Encode(frames []string) [][]byte {
	return encode(frames, spec.MaxFrameSize)
}

// Decode reassembles physical frames produced by Encode.
func Decode(parts [][]byte) ([]string, error) {
	return decode(parts, spec.MaxFrameSize)
}

func encode(frames []string, max int) [][]byte {
	out := make([][]byte, 0, len(frames)*2)
	for _, f := range frames {
		hdr := make([]byte, lengthSize)
		binary.BigEndian.PutUint32(hdr, uint32(len(f)))
		out = append(out, hdr)

		data := []byte(f)
		for len(data) > 0 {
			n := len(data)
			if n > max {
				n = max
			}
			out = append(out, data[:n:n])
			data = data[n:]
		}
	}
	return out
}

func decode(parts [][]byte, max int) ([]string, error) {
	frames := make([]string, 0, len(parts)/2)
	// bytes not yet consumed; a declared length may never exceed it
	var remaining uint64
	for _, p := range parts {
		remaining += uint64(len(p))
	}
	for i := 0; i < len(parts); {
		hdr := parts[i]
		if len(hdr) != lengthSize {
			return nil, errors.Wrapf(ErrMalformed, "frame %d: length header has %d bytes", i, len(hdr))
		}
		want := binary.BigEndian.Uint32(hdr)
		remaining -= lengthSize
		if uint64(want) > math.MaxInt32 {
			return nil, errors.Wrapf(ErrMalformed, "frame %d: length %d too large", i, want)
		}
		if uint64(want) > remaining {
			return nil, errors.Wrapf(ErrMalformed, "truncated frame: %d bytes declared, %d left in message", want, remaining)
		}
		i++

		buf := make([]byte, 0, want)
		for uint32(len(buf)) < want {
			if i >= len(parts) {
				return nil, errors.Wrapf(ErrMalformed, "truncated frame: have %d of %d bytes", len(buf), want)
			}
			chunk := parts[i]
			if len(chunk) == 0 || len(chunk) > max {
				return nil, errors.Wrapf(ErrMalformed, "frame %d: chunk of %d bytes", i, len(chunk))
			}
			if uint64(len(buf))+uint64(len(chunk)) > uint64(want) {
				return nil, errors.Wrapf(ErrMalformed, "frame %d: chunk overruns declared length %d", i, want)
			}
			buf = append(buf, chunk...)
			remaining -= uint64(len(chunk))
			i++
		}
		frames = append(frames, string(buf))
	}
	return frames, nil
}

// PhysicalCount reports how many physical frames Encode produces for frames.
func PhysicalCount(frames []string) int {
	n := 0
	for _, f := range frames {
		n += 1 + (len(f)+spec.MaxFrameSize-1)/spec.MaxFrameSize
	}
	return n
}
