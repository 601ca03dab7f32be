/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package media decodes local audio files into beep streamers.
package media

import (
	"net/url"
	"time"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned for file types no decoder handles.
var ErrUnsupported = errors.New("unsupported media type")

// Open decodes the file behind uri. Plain paths and file:// URIs are accepted.
func Open(uri string) (beep.StreamSeekCloser, beep.Format, error) {
	path, err := LocalPath(uri)
	if err != nil {
		return nil, beep.Format{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return openWAV(path)
	case ".opf":
		return openOpusFrames(path)
	}
	return nil, beep.Format{}, errors.Wrapf(ErrUnsupported, "%s", path)
}

// LocalPath resolves uri to a filesystem path.
func LocalPath(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrapf(err, "parse %q", uri)
	}
	if u.Scheme != "file" {
		return "", errors.Wrapf(ErrUnsupported, "scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// Probe returns the playing time of uri without keeping it open.
func Probe(uri string) (time.Duration, error) {
	s, format, err := Open(uri)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return format.SampleRate.D(s.Len()), nil
}
