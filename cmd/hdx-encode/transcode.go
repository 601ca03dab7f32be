/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var sourceExts = map[string]bool{".wav": true, ".flac": true, ".mp3": true, ".ogg": true, ".m4a": true}

// ffmpegPath is the transcoder used for anything that is not already a WAV.
var ffmpegPath = "ffmpeg"

// expandInputs replaces directories with the audio files below them.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", arg)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		var found []string
		err = filepath.Walk(arg, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && sourceExts[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", arg)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

func needsTranscode(path string) bool {
	return strings.ToLower(filepath.Ext(path)) != ".wav"
}

// transcode writes a 48 kHz stereo 16-bit copy of src into tmpDir.
func transcode(src, tmpDir string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst := filepath.Join(tmpDir, base+".wav")
	args := []string{"-loglevel", "error", "-i", src, "-ar", "48000", "-ac", "2", "-sample_fmt", "s16", "-y", dst}

	var cmd *exec.Cmd
	if runtime.GOOS != "windows" {
		cmd = exec.Command("nice", append([]string{"-n", "15", ffmpegPath}, args...)...)
	} else {
		cmd = exec.Command(ffmpegPath, args...)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrapf(err, "ffmpeg %s: %s", filepath.Base(src), strings.TrimSpace(string(out)))
	}
	return dst, nil
}
