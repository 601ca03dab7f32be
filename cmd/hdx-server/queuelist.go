/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// readQueueList reads one uri per line. Blank lines and lines starting with
// '#' are skipped. Relative paths resolve against the list's directory.
func readQueueList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read queue list")
	}
	base := filepath.Dir(path)

	var uris []string
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "://") && !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		uris = append(uris, line)
	}
	return uris, nil
}
