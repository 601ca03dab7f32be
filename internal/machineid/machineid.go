/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package machineid derives a stable, non-reversible host identifier.
package machineid

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

var sources = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// ID hashes the first readable machine-id file, falling back to the hostname.
func ID() (string, error) {
	for _, path := range sources {
		b, err := os.ReadFile(path)
		if err == nil && len(strings.TrimSpace(string(b))) > 0 {
			return Hash(strings.TrimSpace(string(b))), nil
		}
	}
	host, err := os.Hostname()
	if err != nil {
		return "", errors.Wrap(err, "machine id")
	}
	return Hash(host), nil
}

// Hash returns the hex blake2b-128 digest of raw.
func Hash(raw string) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// only fails for invalid sizes or keys
		panic(err)
	}
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
