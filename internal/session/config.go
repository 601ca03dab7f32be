/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package session

import (
	"os"
	"time"

	"hdxremote/internal/machineid"
	"hdxremote/pkg/spec"
)

// Config tunes a Server.
type Config struct {
	Port       int
	Name       string
	DeviceName string
	MachineID  string

	// PollInterval paces delivery-timeout checks.
	PollInterval time.Duration
	// AckTimeout is how long an event batch may stay unacknowledged before
	// it is sent again.
	AckTimeout time.Duration
	// MaxRetries resends are attempted before the client is dropped.
	MaxRetries        int
	MaxEventsPerBatch int
}

// DefaultConfig fills identity fields from the host.
func DefaultConfig() Config {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	id, err := machineid.ID()
	if err != nil {
		id = machineid.Hash(host)
	}
	return Config{
		Port:              spec.DefaultPort,
		Name:              spec.ServerName,
		DeviceName:        host,
		MachineID:         id,
		PollInterval:      spec.PollInterval,
		AckTimeout:        spec.AckTimeout,
		MaxRetries:        spec.MaxDeliveryRetries,
		MaxEventsPerBatch: spec.MaxEventsPerBatch,
	}
}
