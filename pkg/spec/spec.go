/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package spec holds the constants both ends of the remote control protocol
// must agree on. Changing any of them is a wire break.
package spec

import "time"

const (
	// === IDENTITY & VERSIONING ===
	ServerName     = "HDX-Remote"
	VersionMajor   = 1
	VersionMinor   = 0
	APIVersion     = 1
	FramingVersion = 1

	// === TRANSPORT ===
	DefaultPort    = 9089
	DefaultAddress = "127.0.0.1"

	// MaxFrameSize is the largest physical frame placed on the socket.
	// Bump FramingVersion together with it.
	MaxFrameSize = 32 * 1024

	// ReplySigil prefixed to an action name asks the receiver for a reply.
	ReplySigil = '!'

	// === TIMING ===
	PollInterval       = 50 * time.Millisecond
	HandshakeTimeout   = 5 * time.Second
	AckTimeout         = 2 * time.Second
	MaxDeliveryRetries = 3
	MaxEventsPerBatch  = 64
)

// Reserved action names exchanged between server and clients.
const (
	ActionOnEvent    = "onEvent"
	ActionDisconnect = "disconnect"
)
