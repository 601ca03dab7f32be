/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package event builds player state-change events, coalesces them per
// recipient and tracks how many recipients still owe an acknowledgement.
package event

import (
	"encoding/json"

	"hdxremote/internal/protocol"
)

// Kind of a player event.
type Kind string

const (
	ItemTransition  Kind = "ITEM_TRANSITION"
	PropertyChanged Kind = "PROPERTY_CHANGED"
	Seek            Kind = "SEEK"
	ItemAdded       Kind = "ITEM_ADDED"
	ItemRemoved     Kind = "ITEM_REMOVED"
	ItemMoved       Kind = "ITEM_MOVED"
	QueueCleared    Kind = "QUEUE_CLEARED"
	ReadyToPlay     Kind = "READY_TO_PLAY"
	RadioCancelled  Kind = "RADIO_CANCELLED"
)

// PropertyKey names the changed property of a PROPERTY_CHANGED event.
const PropertyKey = "key"

// NoEcho reports whether the instigator is excluded from the recipients.
func (k Kind) NoEcho() bool { return k == RadioCancelled }

// Event is one emitted state change. It lives in the engine's live table
// while at least one recipient still has to acknowledge it.
type Event struct {
	ID         uint64
	Kind       Kind
	Props      map[string]any
	Instigator *int

	pending int
	ident   string
}

// Pending returns the number of recipients that still owe an acknowledgement.
func (e *Event) Pending() int { return e.pending }

// coalesceKey is shared by events that override each other: property
// changes of the same key, or events that are equal.
func (e *Event) coalesceKey() string {
	if e.Kind == PropertyChanged {
		if k, ok := e.Props[PropertyKey].(string); ok {
			return "prop:" + k
		}
	}
	return "ident:" + e.ident
}

// Message renders the wire form.
func (e *Event) Message() protocol.EventMessage {
	return protocol.EventMessage{
		ID:         e.ID,
		Kind:       string(e.Kind),
		Properties: e.Props,
		Instigator: e.Instigator,
	}
}

func identity(kind Kind, props map[string]any) string {
	b, err := json.Marshal(props)
	if err != nil {
		return string(kind)
	}
	return string(kind) + "|" + string(b)
}
