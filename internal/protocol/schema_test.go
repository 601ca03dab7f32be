/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package protocol

import (
	"testing"

	"github.com/pkg/errors"
)

func TestDecodeHandshake(t *testing.T) {
	hs, err := DecodeHandshake(`{"name":"t","type":"COMMAND_LINE_ACTION","machine_id":"m1"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hs.Name != "t" || hs.Type != ClientCommandLineAction || hs.MachineID != "m1" {
		t.Fatalf("unexpected handshake: %+v", hs)
	}

	hs, err = DecodeHandshake(`{"name":"p","type":"PLAYER","machine_id":"m2","language":"de","player_port":9090,"actions":["!getState","[]"]}`)
	if err != nil {
		t.Fatalf("decode full: %v", err)
	}
	if hs.PlayerPort == nil || *hs.PlayerPort != 9090 || len(hs.Actions) != 2 || hs.Language != "de" {
		t.Fatalf("unexpected handshake: %+v", hs)
	}
}

func TestDecodeHandshakeRejects(t *testing.T) {
	cases := map[string]string{
		"missing name":    `{"type":"PLAYER","machine_id":"m"}`,
		"missing machine": `{"name":"n","type":"PLAYER"}`,
		"missing type":    `{"name":"n","machine_id":"m"}`,
		"unknown type":    `{"name":"n","type":"TOASTER","machine_id":"m"}`,
		"odd actions":     `{"name":"n","type":"PLAYER","machine_id":"m","actions":["!play"]}`,
		"not json":        `{"name":`,
		"empty name":      `{"name":"","type":"PLAYER","machine_id":"m"}`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeHandshake(frame); errors.Cause(err) != ErrBadHandshake {
				t.Fatalf("expected ErrBadHandshake, got %v", err)
			}
		})
	}
}

func TestHandshakeSchemaDocument(t *testing.T) {
	doc, err := HandshakeSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if len(doc) == 0 {
		t.Fatalf("empty schema document")
	}
}
