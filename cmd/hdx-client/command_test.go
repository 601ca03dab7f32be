package main

import (
	"encoding/json"
	"testing"

	"hdxremote/internal/protocol"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line   string
		name   string
		params string
	}{
		{"play", "play", "[]"},
		{"!pause", "pause", "[]"},
		{"seekToItem 3", "seekToItem", "[3]"},
		{`addItem /music/a.wav "My Song" 0`, "addItem", `["/music/a.wav","My Song",0]`},
		{`addItem '42'`, "addItem", `["42"]`},
		{"setVolume   50  ", "setVolume", "[50]"},
		{"x 1.5 ''", "x", `[1.5,""]`},
	}
	for _, c := range cases {
		inv, err := parseCommand(c.line)
		if err != nil {
			t.Fatalf("parseCommand(%q): %v", c.line, err)
		}
		if inv.Name != c.name || !inv.WantReply || string(inv.Params) != c.params {
			t.Errorf("parseCommand(%q) = %s %s, want %s %s", c.line, inv.Name, inv.Params, c.name, c.params)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"", "   ", `addItem "open`} {
		if _, err := parseCommand(line); err == nil {
			t.Errorf("parseCommand(%q) accepted", line)
		}
	}
}

func TestFormatReply(t *testing.T) {
	if got := formatReply(protocol.OK(json.RawMessage(`{"a":1}`))); got != `OK {"a":1}` {
		t.Errorf("got %q", got)
	}
	if got := formatReply(protocol.OK(nil)); got != "OK" {
		t.Errorf("got %q", got)
	}
	if got := formatReply(protocol.Failure("Executing action x([]) failed", "boom")); got != "FAIL Executing action x([]) failed (boom)" {
		t.Errorf("got %q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	by := 2
	e := protocol.EventMessage{ID: 7, Kind: "PROPERTY_CHANGED", Properties: map[string]any{"volume": 50}, Instigator: &by}
	if got := formatEvent(e); got != `EVENT #7 PROPERTY_CHANGED{"volume":50} by 2` {
		t.Errorf("got %q", got)
	}
}

func TestDecodeNames(t *testing.T) {
	got := decodeNames(json.RawMessage(`["play","addItem"]`))
	if len(got) != 2 || got[0] != "addItem" || got[1] != "play" {
		t.Errorf("got %v", got)
	}
	if decodeNames("nope") != nil {
		t.Error("non-raw result decoded")
	}
}
