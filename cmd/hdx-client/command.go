/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"hdxremote/internal/protocol"
	"hdxremote/pkg/spec"
)

// parseCommand turns `name arg "quoted arg" 12` into an invocation asking
// for a reply. Unquoted numbers become JSON numbers, everything else a
// string.
func parseCommand(line string) (protocol.Invocation, error) {
	tokens, err := splitArgs(line)
	if err != nil {
		return protocol.Invocation{}, err
	}
	if len(tokens) == 0 {
		return protocol.Invocation{}, errors.New("empty command")
	}
	params := make([]any, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		params = append(params, tok.value())
	}
	name := strings.TrimPrefix(tokens[0].text, string(spec.ReplySigil))
	return protocol.NewInvocation(name, true, params...)
}

type token struct {
	text   string
	quoted bool
}

func (t token) value() any {
	if t.quoted {
		return t.text
	}
	if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t.text, 64); err == nil {
		return f
	}
	return t.text
}

func splitArgs(line string) ([]token, error) {
	var (
		out     []token
		cur     strings.Builder
		inQuote rune
		quoted  bool
		started bool
	)
	flush := func() {
		if started {
			out = append(out, token{text: cur.String(), quoted: quoted})
		}
		cur.Reset()
		quoted, started = false, false
	}
	for _, r := range line {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote, quoted, started = r, true, true
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote != 0 {
		return nil, errors.Errorf("unterminated %c quote", inQuote)
	}
	flush()
	return out, nil
}

func decodeNames(result any) []string {
	raw, ok := result.(json.RawMessage)
	if !ok {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil
	}
	sort.Strings(names)
	return names
}

func formatReply(r protocol.Reply) string {
	if !r.Success {
		if r.ErrorCause != "" {
			return fmt.Sprintf("FAIL %s (%s)", r.Error, r.ErrorCause)
		}
		return "FAIL " + r.Error
	}
	if raw, ok := r.Result.(json.RawMessage); ok {
		return "OK " + string(raw)
	}
	return "OK"
}

func formatEvent(e protocol.EventMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EVENT #%d %s", e.ID, e.Kind)
	if len(e.Properties) > 0 {
		props, _ := json.Marshal(e.Properties)
		b.Write(props)
	}
	if e.Instigator != nil {
		fmt.Fprintf(&b, " by %d", *e.Instigator)
	}
	return b.String()
}
