/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package protocol defines the JSON payloads exchanged over the wire and the
// layout of logical messages.
package protocol

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"hdxremote/pkg/spec"
)

// ClientType is the category a client declares in its handshake.
type ClientType string

const (
	ClientCommandLineInteractive ClientType = "COMMAND_LINE_INTERACTIVE"
	ClientCommandLineAction      ClientType = "COMMAND_LINE_ACTION"
	ClientPlayer                 ClientType = "PLAYER"
	ClientPlayerStandalone       ClientType = "PLAYER_STANDALONE"
	ClientServer                 ClientType = "SERVER"
)

// ClientTypes lists every valid client type.
var ClientTypes = []ClientType{
	ClientCommandLineInteractive,
	ClientCommandLineAction,
	ClientPlayer,
	ClientPlayerStandalone,
	ClientServer,
}

func (t ClientType) Valid() bool {
	for _, v := range ClientTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ReceivesEvents is false only for one-shot scripted clients.
func (t ClientType) ReceivesEvents() bool {
	return t.Valid() && t != ClientCommandLineAction
}

// PlaysAudio reports whether clients of this type render media themselves.
func (t ClientType) PlaysAudio() bool {
	return t == ClientPlayer || t == ClientPlayerStandalone
}

// ===============================
// Handshake
// ===============================

// Handshake is the first message a client sends.
type Handshake struct {
	Name       string     `json:"name" jsonschema:"required,minLength=1"`
	Type       ClientType `json:"type" jsonschema:"required,enum=COMMAND_LINE_INTERACTIVE,enum=COMMAND_LINE_ACTION,enum=PLAYER,enum=PLAYER_STANDALONE,enum=SERVER"`
	MachineID  string     `json:"machine_id" jsonschema:"required,minLength=1"`
	Language   string     `json:"language,omitempty"`
	PlayerPort *int       `json:"player_port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	// Actions holds a flat (header, params) batch run during connection setup.
	Actions []string `json:"actions,omitempty"`
}

// Item is one queue entry.
type Item struct {
	ID         int64  `json:"id"`
	URI        string `json:"uri"`
	Title      string `json:"title,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ServerState is the full player snapshot sent in the server handshake.
type ServerState struct {
	Queue             []Item `json:"queue"`
	State             string `json:"state"`
	IsPlaying         bool   `json:"is_playing"`
	CurrentItemIndex  int    `json:"current_item_index"`
	CurrentPositionMs int64  `json:"current_position_ms"`
	DurationMs        int64  `json:"duration_ms"`
	RepeatMode        string `json:"repeat_mode"`
}

// ServerHandshake answers a Handshake.
type ServerHandshake struct {
	Name          string      `json:"name"`
	DeviceName    string      `json:"device_name"`
	APIVersion    int         `json:"spms_api_version"`
	ServerState   ServerState `json:"server_state"`
	MachineID     string      `json:"machine_id"`
	ActionReplies []Reply     `json:"action_replies,omitempty"`
}

// ClientInfo describes a connected client to other clients.
type ClientInfo struct {
	ID         int        `json:"client_id"`
	Name       string     `json:"name"`
	Type       ClientType `json:"type"`
	Language   string     `json:"language,omitempty"`
	MachineID  string     `json:"machine_id"`
	IsCaller   bool       `json:"is_caller"`
	PlayerPort *int       `json:"player_port,omitempty"`
}

// ===============================
// Replies
// ===============================

// Reply is the outcome of one action invocation.
type Reply struct {
	Success    bool
	Error      string
	ErrorCause string
	Result     any
}

type successReply struct {
	Success bool `json:"success"`
	Result  any  `json:"result"`
}

type failureReply struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ErrorCause string `json:"error_cause,omitempty"`
}

type replyJSON struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	ErrorCause string          `json:"error_cause,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// OK builds a success reply.
func OK(result any) Reply { return Reply{Success: true, Result: result} }

// Failure builds a failure reply.
func Failure(msg, cause string) Reply { return Reply{Error: msg, ErrorCause: cause} }

// MarshalJSON always emits result on success and never on failure.
func (r Reply) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(successReply{Success: true, Result: r.Result})
	}
	return json.Marshal(failureReply{Error: r.Error, ErrorCause: r.ErrorCause})
}

// UnmarshalJSON leaves Result as json.RawMessage (nil for JSON null).
func (r *Reply) UnmarshalJSON(b []byte) error {
	var raw replyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Reply{Success: raw.Success, Error: raw.Error, ErrorCause: raw.ErrorCause}
	if len(raw.Result) > 0 && string(raw.Result) != "null" {
		r.Result = raw.Result
	}
	return nil
}

// ===============================
// Action batches
// ===============================

// ErrBadBatch is returned (wrapped) for malformed action batches.
var ErrBadBatch = errors.New("malformed action batch")

// Invocation is one (header, params) pair of an action batch.
type Invocation struct {
	Name      string
	WantReply bool
	Params    json.RawMessage
}

// NewInvocation marshals params into an invocation.
func NewInvocation(name string, wantReply bool, params ...any) (Invocation, error) {
	if params == nil {
		params = []any{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return Invocation{}, errors.Wrapf(err, "marshal params of %s", name)
	}
	return Invocation{Name: name, WantReply: wantReply, Params: b}, nil
}

// Header renders the action header, with the reply sigil when requested.
func (inv Invocation) Header() string {
	if inv.WantReply {
		return string(spec.ReplySigil) + inv.Name
	}
	return inv.Name
}

// ParseBatch decodes an even-length logical message into invocations.
func ParseBatch(frames []string) ([]Invocation, error) {
	if len(frames) == 0 || len(frames)%2 != 0 {
		return nil, errors.Wrapf(ErrBadBatch, "expected an even number of frames, got %d", len(frames))
	}
	out := make([]Invocation, 0, len(frames)/2)
	for i := 0; i < len(frames); i += 2 {
		header := frames[i]
		inv := Invocation{Name: header}
		if strings.HasPrefix(header, string(spec.ReplySigil)) {
			inv.WantReply = true
			inv.Name = header[1:]
		}
		if inv.Name == "" {
			return nil, errors.Wrapf(ErrBadBatch, "frame %d: empty action name", i)
		}
		params := strings.TrimSpace(frames[i+1])
		if !strings.HasPrefix(params, "[") || !json.Valid([]byte(params)) {
			return nil, errors.Wrapf(ErrBadBatch, "frame %d: params of %s are not a JSON array", i+1, inv.Name)
		}
		inv.Params = json.RawMessage(params)
		out = append(out, inv)
	}
	return out, nil
}

// EncodeBatch is the inverse of ParseBatch.
func EncodeBatch(invs []Invocation) []string {
	out := make([]string, 0, len(invs)*2)
	for _, inv := range invs {
		params := string(inv.Params)
		if params == "" {
			params = "[]"
		}
		out = append(out, inv.Header(), params)
	}
	return out
}

// ===============================
// Message classification
// ===============================

// Kind classifies a decoded logical message.
type Kind int

const (
	KindInvalid Kind = iota
	// KindObject is a single JSON object frame: a handshake or handshake reply.
	KindObject
	// KindReplies is a single JSON array frame: a reply batch.
	KindReplies
	// KindBatch is an even-length action batch.
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindReplies:
		return "replies"
	case KindBatch:
		return "batch"
	default:
		return "invalid"
	}
}

// Classify inspects the shape of a logical message.
func Classify(frames []string) Kind {
	switch {
	case len(frames) == 1:
		s := strings.TrimSpace(frames[0])
		switch {
		case strings.HasPrefix(s, "{"):
			return KindObject
		case strings.HasPrefix(s, "["):
			return KindReplies
		}
	case len(frames) > 0 && len(frames)%2 == 0:
		return KindBatch
	}
	return KindInvalid
}

// EncodeReplies renders a reply batch as one frame.
func EncodeReplies(replies []Reply) (string, error) {
	if replies == nil {
		replies = []Reply{}
	}
	b, err := json.Marshal(replies)
	if err != nil {
		return "", errors.Wrap(err, "marshal replies")
	}
	return string(b), nil
}

// DecodeReplies parses a reply batch frame.
func DecodeReplies(frame string) ([]Reply, error) {
	var replies []Reply
	if err := json.Unmarshal([]byte(frame), &replies); err != nil {
		return nil, errors.Wrap(err, "decode replies")
	}
	return replies, nil
}

// ===============================
// Events
// ===============================

// EventMessage is the wire form of a player event, sent as the single
// parameter of an onEvent action.
type EventMessage struct {
	ID         uint64         `json:"event_id"`
	Kind       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Instigator *int           `json:"instigator,omitempty"`
}

// EventIDs lists the ids of events, the result a client returns for an
// onEvent invocation to acknowledge it.
func EventIDs(events []EventMessage) []uint64 {
	ids := make([]uint64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

// AckedEventIDs collects the event ids acknowledged by the successful
// replies of an onEvent batch. Replies without an id list acknowledge
// nothing.
func AckedEventIDs(replies []Reply) []uint64 {
	var ids []uint64
	for _, r := range replies {
		if !r.Success {
			continue
		}
		raw, ok := r.Result.(json.RawMessage)
		if !ok {
			continue
		}
		var got []uint64
		if err := json.Unmarshal(raw, &got); err != nil {
			continue
		}
		ids = append(ids, got...)
	}
	return ids
}
