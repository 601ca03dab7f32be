/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package action

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"hdxremote/internal/protocol"
)

// ErrUnknownAction is the cause reported for names missing from the registry.
var ErrUnknownAction = errors.New("unknown action")

// Result of dispatching one batch.
type Result struct {
	// Replies holds one entry per reply-requested invocation, in order.
	Replies []protocol.Reply
	// PlayerTouched is set when a player-scope action ran successfully.
	PlayerTouched bool
}

// Dispatcher executes action batches against a Registry.
type Dispatcher struct {
	reg *Registry
	log zerolog.Logger
}

func NewDispatcher(reg *Registry, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, log: log.With().Str("component", "dispatch").Logger()}
}

func (d *Dispatcher) Registry() *Registry { return d.reg }

// Dispatch runs every invocation in order. A failing invocation never stops
// the rest of the batch.
func (d *Dispatcher) Dispatch(call Call, batch []protocol.Invocation) Result {
	var res Result
	for _, inv := range batch {
		reply, touched := d.invoke(call, inv)
		if touched {
			res.PlayerTouched = true
		}
		if inv.WantReply {
			res.Replies = append(res.Replies, reply)
		}
	}
	return res
}

func (d *Dispatcher) invoke(call Call, inv protocol.Invocation) (protocol.Reply, bool) {
	params := string(inv.Params)
	if params == "" {
		params = "[]"
	}
	failed := fmt.Sprintf("Executing action %s(%s) failed", inv.Name, params)
	log := d.log.With().Int("client", call.ClientID).Str("action", inv.Name).Logger()

	a, ok := d.reg.Lookup(inv.Name)
	if !ok {
		log.Warn().Msg("unknown action")
		return protocol.Failure(failed, ErrUnknownAction.Error()), false
	}

	args, err := bind(a, inv.Params)
	if err != nil {
		log.Warn().Err(err).Msg("invalid parameters")
		msg := failed
		if ipe, ok := err.(*InvalidParameterError); ok {
			msg = fmt.Sprintf("%s: invalid parameter '%s'", failed, ipe.Param.Name)
		}
		return protocol.Failure(msg, err.Error()), false
	}

	result, err := run(a, call, args)
	if err != nil {
		log.Warn().Err(err).Msg("action failed")
		return protocol.Failure(failed, errors.Cause(err).Error()), false
	}
	log.Debug().Str("scope", a.Scope.String()).Msg("action executed")
	return protocol.OK(result), a.Scope == ScopePlayer
}

func run(a Action, call Call, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return a.Run(call, args)
}
