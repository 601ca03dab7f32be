/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package session

import (
	"hdxremote/internal/action"
	"hdxremote/internal/protocol"
	"hdxremote/pkg/spec"
)

// actions are the server-scope actions.
func (s *Server) actions() []action.Action {
	return []action.Action{
		{
			// disconnect takes effect after the batch's replies are sent.
			Name:  spec.ActionDisconnect,
			Scope: action.ScopeServer,
			Run: func(call action.Call, _ action.Args) (any, error) {
				s.leaving[call.ClientID] = true
				return nil, nil
			},
		},
		{
			Name:  "getClients",
			Scope: action.ScopeServer,
			Run: func(call action.Call, _ action.Args) (any, error) {
				active := s.reg.Active()
				out := make([]protocol.ClientInfo, 0, len(active))
				for _, c := range active {
					out = append(out, c.Info(c.ID == call.ClientID))
				}
				return out, nil
			},
		},
		{
			// halt stops the server once the current batch is answered.
			Name:  "halt",
			Scope: action.ScopeServer,
			Run: func(action.Call, action.Args) (any, error) {
				s.Halt()
				return nil, nil
			},
		},
		{
			Name:  "getActions",
			Scope: action.ScopeServer,
			Run: func(action.Call, action.Args) (any, error) {
				return s.dispatcher.Registry().Names(), nil
			},
		},
	}
}
