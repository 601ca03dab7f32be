/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package action holds the typed command registry and the batch dispatcher.
package action

import (
	"fmt"
	"sort"
)

// ParamType is the declared type of an action parameter.
type ParamType int

const (
	String ParamType = iota
	Integer
	Float
)

func (t ParamType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "string"
	}
}

// Param describes one positional parameter. Default is used only for
// optional parameters.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
	Default  any
}

func (p Param) String() string {
	req := "optional"
	if p.Required {
		req = "required"
	}
	return fmt.Sprintf("%s (%s, %s)", p.Name, p.Type, req)
}

// Scope tells whether an action touches server bookkeeping or the player.
type Scope int

const (
	ScopeServer Scope = iota
	ScopePlayer
)

func (s Scope) String() string {
	if s == ScopePlayer {
		return "player"
	}
	return "server"
}

// Call carries the context of one invocation.
type Call struct {
	// ClientID is the invoking client.
	ClientID int
}

// Func executes an action. The result is sent back when a reply was requested.
type Func func(call Call, args Args) (any, error)

// Action is a named operation with a fixed parameter schema.
type Action struct {
	Name   string
	Params []Param
	Scope  Scope
	Run    Func
}

// Registry is an immutable name to action mapping built at startup.
type Registry struct {
	actions map[string]Action
}

// NewRegistry panics on duplicate names or actions without an executor.
func NewRegistry(groups ...[]Action) *Registry {
	r := &Registry{actions: make(map[string]Action)}
	for _, group := range groups {
		for _, a := range group {
			if a.Run == nil {
				panic(fmt.Sprintf("action %q has no executor", a.Name))
			}
			if _, dup := r.actions[a.Name]; dup {
				panic(fmt.Sprintf("duplicate action %q", a.Name))
			}
			r.actions[a.Name] = a
		}
	}
	return r
}

func (r *Registry) Lookup(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
