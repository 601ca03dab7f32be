/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package player

import (
	"hdxremote/internal/action"
)

// Actions exposes p to clients.
func Actions(p *Player) []action.Action {
	simple := func(name string, fn func(*int) error) action.Action {
		return action.Action{
			Name:  name,
			Scope: action.ScopePlayer,
			Run: func(call action.Call, _ action.Args) (any, error) {
				return nil, fn(instigator(call))
			},
		}
	}

	return []action.Action{
		simple("play", p.Play),
		simple("pause", p.Pause),
		simple("playPause", p.PlayPause),
		simple("stop", p.Stop),
		simple("seekToNext", p.SeekToNext),
		simple("seekToPrevious", p.SeekToPrevious),
		simple("clearQueue", p.ClearQueue),
		simple("cancelRadio", func(i *int) error {
			p.CancelRadio(i)
			return nil
		}),
		{
			Name:   "seekToItem",
			Params: []action.Param{{Name: "index", Type: action.Integer, Required: true}},
			Scope:  action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return nil, p.SeekToItem(int(args.Int("index")), instigator(call))
			},
		},
		{
			Name:   "seekTo",
			Params: []action.Param{{Name: "position_ms", Type: action.Integer, Required: true}},
			Scope:  action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return nil, p.SeekTo(args.Int("position_ms"), instigator(call))
			},
		},
		{
			Name: "addItem",
			Params: []action.Param{
				{Name: "uri", Type: action.String, Required: true},
				{Name: "title", Type: action.String, Default: ""},
				{Name: "position", Type: action.Integer, Default: int64(-1)},
			},
			Scope: action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return p.AddItem(args.String("uri"), args.String("title"), int(args.Int("position")), instigator(call))
			},
		},
		{
			Name:   "removeItem",
			Params: []action.Param{{Name: "index", Type: action.Integer, Required: true}},
			Scope:  action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return nil, p.RemoveItem(int(args.Int("index")), instigator(call))
			},
		},
		{
			Name: "moveItem",
			Params: []action.Param{
				{Name: "from", Type: action.Integer, Required: true},
				{Name: "to", Type: action.Integer, Required: true},
			},
			Scope: action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return nil, p.MoveItem(int(args.Int("from")), int(args.Int("to")), instigator(call))
			},
		},
		{
			Name:   "setRepeatMode",
			Params: []action.Param{{Name: "mode", Type: action.String, Required: true}},
			Scope:  action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return nil, p.SetRepeatMode(RepeatMode(args.String("mode")), instigator(call))
			},
		},
		{
			Name:   "setVolume",
			Params: []action.Param{{Name: "volume", Type: action.Integer, Required: true}},
			Scope:  action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return nil, p.SetVolume(int(args.Int("volume")), instigator(call))
			},
		},
		{
			Name:   "startRadio",
			Params: []action.Param{{Name: "uri", Type: action.String, Required: true}},
			Scope:  action.ScopePlayer,
			Run: func(call action.Call, args action.Args) (any, error) {
				return nil, p.StartRadio(args.String("uri"), instigator(call))
			},
		},
		{
			Name:  "getState",
			Scope: action.ScopePlayer,
			Run: func(action.Call, action.Args) (any, error) {
				return p.Snapshot(), nil
			},
		},
	}
}

func instigator(call action.Call) *int {
	id := call.ClientID
	return &id
}
