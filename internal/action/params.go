/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package action

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// InvalidParameterError reports a parameter that does not satisfy its
// declared schema. Value is nil when the parameter was absent.
type InvalidParameterError struct {
	Action string
	Param  Param
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: parameter '%s' of %s", e.Reason, e.Param.Name, e.Action)
	}
	return fmt.Sprintf("%s: parameter '%s' of %s got %v", e.Reason, e.Param.Name, e.Action, e.Value)
}

// Args holds validated parameter values keyed by parameter name.
type Args struct {
	values map[string]any
}

// NewArgs builds Args directly, mainly for tests and internal callers.
func NewArgs(values map[string]any) Args {
	return Args{values: values}
}

func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

func (a Args) Int(name string) int64 {
	switch v := a.values[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func (a Args) Float(name string) float64 {
	switch v := a.values[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Has reports whether a value (supplied or defaulted) exists for name.
func (a Args) Has(name string) bool {
	v, ok := a.values[name]
	return ok && v != nil
}

// bind validates raw positional values against the action's parameters.
func bind(a Action, raw json.RawMessage) (Args, error) {
	var values []any
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return Args{}, errors.Errorf("params of %s are not a JSON array: %v", a.Name, err)
		}
	}
	if len(values) > len(a.Params) {
		return Args{}, errors.Errorf("%s takes %d parameters, got %d", a.Name, len(a.Params), len(values))
	}

	args := Args{values: make(map[string]any, len(a.Params))}
	for i, p := range a.Params {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if v == nil {
			if p.Required {
				return Args{}, &InvalidParameterError{Action: a.Name, Param: p, Reason: "missing required parameter"}
			}
			args.values[p.Name] = p.Default
			continue
		}
		cv, ok := convert(p.Type, v)
		if !ok {
			return Args{}, &InvalidParameterError{Action: a.Name, Param: p, Value: v, Reason: "expected " + p.Type.String()}
		}
		args.values[p.Name] = cv
	}
	return args, nil
}

func convert(t ParamType, v any) (any, bool) {
	switch t {
	case String:
		s, ok := v.(string)
		return s, ok
	case Integer:
		n, ok := v.(json.Number)
		if !ok {
			return nil, false
		}
		i, err := n.Int64()
		return i, err == nil
	case Float:
		n, ok := v.(json.Number)
		if !ok {
			return nil, false
		}
		f, err := n.Float64()
		return f, err == nil
	}
	return nil, false
}
