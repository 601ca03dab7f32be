/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package protocol

import (
	"bytes"
	"encoding/json"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const handshakeSchemaURL = "hdxremote://schema/handshake.json"

// ErrBadHandshake is returned (wrapped) for handshakes that fail validation.
var ErrBadHandshake = errors.New("invalid handshake")

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// HandshakeSchema returns the JSON schema document reflected from Handshake.
func HandshakeSchema() ([]byte, error) {
	reflector := invopop.Reflector{
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		ExpandedStruct:             true,
	}
	s := reflector.Reflect(&Handshake{})
	if s == nil {
		return nil, errors.New("reflect handshake schema")
	}
	s.Title = "HDX Remote Handshake"
	return json.Marshal(s)
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := HandshakeSchema()
		if err != nil {
			schemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(handshakeSchemaURL, bytes.NewReader(doc)); err != nil {
			schemaErr = errors.Wrap(err, "add schema resource")
			return
		}
		schema, schemaErr = compiler.Compile(handshakeSchemaURL)
		if schemaErr != nil {
			schemaErr = errors.Wrap(schemaErr, "compile schema")
		}
	})
	return schema, schemaErr
}

// DecodeHandshake validates frame against the handshake schema and decodes it.
func DecodeHandshake(frame string) (Handshake, error) {
	var hs Handshake
	s, err := compiledSchema()
	if err != nil {
		return hs, err
	}

	var doc any
	if err := json.Unmarshal([]byte(frame), &doc); err != nil {
		return hs, errors.Wrap(ErrBadHandshake, err.Error())
	}
	if err := s.Validate(doc); err != nil {
		return hs, errors.Wrap(ErrBadHandshake, err.Error())
	}
	if err := json.Unmarshal([]byte(frame), &hs); err != nil {
		return hs, errors.Wrap(ErrBadHandshake, err.Error())
	}
	if hs.Name == "" || hs.MachineID == "" {
		return hs, errors.Wrap(ErrBadHandshake, "name and machine_id must not be empty")
	}
	if !hs.Type.Valid() {
		return hs, errors.Wrapf(ErrBadHandshake, "unknown client type %q", hs.Type)
	}
	if len(hs.Actions)%2 != 0 {
		return hs, errors.Wrap(ErrBadHandshake, "actions must be (header, params) pairs")
	}
	return hs, nil
}
