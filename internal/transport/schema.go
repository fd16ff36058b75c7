package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const envelopeSchemaURL = "envelope.schema.json"

const envelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["frame", "reset", "check"]},
    "data": {"type": "string"}
  },
  "if": {"properties": {"type": {"const": "frame"}}},
  "then": {"required": ["data"]}
}`

// Message types.
const (
	TypeFrame         = "frame"
	TypeReset         = "reset"
	TypeCheck         = "check"
	TypePrediction    = "prediction"
	TypeResetComplete = "reset_complete"
	TypeSpelling      = "spelling"
)

type envelope struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// envelopeValidator parses and validates inbound text messages.
type envelopeValidator struct {
	schema *jsonschema.Schema
}

func newEnvelopeValidator() (*envelopeValidator, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(envelopeSchemaURL, strings.NewReader(envelopeSchema)); err != nil {
		return nil, fmt.Errorf("add envelope schema: %w", err)
	}
	s, err := c.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	return &envelopeValidator{schema: s}, nil
}

func (v *envelopeValidator) parse(data []byte) (envelope, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return envelope{}, fmt.Errorf("invalid json: %w", err)
	}
	if err := v.schema.Validate(raw); err != nil {
		return envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	return env, nil
}
