// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package coerce turns free-form model output into schema-conforming JSON.
//
// Coercion is a three-step ladder: extract a JSON object embedded in the
// raw text, ask the model to re-emit conforming JSON if extraction fails
// validation, and finally synthesize a degraded default from the schema.
// Coerce never returns an error: a stage always gets a usable document.
package coerce

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/log"
	"github.com/crucible-labs/crucible/pkg/tools"
	"github.com/crucible-labs/crucible/pkg/types"
)

// Outcome records which rung of the coercion ladder produced the result.
type Outcome string

const (
	OutcomeExtracted Outcome = "extracted"
	OutcomeRepaired  Outcome = "repaired"
	OutcomeDegraded  Outcome = "degraded"
)

// Coercer validates raw model output against a JSON schema, repairing it
// with a follow-up model call when needed.
type Coercer struct {
	provider types.LLMProvider
}

// New creates a Coercer. The provider is used only for the repair call and
// may be nil, in which case failed extraction degrades directly to defaults.
func New(provider types.LLMProvider) *Coercer {
	return &Coercer{provider: provider}
}

// Result carries the coerced document plus bookkeeping about how it was
// produced and what the repair call cost.
type Result struct {
	Document map[string]interface{}
	Outcome  Outcome
	Usage    types.Usage
}

// Coerce produces a document conforming to schema from raw model output.
func (c *Coercer) Coerce(ctx context.Context, raw string, schema *tools.JSONSchema) *Result {
	if doc, ok := c.tryExtract(raw, schema); ok {
		return &Result{Document: doc, Outcome: OutcomeExtracted}
	}
	log.Warn("raw output failed direct extraction, attempting repair")

	// A repair call that fails extraction still consumed tokens, so its
	// usage rides along on the degraded result.
	var repairUsage types.Usage
	if c.provider != nil {
		doc, usage, ok := c.tryRepair(ctx, raw, schema)
		if ok {
			return &Result{Document: doc, Outcome: OutcomeRepaired, Usage: usage}
		}
		repairUsage = usage
	}

	log.Error("coercion repair failed, degrading to schema defaults")
	return &Result{Document: DefaultDocument(schema), Outcome: OutcomeDegraded, Usage: repairUsage}
}

// tryExtract pulls the first balanced JSON object out of raw and validates it.
func (c *Coercer) tryExtract(raw string, schema *tools.JSONSchema) (map[string]interface{}, bool) {
	candidate := ExtractJSON(raw)
	if candidate == "" {
		return nil, false
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		log.Debug("extracted candidate is not valid JSON", zap.Error(err))
		return nil, false
	}

	if err := Validate(doc, schema); err != nil {
		log.Debug("extracted document failed schema validation", zap.Error(err))
		return nil, false
	}
	return doc, true
}

// tryRepair asks the model to restructure its own output into conforming JSON.
func (c *Coercer) tryRepair(ctx context.Context, raw string, schema *tools.JSONSchema) (map[string]interface{}, types.Usage, bool) {
	schemaJSON, err := schema.ToJSON()
	if err != nil {
		return nil, types.Usage{}, false
	}

	prompt := fmt.Sprintf(`Given the following output, restructure it as a single JSON object conforming exactly to this JSON Schema. Respond with the JSON object only, no prose.

Output:
%s

JSON Schema:
%s`, raw, string(schemaJSON))

	resp, err := c.provider.Chat(ctx, []types.Message{{
		Role:      "user",
		Content:   prompt,
		Timestamp: time.Now(),
	}}, nil)
	if err != nil {
		log.Warn("repair call failed", zap.Error(err))
		return nil, types.Usage{}, false
	}

	doc, ok := c.tryExtract(resp.Content, schema)
	if !ok {
		return nil, resp.Usage, false
	}
	return doc, resp.Usage, true
}

// Validate checks a document against a schema, returning a joined error
// listing every violation.
func Validate(doc map[string]interface{}, schema *tools.JSONSchema) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	docLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("document does not conform to schema: %s", strings.Join(msgs, "; "))
}

// ExtractJSON returns the first balanced top-level JSON object in s, or ""
// when none exists. Braces inside string literals are ignored.
func ExtractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
