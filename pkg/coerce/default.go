// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package coerce

import "github.com/crucible-labs/crucible/pkg/tools"

// Sentinel values used when the pipeline cannot recover structured output.
const (
	unparsedSentinel    = "Unable to parse structured output"
	degradedConfidence  = 0.1
	confidenceFieldName = "confidence_score"
)

// DefaultDocument synthesizes a minimal document conforming to schema.
// Strings get a sentinel, collections are empty, numbers are zero, and any
// confidence_score field is set to 0.1 to mark the result as degraded.
func DefaultDocument(schema *tools.JSONSchema) map[string]interface{} {
	if schema == nil || schema.Type != "object" {
		return map[string]interface{}{}
	}
	doc := make(map[string]interface{}, len(schema.Properties))
	for name, prop := range schema.Properties {
		doc[name] = defaultValue(name, prop)
	}
	return doc
}

func defaultValue(name string, schema *tools.JSONSchema) interface{} {
	if schema == nil {
		return nil
	}
	if schema.Default != nil {
		return schema.Default
	}
	switch schema.Type {
	case "string":
		return unparsedSentinel
	case "number":
		if name == confidenceFieldName {
			return degradedConfidence
		}
		return 0.0
	case "integer":
		return 0
	case "boolean":
		return false
	case "array":
		return []interface{}{}
	case "object":
		return DefaultDocument(schema)
	default:
		return nil
	}
}
