// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Prompt sections built from prior stage output are bounded so a verbose
// research result cannot blow up downstream context windows.
const maxSectionTokens = 2000

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func getEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// CountTokens returns the token count of s, falling back to a rough
// bytes/4 estimate when the encoding is unavailable.
func CountTokens(s string) int {
	enc := getEncoding()
	if enc == nil {
		return len(s) / 4
	}
	return len(enc.Encode(s, nil, nil))
}

// TruncateTokens returns s cut to at most maxTokens tokens.
func TruncateTokens(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	enc := getEncoding()
	if enc == nil {
		limit := maxTokens * 4
		if len(s) <= limit {
			return s
		}
		return s[:limit]
	}
	ids := enc.Encode(s, nil, nil)
	if len(ids) <= maxTokens {
		return s
	}
	return enc.Decode(ids[:maxTokens])
}
