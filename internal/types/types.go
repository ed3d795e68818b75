// Package types provides domain values shared across rulekeeper components.
//
// Zero-dependency design: types.go and errors.go use only the standard
// library so internal/rules can be imported without pulling transport or
// storage deps. The request ID helper in ids.go imports uuid but is isolated.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// RuleName identifies a rule. It is both the external identifier and the
// storage key, so renaming a rule moves it.
type RuleName = string

// RequestID correlates log lines for one transport request.
type RequestID string

// Document is an arbitrary JSON document decoded with number precision
// preserved: map[string]any, []any, json.Number, string, bool or nil.
type Document = any

// DecodeDocument parses raw JSON into a Document.
// Numbers decode to json.Number so integer literals compare exactly.
// Trailing data after the first value is rejected.
func DecodeDocument(data []byte) (Document, error) {
	return ReadDocument(bytes.NewReader(data))
}

// ReadDocument parses one JSON value from r into a Document.
func ReadDocument(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid document: unexpected data after top-level value")
	}
	return doc, nil
}

// Resource limits enforced at the transport boundary.
const (
	// DefaultMaxBatchSize bounds the number of rule ids in one evaluate call.
	// The store itself accepts any length; transports enforce the limit.
	DefaultMaxBatchSize = 1000

	// DefaultMaxBodyBytes bounds request bodies (rules and documents).
	// 1MB matches typical JSON documents without blob storage.
	DefaultMaxBodyBytes = 1024 * 1024
)
