// Package config holds the host-tunable defaults for the query and
// document layers (spec §6: "the core exposes all of these as
// configuration struct fields with defaults"), plus an optional
// JSON-Schema-validated overlay for hosts that load configuration from
// a user-editable file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ServiceConfig is the complete set of tunables a host may override:
// cache sizing, reuse-matching thresholds, and per-query caps/deadlines
// (spec §5/§6/§7).
type ServiceConfig struct {
	// Document/cache tuning (spec §4.4/§4.6).
	CacheMaxSize         int `json:"cacheMaxSize"`
	FastPathLeafByteCap  int `json:"fastPathLeafByteCap"`

	// Reuse-matching tuning (spec §4.5).
	MaxPositionShift              uint32  `json:"maxPositionShift"`
	StructuralSimilarityThreshold float64 `json:"structuralSimilarityThreshold"`
	AggressiveStructural          bool    `json:"aggressiveStructural"`
	AggressiveThreshold           float64 `json:"aggressiveThreshold"`

	// Query tuning (spec §4.9/§7).
	CompletionMaxItems        int `json:"completionMaxItems"`
	CompletionCancelInterval  int `json:"completionCancelCheckInterval"`
	FilePathScanLimit         int `json:"filePathScanLimit"`
	FilePathReturnLimit       int `json:"filePathReturnLimit"`
}

// DefaultServiceConfig returns the built-in defaults, mirroring each
// layer's own DefaultConfig() (document.DefaultConfig, reuse.DefaultConfig,
// query.DefaultCompletionConfig) so a host that never loads an overlay
// gets identical behavior to calling those directly.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CacheMaxSize:                  4096,
		FastPathLeafByteCap:           100,
		MaxPositionShift:              64,
		StructuralSimilarityThreshold: 0.75,
		AggressiveStructural:          false,
		AggressiveThreshold:           0.5,
		CompletionMaxItems:            200,
		CompletionCancelInterval:      250,
		FilePathScanLimit:             200,
		FilePathReturnLimit:           50,
	}
}

// configSchema is the JSON Schema every overlay document is validated
// against before being applied, following the teacher's
// compile-in-memory-resource pattern (core/types/validation.go).
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "cacheMaxSize": {"type": "integer", "minimum": 1},
    "fastPathLeafByteCap": {"type": "integer", "minimum": 0},
    "maxPositionShift": {"type": "integer", "minimum": 0},
    "structuralSimilarityThreshold": {"type": "number", "minimum": 0, "maximum": 1},
    "aggressiveStructural": {"type": "boolean"},
    "aggressiveThreshold": {"type": "number", "minimum": 0, "maximum": 1},
    "completionMaxItems": {"type": "integer", "minimum": 1},
    "completionCancelCheckInterval": {"type": "integer", "minimum": 1},
    "filePathScanLimit": {"type": "integer", "minimum": 0},
    "filePathReturnLimit": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

// LoadOverlay validates raw JSON against configSchema and merges any
// fields it sets on top of base, returning the merged config. Hosts
// call this with the defaults as base so a partial overlay document
// only needs to set the fields it wants to change.
func LoadOverlay(base ServiceConfig, raw []byte) (ServiceConfig, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	const url = "config://service.json"
	if err := compiler.AddResource(url, bytes.NewReader([]byte(configSchema))); err != nil {
		return base, fmt.Errorf("config: compiling schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return base, fmt.Errorf("config: invalid schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return base, fmt.Errorf("config: invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return base, fmt.Errorf("config: overlay rejected: %w", err)
	}

	merged := base
	if err := json.Unmarshal(raw, &merged); err != nil {
		return base, fmt.Errorf("config: decoding overlay: %w", err)
	}
	return merged, nil
}
