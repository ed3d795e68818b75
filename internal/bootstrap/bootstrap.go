// Package bootstrap loads the initial rule set the store starts with.
//
// Sources are a rules file (JSON or YAML; a list of rules or an object with a
// single "rules" key) and the seed database. Any malformed rule, empty name
// or duplicate name across all sources fails the load; the process is not
// expected to start with a partial rule set.
package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/solatis/rulekeeper/internal/core/db"
	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/types"
)

// Format of a rules file.
type Format int

const (
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
)

// Sources names where initial rules come from. Empty fields are skipped.
type Sources struct {
	RulesFile string
	SeedDBURL string
}

// Load reads every configured source and returns the combined rules.
func Load(ctx context.Context, src Sources, logger *zap.Logger) ([]rules.Rule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var all []rules.Rule
	if src.RulesFile != "" {
		fileRules, err := LoadFile(src.RulesFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded rules file", zap.String("path", src.RulesFile), zap.Int("rules", len(fileRules)))
		all = append(all, fileRules...)
	}

	if src.SeedDBURL != "" {
		seedRules, err := LoadDatabase(ctx, src.SeedDBURL)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded seed database", zap.Int("rules", len(seedRules)))
		all = append(all, seedRules...)
	}

	if err := Check(all); err != nil {
		return nil, err
	}
	return all, nil
}

// LoadFile reads a rules file, picking the format from its extension.
func LoadFile(path string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rs, err := Parse(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rs, nil
}

// LoadDatabase reads every rule from the seed database at dbURL. The schema
// must be fully migrated.
func LoadDatabase(ctx context.Context, dbURL string) ([]rules.Rule, error) {
	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	pending, err := db.Pending(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("seed database has pending migrations - run 'rulekeeper migrate' first")
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return nil, err
	}
	return queries.SeedRules(ctx)
}

// Parse decodes a rules document. FormatAuto sniffs JSON by its first
// non-space byte and falls back to YAML.
func Parse(data []byte, format Format) ([]rules.Rule, error) {
	if format == FormatAuto {
		format = FormatYAML
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
			format = FormatJSON
		}
	}

	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	return parseJSON(data)
}

// Check rejects rules that fail validation and duplicate names.
func Check(rs []rules.Rule) error {
	seen := make(map[types.RuleName]bool, len(rs))
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: a rule with id %s is defined more than once", types.ErrDuplicateRule, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

func parseJSON(data []byte) ([]rules.Rule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty rules document")
	}

	if trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("invalid rules document: %w", err)
		}
		list, ok := wrapper["rules"]
		if !ok || len(wrapper) != 1 {
			return nil, fmt.Errorf("rules document object must have exactly one key \"rules\"")
		}
		trimmed = list
	}

	var rs []rules.Rule
	if err := json.Unmarshal(trimmed, &rs); err != nil {
		return nil, fmt.Errorf("invalid rules document: %w", err)
	}
	return rs, nil
}

// yamlToJSON re-encodes a YAML document as JSON so rules decode through the
// same strict codec as every other input.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	normalized, err := normalizeYAML(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

func normalizeYAML(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			n, err := normalizeYAML(elem)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("invalid YAML: mapping key %v is not a string", k)
			}
			n, err := normalizeYAML(elem)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			n, err := normalizeYAML(elem)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}
