package rules

import (
	"encoding/json"
	"testing"

	"github.com/solatis/rulekeeper/internal/types"
)

func mustDoc(t *testing.T, raw string) any {
	t.Helper()
	doc, err := types.DecodeDocument([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeDocument(%s) error = %v", raw, err)
	}
	return doc
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(data)
}
