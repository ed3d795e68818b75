package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/solatis/rulekeeper/internal/core/db"
	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/types"
)

const jsonRules = `[
  {"name": "rule-1", "predicate": {"path": "foo", "operator": "==", "value": 10}, "message": "foo must be 10"},
  {"name": "rule-2", "predicate": {"any": [{"path": "tags", "operator": "in", "value": "x"}]}, "message": "tags must hold x"}
]`

const yamlRules = `rules:
  - name: rule-1
    predicate:
      path: foo
      operator: "=="
      value: 10
    message: foo must be 10
  - name: rule-2
    predicate:
      not:
        path: a.b
        operator: ">"
        value: 1.5
    message: a.b must not exceed 1.5
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		format    Format
		wantNames []string
	}{
		{"json array", jsonRules, FormatJSON, []string{"rule-1", "rule-2"}},
		{"json wrapper", `{"rules": ` + jsonRules + `}`, FormatAuto, []string{"rule-1", "rule-2"}},
		{"yaml wrapper", yamlRules, FormatYAML, []string{"rule-1", "rule-2"}},
		{"yaml sniffed", yamlRules, FormatAuto, []string{"rule-1", "rule-2"}},
		{"empty json array", `[]`, FormatAuto, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != len(tt.wantNames) {
				t.Fatalf("Parse() returned %d rules, want %d", len(got), len(tt.wantNames))
			}
			for i, name := range tt.wantNames {
				if got[i].Name != name {
					t.Errorf("rule %d name = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestParse_YAMLEvaluates(t *testing.T) {
	rs, err := Parse([]byte(yamlRules), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	doc, _ := types.DecodeDocument([]byte(`{"foo": 10, "a": {"b": 1}}`))
	for _, r := range rs {
		ok, err := r.Evaluate(doc)
		if err != nil || !ok {
			t.Errorf("%s.Evaluate() = %v, %v; want true", r.Name, ok, err)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"empty", ``, FormatJSON},
		{"unknown rule field", `[{"name": "r", "predicate": {"all": []}, "message": "m", "x": 1}]`, FormatJSON},
		{"bad predicate", `[{"name": "r", "predicate": {"path": "a"}, "message": "m"}]`, FormatJSON},
		{"wrapper extra key", `{"rules": [], "version": 1}`, FormatJSON},
		{"wrapper missing rules", `{"items": []}`, FormatJSON},
		{"not a list", `"rules"`, FormatJSON},
		{"invalid yaml", "rules: [\n", FormatYAML},
		{"yaml non-string key", "rules:\n  - name: r\n    message: m\n    predicate:\n      1: x\n", FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.format); err == nil {
				t.Errorf("Parse(%q) error = nil, want error", tt.data)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	ok := rules.NewRule("a", rules.All(), "m")

	if err := Check([]rules.Rule{ok, rules.NewRule("b", rules.All(), "m")}); err != nil {
		t.Errorf("Check() error = %v, want nil", err)
	}
	if err := Check([]rules.Rule{ok, ok}); !errors.Is(err, types.ErrDuplicateRule) {
		t.Errorf("Check() error = %v, want ErrDuplicateRule", err)
	}
	if err := Check([]rules.Rule{rules.NewRule("", rules.All(), "m")}); !errors.Is(err, types.ErrEmptyRuleName) {
		t.Errorf("Check() error = %v, want ErrEmptyRuleName", err)
	}
}

func TestLoadFile_ByExtension(t *testing.T) {
	for _, name := range []string{"rules.json", "rules.yaml", "rules.yml"} {
		t.Run(name, func(t *testing.T) {
			content := jsonRules
			if filepath.Ext(name) != ".json" {
				content = yamlRules
			}
			rs, err := LoadFile(writeFile(t, name, content))
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if len(rs) != 2 {
				t.Errorf("LoadFile() returned %d rules, want 2", len(rs))
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("LoadFile() error = nil, want error")
	}
}

func TestLoad_FileAndDatabase(t *testing.T) {
	ctx := context.Background()
	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "seed.db")

	database, err := db.Open(ctx, dbURL)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	if err := db.MigrateUp(ctx, database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	seed := []rules.Rule{rules.NewRule("seeded", rules.Field("x", rules.OpLess, 3), "x below 3")}
	if err := queries.ReplaceSeedRules(ctx, seed); err != nil {
		t.Fatalf("ReplaceSeedRules() error = %v", err)
	}
	database.Close()

	rs, err := Load(ctx, Sources{RulesFile: writeFile(t, "rules.json", jsonRules), SeedDBURL: dbURL}, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rs) != 3 || rs[2].Name != "seeded" {
		t.Errorf("Load() = %d rules, want file rules followed by seeded", len(rs))
	}

	dup := writeFile(t, "dup.json", `[{"name": "seeded", "predicate": {"all": []}, "message": "m"}]`)
	if _, err := Load(ctx, Sources{RulesFile: dup, SeedDBURL: dbURL}, nil); !errors.Is(err, types.ErrDuplicateRule) {
		t.Errorf("Load() error = %v, want ErrDuplicateRule across sources", err)
	}
}

func TestLoadDatabase_PendingMigrations(t *testing.T) {
	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "empty.db")
	if _, err := LoadDatabase(context.Background(), dbURL); err == nil {
		t.Error("LoadDatabase() error = nil, want pending migrations error")
	}
}

func TestLoad_NoSources(t *testing.T) {
	rs, err := Load(context.Background(), Sources{}, nil)
	if err != nil || len(rs) != 0 {
		t.Errorf("Load() = %v, %v; want empty", rs, err)
	}
}
