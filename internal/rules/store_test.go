package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	store, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	frameworks := store.Frameworks()
	want := []string{"ind_as", "rbi", "sebi"}
	if len(frameworks) != len(want) {
		t.Fatalf("expected %d frameworks, got %v", len(want), frameworks)
	}
	for i, name := range want {
		if frameworks[i] != name {
			t.Errorf("frameworks[%d] = %q, want %q", i, frameworks[i], name)
		}
	}

	rules, ok := store.Rules("ind_as")
	if !ok {
		t.Fatal("expected ind_as rules")
	}
	if len(rules) == 0 {
		t.Fatal("expected non-empty ind_as rule set")
	}

	for _, r := range rules {
		if r.Framework != "ind_as" {
			t.Errorf("rule %s has framework %q, want ind_as", r.ID, r.Framework)
		}
		if !r.Severity.Valid() {
			t.Errorf("rule %s has invalid severity %q", r.ID, r.Severity)
		}
		if len(r.Keywords) == 0 {
			t.Errorf("rule %s has no keywords", r.ID)
		}
	}
}

func TestLoad_DeclarationOrderStable(t *testing.T) {
	store, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	first, _ := store.Rules("sebi")
	second, _ := store.Rules("sebi")

	if len(first) != len(second) {
		t.Fatalf("rule count changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("rule order not stable at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}

	// Returned slices are copies; mutating one must not affect the store
	first[0].Name = "mutated"
	third, _ := store.Rules("sebi")
	if third[0].Name == "mutated" {
		t.Error("store exposed internal rule slice")
	}
}

func TestLoad_UnknownFramework(t *testing.T) {
	store, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := store.Rules("ifrs"); ok {
		t.Error("expected unknown framework to report !ok")
	}
}

func TestLoad_DirOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	pack := `[{"id": "custom_rule", "name": "Custom", "description": "d", "keywords": ["x"], "severity": "low", "mandatory": false}]`
	if err := os.WriteFile(filepath.Join(dir, "ind_as_rules.json"), []byte(pack), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	store, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rules, ok := store.Rules("ind_as")
	if !ok || len(rules) != 1 {
		t.Fatalf("expected overridden pack with 1 rule, got %d", len(rules))
	}
	if rules[0].ID != "custom_rule" {
		t.Errorf("unexpected rule id %q", rules[0].ID)
	}
}

func TestLoad_RejectsBadPack(t *testing.T) {
	tests := []struct {
		name string
		pack string
	}{
		{"duplicate id", `[{"id": "a", "severity": "low"}, {"id": "a", "severity": "low"}]`},
		{"missing id", `[{"name": "no id", "severity": "low"}]`},
		{"bad severity", `[{"id": "a", "severity": "fatal"}]`},
		{"not json", `{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "custom_rules.json"), []byte(tt.pack), 0644); err != nil {
				t.Fatalf("write pack: %v", err)
			}
			if _, err := Load(dir); err == nil {
				t.Error("expected error for bad rule pack")
			}
		})
	}
}
