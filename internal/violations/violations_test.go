package violations

import (
	"testing"

	"archlens/internal/rules"
)

func TestClassify_Messages(t *testing.T) {
	findings := []rules.Finding{
		{Kind: rules.KindCircular, Rule: "no-circular", Severity: rules.SeverityError, Module: "/r/src/a.ts", ModuleRel: "src/a.ts", TargetRel: "src/b.ts"},
		{Kind: rules.KindPath, Rule: "no-utils-to-api", Module: "/r/src/utils/utils.ts", ModuleRel: "src/utils/utils.ts", TargetRel: "src/api/api.ts"},
		{Kind: rules.KindFanOut, Rule: rules.EntryBloatRule, Module: "/r/src/index.ts", ModuleRel: "src/index.ts", Degree: 20, Threshold: 15},
	}

	ws := Classify(findings, DefaultOptions())
	if len(ws) != 3 {
		t.Fatalf("warnings = %d, want 3", len(ws))
	}

	tests := []struct {
		typ      Type
		severity rules.Severity
		message  string
		module   string
	}{
		{TypeCircular, rules.SeverityError, "Circular dependency: src/a.ts is part of an import cycle (no-circular)", "/r/src/a.ts"},
		{TypeLayer, rules.SeverityError, "Layer violation: src/utils/utils.ts imports src/api/api.ts (no-utils-to-api)", "/r/src/utils/utils.ts"},
		{TypeEntryBloat, rules.SeverityWarn, "Entry bloat: src/index.ts has 20 direct dependencies (threshold 15)", "/r/src/index.ts"},
	}
	for i, tt := range tests {
		w := ws[i]
		if w.Type != tt.typ || w.Severity != tt.severity || w.Message != tt.message || w.Module() != tt.module {
			t.Errorf("warning[%d] = %+v (module %q), want %+v", i, w, w.Module(), tt)
		}
		if w.FileID != "" {
			t.Errorf("warning[%d] FileID should be unset before resolution", i)
		}
	}
}

func TestClassify_DedupOnModuleAndType(t *testing.T) {
	findings := []rules.Finding{
		{Kind: rules.KindPath, Rule: "r1", Module: "/r/a", ModuleRel: "a", TargetRel: "x"},
		{Kind: rules.KindPath, Rule: "r2", Module: "/r/a", ModuleRel: "a", TargetRel: "y"},
		{Kind: rules.KindCircular, Rule: "c", Module: "/r/a", ModuleRel: "a"},
		{Kind: rules.KindCircular, Rule: "c2", Module: "/r/a", ModuleRel: "a"},
		{Kind: rules.KindPath, Rule: "r1", Module: "/r/b", ModuleRel: "b", TargetRel: "x"},
	}

	ws := Classify(findings, DefaultOptions())
	if len(ws) != 3 {
		t.Fatalf("warnings = %+v, want 3", ws)
	}
	if ws[0].Rule != "r1" || ws[1].Rule != "c" || ws[2].Path != "b" {
		t.Errorf("first finding per (module, type) should win: %+v", ws)
	}
}

func TestClassify_UnknownKindAndEmpty(t *testing.T) {
	if ws := Classify(nil, DefaultOptions()); len(ws) != 0 {
		t.Errorf("Classify(nil) = %v", ws)
	}
	ws := Classify([]rules.Finding{{Kind: "mystery", Module: "/r/a"}}, Options{})
	if len(ws) != 0 {
		t.Errorf("unknown kinds should be dropped, got %v", ws)
	}
}

func TestClassify_SeverityOverrides(t *testing.T) {
	findings := []rules.Finding{
		{Kind: rules.KindPath, Rule: "r", Module: "/r/a", ModuleRel: "a"},
		{Kind: rules.KindFanOut, Rule: rules.EntryBloatRule, Severity: rules.SeverityError, Module: "/r/b", ModuleRel: "b"},
	}

	ws := Classify(findings, Options{DefaultSeverity: rules.SeverityWarn, EntryBloatSeverity: rules.SeverityInfo})
	if ws[0].Severity != rules.SeverityWarn {
		t.Errorf("layer severity = %q, want warn", ws[0].Severity)
	}
	if ws[1].Severity != rules.SeverityError {
		t.Errorf("explicit severity should be kept, got %q", ws[1].Severity)
	}
}

func TestCountsAndMaxSeverity(t *testing.T) {
	ws := []Warning{
		{Type: TypeCircular, Severity: rules.SeverityWarn},
		{Type: TypeCircular, Severity: rules.SeverityInfo},
		{Type: TypeEntryBloat, Severity: rules.SeverityError},
	}

	c := Counts(ws)
	if c[TypeCircular] != 2 || c[TypeEntryBloat] != 1 || c[TypeLayer] != 0 {
		t.Errorf("Counts() = %v", c)
	}
	if MaxSeverity(ws) != rules.SeverityError {
		t.Errorf("MaxSeverity() = %q", MaxSeverity(ws))
	}
	if MaxSeverity(nil) != "" {
		t.Error("MaxSeverity(nil) should be empty")
	}
}
