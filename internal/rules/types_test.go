package rules

import "testing"

func TestPathPattern_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern PathPattern
		rel     string
		want    bool
	}{
		{"empty matches all", PathPattern{}, "src/index.ts", true},
		{"unanchored", PathPattern{Path: "utils/"}, "src/utils/x.ts", true},
		{"layer prefix", PathPattern{Path: "(^|/)utils/"}, "utils/x.ts", true},
		{"layer not substring", PathPattern{Path: "(^|/)utils/"}, "src/myutils/x.ts", false},
		{"pathNot excludes", PathPattern{Path: "^src/", PathNot: `\.spec\.ts$`}, "src/a.spec.ts", false},
		{"pathNot only", PathPattern{PathNot: "^test/"}, "src/a.ts", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.pattern
			if err := p.Compile(); err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if got := p.Match(tt.rel); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestPathPattern_CompileError(t *testing.T) {
	p := PathPattern{Path: "("}
	if err := p.Compile(); err == nil {
		t.Error("expected compile error")
	}
	p = PathPattern{PathNot: "[a-"}
	if err := p.Compile(); err == nil {
		t.Error("expected compile error for pathNot")
	}
}

func TestSeverity(t *testing.T) {
	for _, s := range []Severity{"", SeverityError, SeverityWarn, SeverityInfo, SeverityIgnore} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Severity("fatal").Valid() {
		t.Error("fatal should be invalid")
	}
	if !(SeverityError.Rank() > SeverityWarn.Rank() && SeverityWarn.Rank() > SeverityInfo.Rank()) {
		t.Error("severity ranks out of order")
	}
}

func TestDefaults(t *testing.T) {
	rs := Defaults()

	if len(rs.Forbidden) != 2 {
		t.Fatalf("Defaults() has %d rules, want 2", len(rs.Forbidden))
	}
	circ, ok := rs.Rule("no-circular")
	if !ok || !circ.Circular || circ.Severity != SeverityError {
		t.Errorf("no-circular = %+v", circ)
	}
	layer, ok := rs.Rule("no-utils-to-api")
	if !ok || layer.Severity != SeverityError {
		t.Errorf("no-utils-to-api = %+v", layer)
	}
	if !layer.From.Match("src/utils/utils.ts") || !layer.To.Match("src/api/api.ts") {
		t.Error("no-utils-to-api patterns do not match the layer paths")
	}
	if rs.Options.EntryBloat.Threshold != DefaultEntryBloatThreshold || rs.Options.EntryBloat.Severity != SeverityWarn {
		t.Errorf("entry bloat options = %+v", rs.Options.EntryBloat)
	}
}
