package rules

import (
	"fmt"
	"testing"

	"archlens/internal/depgraph"
)

const root = "/repo"

func graphOf(edges ...[2]string) *depgraph.Graph {
	g := depgraph.New(root)
	for _, e := range edges {
		g.AddEdge(root+"/"+e[0], root+"/"+e[1])
	}
	return g
}

func mustEngine(t *testing.T, rs RuleSet) *Engine {
	t.Helper()
	e, err := NewEngine(rs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestEvaluate_Circular(t *testing.T) {
	g := graphOf(
		[2]string{"src/a.ts", "src/b.ts"},
		[2]string{"src/b.ts", "src/a.ts"},
		[2]string{"src/b.ts", "src/c.ts"},
	)

	findings := mustEngine(t, Defaults()).Evaluate(g)

	var flagged []string
	for _, f := range findings {
		if f.Kind == KindCircular {
			flagged = append(flagged, f.ModuleRel)
			if f.Rule != "no-circular" || f.Severity != SeverityError {
				t.Errorf("finding = %+v", f)
			}
		}
	}
	if len(flagged) != 2 || flagged[0] != "src/a.ts" || flagged[1] != "src/b.ts" {
		t.Errorf("circular modules = %v, want [src/a.ts src/b.ts]", flagged)
	}
}

func TestEvaluate_CircularOncePerRule(t *testing.T) {
	// a sits on two cycles
	g := graphOf(
		[2]string{"a", "b"}, [2]string{"b", "a"},
		[2]string{"a", "c"}, [2]string{"c", "a"},
	)

	count := 0
	for _, f := range mustEngine(t, Defaults()).Evaluate(g) {
		if f.Kind == KindCircular && f.ModuleRel == "a" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("a flagged %d times, want 1", count)
	}
}

func TestEvaluate_CircularWithToPattern(t *testing.T) {
	rs := RuleSet{
		Forbidden: []Rule{{Name: "no-core-cycles", Circular: true, To: PathPattern{Path: "^core/"}}},
		Options:   DefaultOptions(),
	}
	g := graphOf(
		[2]string{"core/x", "app/y"},
		[2]string{"app/y", "core/x"},
	)

	findings := mustEngine(t, rs).Evaluate(g)
	if len(findings) != 1 || findings[0].ModuleRel != "app/y" {
		t.Errorf("findings = %+v, want only app/y", findings)
	}
}

func TestEvaluate_LayerViolation(t *testing.T) {
	g := graphOf(
		[2]string{"src/utils/utils.ts", "src/api/api.ts"},
		[2]string{"src/api/api.ts", "src/utils/format.ts"},
		[2]string{"src/myutils/x.ts", "src/api/api.ts"},
	)

	findings := mustEngine(t, Defaults()).Evaluate(g)
	if len(findings) != 1 {
		t.Fatalf("findings = %+v, want 1", findings)
	}
	f := findings[0]
	if f.Kind != KindPath || f.Rule != "no-utils-to-api" || f.ModuleRel != "src/utils/utils.ts" || f.TargetRel != "src/api/api.ts" {
		t.Errorf("finding = %+v", f)
	}
}

func TestEvaluate_EntryBloat(t *testing.T) {
	g := depgraph.New(root)
	for i := 0; i < 20; i++ {
		g.AddEdge(root+"/src/index.ts", fmt.Sprintf("%s/src/m%02d.ts", root, i))
	}
	for i := 0; i < 15; i++ {
		g.AddEdge(root+"/src/ok.ts", fmt.Sprintf("%s/src/m%02d.ts", root, i))
	}

	findings := mustEngine(t, Defaults()).Evaluate(g)
	if len(findings) != 1 {
		t.Fatalf("findings = %+v, want only index.ts (threshold is exclusive)", findings)
	}
	f := findings[0]
	if f.Kind != KindFanOut || f.ModuleRel != "src/index.ts" || f.Degree != 20 || f.Threshold != 15 || f.Severity != SeverityWarn {
		t.Errorf("finding = %+v", f)
	}
}

func TestEvaluate_EntryBloatOptions(t *testing.T) {
	g := depgraph.New(root)
	for i := 0; i < 5; i++ {
		g.AddEdge(root+"/main.ts", fmt.Sprintf("%s/m%d.ts", root, i))
	}

	rs := Defaults()
	rs.Options.EntryBloat.Threshold = 4
	if got := len(mustEngine(t, rs).Evaluate(g)); got != 1 {
		t.Errorf("threshold 4: findings = %d, want 1", got)
	}

	rs.Options.EntryBloat.Disabled = true
	if got := len(mustEngine(t, rs).Evaluate(g)); got != 0 {
		t.Errorf("disabled: findings = %d, want 0", got)
	}
}

func TestEvaluate_OrderAndIgnore(t *testing.T) {
	rs := RuleSet{
		Forbidden: []Rule{
			{Name: "ignored", Severity: SeverityIgnore, From: PathPattern{Path: "."}},
			{Name: "second", From: PathPattern{Path: "^b"}},
			{Name: "first", Circular: true},
		},
		Options: DefaultOptions(),
	}
	rs.Options.EntryBloat.Threshold = 0

	g := graphOf([2]string{"a", "b"}, [2]string{"b", "a"})
	findings := mustEngine(t, rs).Evaluate(g)

	var got []string
	for _, f := range findings {
		got = append(got, f.Rule+":"+f.ModuleRel)
	}
	want := []string{"second:b", "first:a", "first:b", "entry-bloat:a", "entry-bloat:b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestEvaluate_TrustedCycles(t *testing.T) {
	g := graphOf([2]string{"a", "b"}, [2]string{"b", "a"})
	g.TrustAnnotations(true)

	if got := len(mustEngine(t, Defaults()).Evaluate(g)); got != 0 {
		t.Errorf("no annotations: findings = %d, want 0", got)
	}
}

func TestNewEngine_InvalidPattern(t *testing.T) {
	rs := RuleSet{Forbidden: []Rule{{Name: "bad", From: PathPattern{Path: "(["}}}}
	if _, err := NewEngine(rs); err == nil {
		t.Error("expected compile error")
	}
}

func TestEvaluate_Acyclic(t *testing.T) {
	g := graphOf([2]string{"a", "b"}, [2]string{"b", "c"})
	if got := mustEngine(t, Defaults()).Evaluate(g); len(got) != 0 {
		t.Errorf("findings = %+v, want none", got)
	}
}
