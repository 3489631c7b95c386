package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trieql/leapstore/internal/index"
	"github.com/trieql/leapstore/internal/indexbuild"
	"github.com/trieql/leapstore/internal/sparql/parser"
)

func buildTestDB(t *testing.T, name string, lines ...string) *index.Retriever {
	t.Helper()
	root := t.TempDir()
	inputDir := t.TempDir()
	path := filepath.Join(inputDir, "input.nt")
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := indexbuild.Build(root, name, path, indexbuild.Options{Threads: 2}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	r, err := index.Open(root, name)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func tp(s, p, o string) parser.TriplePattern {
	term := func(text string) parser.Term {
		if len(text) > 0 && text[0] == '?' {
			return parser.Term{Kind: parser.TermVariable, Text: text}
		}
		return parser.Term{Kind: parser.TermIRI, Text: text}
	}
	return parser.TriplePattern{Subject: term(s), Predicate: term(p), Object: term(o)}
}

func TestPlanSingleVariableChain(t *testing.T) {
	r := buildTestDB(t, "chain", "<a> <p> <b> .", "<b> <p> <c> .")
	plan, err := Build([]parser.TriplePattern{
		tp("<a>", "<p>", "?x"),
		tp("?x", "<p>", "?y"),
	}, r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.Empty {
		t.Fatalf("plan unexpectedly empty")
	}
	if len(plan.Levels) != 2 {
		t.Fatalf("Levels = %v, want 2", plan.Levels)
	}
	// ?x must come before ?y since ?y's only pattern depends on ?x.
	if plan.Levels[0].Variable != "x" || plan.Levels[1].Variable != "y" {
		t.Fatalf("order = %v, want [x y]", []string{plan.Levels[0].Variable, plan.Levels[1].Variable})
	}
}

func TestPlanUnknownPredicateIsEmpty(t *testing.T) {
	r := buildTestDB(t, "unk", "<a> <p> <b> .")
	plan, err := Build([]parser.TriplePattern{
		tp("?x", "<nope>", "?y"),
	}, r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !plan.Empty {
		t.Fatalf("expected Empty plan for unknown predicate")
	}
}

func TestPlanGroundFact(t *testing.T) {
	r := buildTestDB(t, "ground", "<a> <p> <b> .")
	plan, err := Build([]parser.TriplePattern{
		tp("<a>", "<p>", "<b>"),
	}, r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.GroundFacts) != 1 || plan.GroundFacts[0].Unsatisfiable {
		t.Fatalf("GroundFacts = %+v", plan.GroundFacts)
	}
}

func TestPlanRejectsPredicateVariable(t *testing.T) {
	r := buildTestDB(t, "predvar", "<a> <p> <b> .")
	_, err := Build([]parser.TriplePattern{
		tp("<a>", "?p", "<b>"),
	}, r)
	if err == nil {
		t.Fatalf("expected error for predicate variable")
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	a := CacheKey(3, ItemPS, 7)
	b := CacheKey(3, ItemPS, 7)
	if a != b {
		t.Fatalf("CacheKey not deterministic: %d != %d", a, b)
	}
	c := CacheKey(3, ItemPO, 7)
	if a == c {
		t.Fatalf("CacheKey collided across directions")
	}
}

func TestLevelCacheKeyOrderIndependent(t *testing.T) {
	a := PlanItem{Type: ItemNone, Predicate: 1, TargetIsSubject: true}
	b := PlanItem{Type: ItemNone, Predicate: 2, TargetIsSubject: false}
	if LevelCacheKey([]PlanItem{a, b}) != LevelCacheKey([]PlanItem{b, a}) {
		t.Fatalf("LevelCacheKey depends on item order")
	}
	c := PlanItem{Type: ItemNone, Predicate: 2, TargetIsSubject: true}
	if LevelCacheKey([]PlanItem{a, b}) == LevelCacheKey([]PlanItem{a, c}) {
		t.Fatalf("LevelCacheKey collided across directions")
	}
}

// TestPlanStabilityOnFullTie exercises spec.md §8's "Planner stability"
// property for the fully symmetric triangle pattern (`?x p ?y . ?y p ?z .
// ?z p ?x .` over a complete graph): every variable ties exactly on
// (C,U,M), so only a deterministic, non-map-order tiebreak can guarantee
// the same variable order on every run.
func TestPlanStabilityOnFullTie(t *testing.T) {
	r := buildTestDB(t, "triangle-tie",
		"<a> <p> <a> .", "<a> <p> <b> .", "<a> <p> <c> .",
		"<b> <p> <a> .", "<b> <p> <b> .", "<b> <p> <c> .",
		"<c> <p> <a> .", "<c> <p> <b> .", "<c> <p> <c> .",
	)
	patterns := []parser.TriplePattern{
		tp("?x", "<p>", "?y"),
		tp("?y", "<p>", "?z"),
		tp("?z", "<p>", "?x"),
	}

	var order []string
	for i := 0; i < 20; i++ {
		plan, err := Build(patterns, r)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		var got []string
		for _, lvl := range plan.Levels {
			got = append(got, lvl.Variable)
		}
		if order == nil {
			order = got
			continue
		}
		if len(got) != len(order) {
			t.Fatalf("run %d: Levels = %v, want same length as %v", i, got, order)
		}
		for j := range got {
			if got[j] != order[j] {
				t.Fatalf("run %d: order = %v, want %v (planner is not stable across runs)", i, got, order)
			}
		}
	}
	if len(order) != 3 || order[0] != "x" || order[1] != "y" || order[2] != "z" {
		t.Fatalf("order = %v, want [x y z] (first-occurrence tiebreak)", order)
	}
}
