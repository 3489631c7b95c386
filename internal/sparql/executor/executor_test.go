package executor

import (
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/trieql/leapstore/internal/index"
	"github.com/trieql/leapstore/internal/indexbuild"
	"github.com/trieql/leapstore/internal/sparql/parser"
	"github.com/trieql/leapstore/internal/sparql/planner"
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

func execQuery(t *testing.T, r *index.Retriever, query string) [][]string {
	t.Helper()
	q, err := parser.Parse(query)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var triples []parser.TriplePattern
	for _, p := range q.Patterns {
		if p.Kind == parser.PatternTriple {
			triples = append(triples, p.Triple)
		}
	}
	plan, err := planner.Build(triples, r)
	if err != nil {
		t.Fatalf("planner.Build: %v", err)
	}
	rows, err := Execute(plan, r, q.Variables, q.Modifier == parser.ModifierDistinct, q.Limit, q.HasLimit)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return rows
}

func TestSingletonQuery(t *testing.T) {
	r := buildTestDB(t, "singleton", "<a> <p> <b> .")
	rows := execQuery(t, r, `SELECT ?x WHERE { <a> <p> ?x . }`)
	if len(rows) != 1 || rows[0][0] != "<b>" {
		t.Fatalf("rows = %v, want [[<b>]]", rows)
	}
}

func TestTwoVariableChain(t *testing.T) {
	r := buildTestDB(t, "chain", "<a> <p> <b> .", "<b> <p> <c> .")
	rows := execQuery(t, r, `SELECT ?x ?y WHERE { <a> <p> ?x . ?x <p> ?y . }`)
	if len(rows) != 1 || rows[0][0] != "<b>" || rows[0][1] != "<c>" {
		t.Fatalf("rows = %v, want [[<b> <c>]]", rows)
	}
}

func TestTriangleWithLimit(t *testing.T) {
	r := buildTestDB(t, "triangle",
		"<a> <p> <a> .", "<a> <p> <b> .", "<a> <p> <c> .",
		"<b> <p> <a> .", "<b> <p> <b> .", "<b> <p> <c> .",
		"<c> <p> <a> .", "<c> <p> <b> .", "<c> <p> <c> .",
	)
	rows := execQuery(t, r, `SELECT ?x ?y ?z WHERE { ?x <p> ?y . ?y <p> ?z . ?z <p> ?x . } LIMIT 5`)
	// Every (x,y,z) in {a,b,c}^3 forms a triangle on this complete graph, so
	// the first five in lexicographic (x,y,z) order are the lexicographically
	// smallest five triples overall (spec.md §8 scenario 3).
	want := [][]string{
		{"<a>", "<a>", "<a>"},
		{"<a>", "<a>", "<b>"},
		{"<a>", "<a>", "<c>"},
		{"<a>", "<b>", "<a>"},
		{"<a>", "<b>", "<b>"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v, want %d rows", rows, len(want))
	}
	for i := range want {
		if rows[i][0] != want[i][0] || rows[i][1] != want[i][1] || rows[i][2] != want[i][2] {
			t.Fatalf("row %d = %v, want %v (full ordering = %v)", i, rows[i], want[i], rows)
		}
	}
}

// TestTriangleLimitIsStableAcrossRuns guards against the planner picking a
// different but equally-scoring variable order (and hence a different LIMIT
// 5 prefix) from run to run, for the same fully-tied pattern covered by
// planner.TestPlanStabilityOnFullTie.
func TestTriangleLimitIsStableAcrossRuns(t *testing.T) {
	r := buildTestDB(t, "triangle-stable",
		"<a> <p> <a> .", "<a> <p> <b> .", "<a> <p> <c> .",
		"<b> <p> <a> .", "<b> <p> <b> .", "<b> <p> <c> .",
		"<c> <p> <a> .", "<c> <p> <b> .", "<c> <p> <c> .",
	)
	query := `SELECT ?x ?y ?z WHERE { ?x <p> ?y . ?y <p> ?z . ?z <p> ?x . } LIMIT 5`
	first := execQuery(t, r, query)
	for i := 0; i < 10; i++ {
		got := execQuery(t, r, query)
		if len(got) != len(first) {
			t.Fatalf("run %d: rows = %v, want %v", i, got, first)
		}
		for j := range got {
			if got[j][0] != first[j][0] || got[j][1] != first[j][1] || got[j][2] != first[j][2] {
				t.Fatalf("run %d: row %d = %v, want %v", i, j, got[j], first[j])
			}
		}
	}
}

func TestDistinctDeduplicates(t *testing.T) {
	r := buildTestDB(t, "distinct",
		"<a> <p> <x> .", "<a> <p> <y> .", "<b> <p> <x> .", "<b> <p> <y> .",
	)
	rows := execQuery(t, r, `SELECT DISTINCT ?s WHERE { ?s <p> ?o . }`)
	if len(rows) != 2 {
		t.Fatalf("rows = %v, want 2 distinct subjects", rows)
	}
	var got []string
	for _, row := range rows {
		got = append(got, row[0])
	}
	sort.Strings(got)
	if got[0] != "<a>" || got[1] != "<b>" {
		t.Fatalf("got = %v", got)
	}
}

func TestUnknownConstantReturnsZeroRows(t *testing.T) {
	r := buildTestDB(t, "unknown", "<a> <p> <b> .")
	rows := execQuery(t, r, `SELECT ?x WHERE { <nope> <p> ?x . }`)
	if len(rows) != 0 {
		t.Fatalf("rows = %v, want 0", rows)
	}
}

func TestEmptyIntersectionReturnsZeroRows(t *testing.T) {
	r := buildTestDB(t, "emptyintersect",
		"<a> <p> <x> .", "<a> <q> <y> .",
	)
	rows := execQuery(t, r, `SELECT ?x WHERE { <a> <p> ?x . <a> <q> ?x . }`)
	if len(rows) != 0 {
		t.Fatalf("rows = %v, want 0", rows)
	}
}

// --- spec.md §8 "Executor × brute force" and "LIMIT monotonicity" ---
//
// A small fixed vocabulary of entities/predicates generates a random graph
// once; each trial then generates a random BGP of up to four patterns over
// that vocabulary and checks the executor against a Cartesian-product
// reference implementation (brute force over every possible variable
// assignment), following the same rand.New(rand.NewSource(seed)) style as
// leapfrog's TestIntersectAgainstBruteForce.

var bfEntities = []string{"<a>", "<b>", "<c>", "<d>", "<e>"}
var bfPredicates = []string{"<p>", "<q>", "<r>"}
var bfVarNames = []string{"a", "b", "c", "d"}

type bfTriple struct{ s, p, o string }

func buildRandomGraph(t *testing.T, name string, seed int64) (*index.Retriever, []bfTriple) {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	seen := map[string]bool{}
	var lines []string
	var triples []bfTriple
	for len(lines) < 25 {
		s := bfEntities[rnd.Intn(len(bfEntities))]
		p := bfPredicates[rnd.Intn(len(bfPredicates))]
		o := bfEntities[rnd.Intn(len(bfEntities))]
		key := s + " " + p + " " + o
		if seen[key] {
			continue
		}
		seen[key] = true
		lines = append(lines, key+" .")
		triples = append(triples, bfTriple{s, p, o})
	}
	return buildTestDB(t, name, lines...), triples
}

func randBFTerm(rnd *rand.Rand, used map[string]bool) parser.Term {
	if rnd.Intn(2) == 0 {
		return parser.Term{Kind: parser.TermIRI, Text: bfEntities[rnd.Intn(len(bfEntities))]}
	}
	v := bfVarNames[rnd.Intn(len(bfVarNames))]
	used[v] = true
	return parser.Term{Kind: parser.TermVariable, Text: "?" + v}
}

func randBFPattern(rnd *rand.Rand, used map[string]bool) parser.TriplePattern {
	s := randBFTerm(rnd, used)
	p := parser.Term{Kind: parser.TermIRI, Text: bfPredicates[rnd.Intn(len(bfPredicates))]}
	o := randBFTerm(rnd, used)
	return parser.TriplePattern{Subject: s, Predicate: p, Object: o}
}

func resolveBFTerm(term parser.Term, assignment map[string]string) string {
	if term.Kind == parser.TermVariable {
		return assignment[strings.TrimPrefix(term.Text, "?")]
	}
	return term.Text
}

// bruteForceBGP enumerates every assignment of allVars over bfEntities,
// keeps the ones satisfying every pattern, and projects onto selectVars —
// the reference implementation spec.md §8 asks the executor to match.
func bruteForceBGP(patterns []parser.TriplePattern, allVars, selectVars []string, distinct bool, triples []bfTriple) [][]string {
	exists := func(s, p, o string) bool {
		for _, tr := range triples {
			if tr.s == s && tr.p == p && tr.o == o {
				return true
			}
		}
		return false
	}

	var rows [][]string
	assignment := make(map[string]string, len(allVars))
	var rec func(i int)
	rec = func(i int) {
		if i == len(allVars) {
			for _, pat := range patterns {
				s := resolveBFTerm(pat.Subject, assignment)
				o := resolveBFTerm(pat.Object, assignment)
				if !exists(s, pat.Predicate.Text, o) {
					return
				}
			}
			row := make([]string, len(selectVars))
			for j, v := range selectVars {
				row[j] = assignment[v]
			}
			rows = append(rows, row)
			return
		}
		for _, e := range bfEntities {
			assignment[allVars[i]] = e
			rec(i + 1)
		}
	}
	rec(0)

	if distinct {
		seen := map[string]bool{}
		var deduped [][]string
		for _, row := range rows {
			key := strings.Join(row, "\x1f")
			if !seen[key] {
				seen[key] = true
				deduped = append(deduped, row)
			}
		}
		rows = deduped
	}
	return rows
}

func multiset(rows [][]string) map[string]int {
	m := map[string]int{}
	for _, row := range rows {
		m[strings.Join(row, "\x1f")]++
	}
	return m
}

func randomBGP(rnd *rand.Rand, maxPatterns int) (patterns []parser.TriplePattern, allVars []string) {
	used := map[string]bool{}
	n := 1 + rnd.Intn(maxPatterns)
	for i := 0; i < n; i++ {
		patterns = append(patterns, randBFPattern(rnd, used))
	}
	for v := range used {
		allVars = append(allVars, v)
	}
	sort.Strings(allVars)
	return patterns, allVars
}

func TestExecutorAgainstBruteForce(t *testing.T) {
	r, triples := buildRandomGraph(t, "bruteforce", 13)
	rnd := rand.New(rand.NewSource(17))

	for trial := 0; trial < 100; trial++ {
		patterns, allVars := randomBGP(rnd, 4)
		if len(allVars) == 0 {
			continue
		}
		var selectVars []string
		for _, v := range allVars {
			if rnd.Intn(2) == 0 {
				selectVars = append(selectVars, v)
			}
		}
		if len(selectVars) == 0 {
			selectVars = allVars[:1]
		}
		distinct := rnd.Intn(2) == 0

		plan, err := planner.Build(patterns, r)
		if err != nil {
			t.Fatalf("trial %d: planner.Build: %v", trial, err)
		}
		got, err := Execute(plan, r, selectVars, distinct, 0, false)
		if err != nil {
			t.Fatalf("trial %d: Execute: %v", trial, err)
		}
		want := bruteForceBGP(patterns, allVars, selectVars, distinct, triples)

		if !reflect.DeepEqual(multiset(got), multiset(want)) {
			t.Fatalf("trial %d: patterns=%v selectVars=%v distinct=%v\ngot =%v\nwant=%v",
				trial, patterns, selectVars, distinct, got, want)
		}
	}
}

func TestLimitMonotonicity(t *testing.T) {
	r, _ := buildRandomGraph(t, "limitmono", 29)
	rnd := rand.New(rand.NewSource(31))

	for trial := 0; trial < 30; trial++ {
		patterns, allVars := randomBGP(rnd, 3)
		if len(allVars) == 0 {
			continue
		}
		distinct := rnd.Intn(2) == 0

		plan, err := planner.Build(patterns, r)
		if err != nil {
			t.Fatalf("trial %d: planner.Build: %v", trial, err)
		}
		full, err := Execute(plan, r, allVars, distinct, 0, false)
		if err != nil {
			t.Fatalf("trial %d: Execute: %v", trial, err)
		}
		if len(full) == 0 {
			continue
		}
		for _, n := range []int{1, len(full)/2 + 1, len(full)} {
			limited, err := Execute(plan, r, allVars, distinct, n, true)
			if err != nil {
				t.Fatalf("trial %d limit %d: Execute: %v", trial, n, err)
			}
			if len(limited) != n {
				t.Fatalf("trial %d: LIMIT %d returned %d rows, want %d", trial, n, len(limited), n)
			}
			for i := 0; i < n; i++ {
				if !reflect.DeepEqual(limited[i], full[i]) {
					t.Fatalf("trial %d: LIMIT %d row %d = %v, want %v (full = %v)", trial, n, i, limited[i], full[i], full)
				}
			}
		}
	}
}
