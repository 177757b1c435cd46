package index

import (
	"testing"

	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/language"
)

func newTestFindingsIndex(t *testing.T) *FindingsIndex {
	t.Helper()
	fi, err := NewFindingsIndex()
	if err != nil {
		t.Fatalf("failed to create findings index: %v", err)
	}
	t.Cleanup(func() { fi.Close() })
	return fi
}

func addAnalysis(t *testing.T, fi *FindingsIndex, path string, lang language.Language, score int, warnings ...string) {
	t.Helper()
	err := fi.Add(analyzer.FileAnalysis{
		Path:          path,
		Language:      lang,
		Warnings:      warnings,
		SecurityScore: score,
	})
	if err != nil {
		t.Fatalf("failed to index %s: %v", path, err)
	}
}

func seed(t *testing.T) *FindingsIndex {
	fi := newTestFindingsIndex(t)
	addAnalysis(t, fi, "/src/a.rs", language.Rust, 100)
	addAnalysis(t, fi, "/src/b.rs", language.Rust, 75, "hard-coded credential: password assignment")
	addAnalysis(t, fi, "/src/c.py", language.Python, 75, "eval() executes arbitrary code")
	addAnalysis(t, fi, "/src/d.rs", language.Rust, 95, "Vec::new() without capacity hints")
	return fi
}

func Test_FindingsIndex_SearchByWarningText(t *testing.T) {
	fi := seed(t)

	hits, _, err := fi.Search(SearchOptions{Query: "credential"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Path != "/src/b.rs" {
		t.Errorf("expected /src/b.rs, got %s", hits[0].Path)
	}
	if hits[0].SecurityScore != 75 {
		t.Errorf("expected score 75, got %d", hits[0].SecurityScore)
	}
	if hits[0].Language != "Rust" {
		t.Errorf("expected Rust, got %s", hits[0].Language)
	}
}

func Test_FindingsIndex_PhraseSearch(t *testing.T) {
	fi := seed(t)

	hits, _, err := fi.Search(SearchOptions{Query: `"arbitrary code"`})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "/src/c.py" {
		t.Fatalf("expected phrase match on /src/c.py, got %+v", hits)
	}
}

func Test_FindingsIndex_MaxSecurityScore(t *testing.T) {
	fi := seed(t)

	maxScore := 80
	hits, total, err := fi.Search(SearchOptions{MaxSecurityScore: &maxScore})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 total hits, got %d", total)
	}
	for _, hit := range hits {
		if hit.SecurityScore > maxScore {
			t.Errorf("hit %s has score %d above %d", hit.Path, hit.SecurityScore, maxScore)
		}
	}
}

func Test_FindingsIndex_EmptyQueryOrdersByScore(t *testing.T) {
	fi := seed(t)

	hits, _, err := fi.Search(SearchOptions{})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(hits) != 4 {
		t.Fatalf("expected 4 hits, got %d", len(hits))
	}
	if hits[0].SecurityScore != 75 || hits[3].SecurityScore != 100 {
		t.Errorf("expected ascending scores, got %d..%d", hits[0].SecurityScore, hits[3].SecurityScore)
	}
}

func Test_FindingsIndex_PathGlob(t *testing.T) {
	fi := seed(t)

	hits, _, err := fi.Search(SearchOptions{PathGlob: "*.py"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "/src/c.py" {
		t.Fatalf("expected only /src/c.py, got %+v", hits)
	}

	if _, _, err := fi.Search(SearchOptions{PathGlob: "[invalid"}); err == nil {
		t.Error("expected error for invalid glob")
	}
}

func Test_FindingsIndex_MaxResults(t *testing.T) {
	fi := seed(t)

	hits, _, err := fi.Search(SearchOptions{MaxResults: 2})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
}

func Test_FindingsIndex_ReplaceAndRemove(t *testing.T) {
	fi := seed(t)

	addAnalysis(t, fi, "/src/b.rs", language.Rust, 100)
	if fi.DocCount() != 4 {
		t.Errorf("expected 4 documents after replace, got %d", fi.DocCount())
	}
	hits, _, _ := fi.Search(SearchOptions{Query: "credential"})
	if len(hits) != 0 {
		t.Errorf("expected replaced analysis to drop its warning, got %+v", hits)
	}

	if err := fi.Remove("/src/a.rs"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if err := fi.Remove("/src/unknown.rs"); err != nil {
		t.Fatalf("removing unknown path should not fail: %v", err)
	}
	if fi.DocCount() != 3 {
		t.Errorf("expected 3 documents, got %d", fi.DocCount())
	}
}

func Test_FindingsIndex_HitsDoNotShareWarnings(t *testing.T) {
	fi := seed(t)

	hits, _, _ := fi.Search(SearchOptions{Query: "capacity"})
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	hits[0].Warnings[0] = "mutated"

	hits, _, _ = fi.Search(SearchOptions{Query: "capacity"})
	if hits[0].Warnings[0] != "Vec::new() without capacity hints" {
		t.Errorf("index state was mutated through a hit: %q", hits[0].Warnings[0])
	}
}
