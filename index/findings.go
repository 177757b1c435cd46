// Package index keeps a searchable in-memory index of file analyses.
package index

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexandro/batchforge-mcp/analyzer"
)

const defaultMaxResults = 50

// FindingsIndex provides full-text search over analysis warnings using a Bleve in-memory index.
type FindingsIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	// analyses keeps the indexed values for hit rendering, keyed by path
	analyses map[string]analyzer.FileAnalysis
}

// NewFindingsIndex creates an empty index.
func NewFindingsIndex() (*FindingsIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &FindingsIndex{
		index:    bleveIndex,
		analyses: make(map[string]analyzer.FileAnalysis),
	}, nil
}

// findingDocument is the document structure stored in Bleve.
type findingDocument struct {
	Path          string  `json:"path"`
	Language      string  `json:"language"`
	Warnings      string  `json:"warnings"`
	SecurityScore float64 `json:"securityScore"`
	Complexity    float64 `json:"complexity"`
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	warningsField := bleve.NewTextFieldMapping()
	warningsField.Store = false
	warningsField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("warnings", warningsField)

	pathField := bleve.NewKeywordFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathField)

	langField := bleve.NewKeywordFieldMapping()
	langField.Store = true
	langField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("language", langField)

	scoreField := bleve.NewNumericFieldMapping()
	scoreField.Store = true
	scoreField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("securityScore", scoreField)

	complexityField := bleve.NewNumericFieldMapping()
	complexityField.Store = true
	complexityField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("complexity", complexityField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Add indexes an analysis, replacing any earlier analysis of the same path.
func (fi *FindingsIndex) Add(analysis analyzer.FileAnalysis) error {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	doc := findingDocument{
		Path:          analysis.Path,
		Language:      analysis.Language.String(),
		Warnings:      strings.Join(analysis.Warnings, "\n"),
		SecurityScore: float64(analysis.SecurityScore),
		Complexity:    analysis.Complexity,
	}
	if err := fi.index.Index(analysis.Path, doc); err != nil {
		return fmt.Errorf("indexing analysis %s: %w", analysis.Path, err)
	}
	fi.analyses[analysis.Path] = analysis
	return nil
}

// Remove drops a path from the index. Removing an unknown path is not an error.
func (fi *FindingsIndex) Remove(path string) error {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	delete(fi.analyses, path)
	if err := fi.index.Delete(path); err != nil {
		return fmt.Errorf("removing %s from index: %w", path, err)
	}
	return nil
}

// SearchOptions configures a findings search.
type SearchOptions struct {
	// Query matches warning text. Empty matches every analysis.
	Query string
	// MaxSecurityScore keeps analyses scoring at most this value when set.
	MaxSecurityScore *int
	// PathGlob is a doublestar pattern; patterns without a slash match the base name.
	PathGlob   string
	MaxResults int
}

// Hit is one matching analysis.
type Hit struct {
	Path          string   `json:"path"`
	Language      string   `json:"language"`
	SecurityScore int      `json:"securityScore"`
	Complexity    float64  `json:"complexity"`
	Warnings      []string `json:"warnings"`
}

// Search returns the matching analyses and the number of index hits before glob filtering.
// Query format:
//   - Plain text: match query (word-level matching)
//   - "quoted text": phrase query (exact phrase match)
//   - /regex/: regexp query
//
// An empty query lists analyses ordered by ascending security score.
func (fi *FindingsIndex) Search(options SearchOptions) ([]Hit, uint64, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = defaultMaxResults
	}
	glob := filepath.ToSlash(options.PathGlob)
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return nil, 0, fmt.Errorf("invalid path glob %q", options.PathGlob)
	}

	searchQuery := buildQuery(options.Query)
	if options.MaxSecurityScore != nil {
		maxScore := float64(*options.MaxSecurityScore)
		inclusive := true
		scoreQuery := bleve.NewNumericRangeInclusiveQuery(nil, &maxScore, nil, &inclusive)
		scoreQuery.SetField("securityScore")
		searchQuery = bleve.NewConjunctionQuery(searchQuery, scoreQuery)
	}

	searchRequest := bleve.NewSearchRequest(searchQuery)
	searchRequest.Size = options.MaxResults
	if glob != "" {
		// Get more results because the glob filter runs after the search
		searchRequest.Size = options.MaxResults * 5
	}
	if strings.TrimSpace(options.Query) == "" {
		searchRequest.SortBy([]string{"securityScore", "_id"})
	}

	searchResults, err := fi.index.Search(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	hits := make([]Hit, 0, len(searchResults.Hits))
	for _, match := range searchResults.Hits {
		analysis, ok := fi.analyses[match.ID]
		if !ok {
			continue
		}
		if glob != "" && !matchPath(glob, analysis.Path) {
			continue
		}
		hits = append(hits, Hit{
			Path:          analysis.Path,
			Language:      analysis.Language.String(),
			SecurityScore: analysis.SecurityScore,
			Complexity:    analysis.Complexity,
			Warnings:      append([]string(nil), analysis.Warnings...),
		})
		if len(hits) >= options.MaxResults {
			break
		}
	}
	return hits, searchResults.Total, nil
}

func matchPath(glob, path string) bool {
	path = filepath.ToSlash(path)
	if !strings.Contains(glob, "/") {
		matched, _ := doublestar.Match(glob, filepath.Base(path))
		return matched
	}
	matched, _ := doublestar.Match(glob, path)
	return matched
}

// buildQuery parses the query string into a Bleve query.
func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if queryString == "" {
		return bleve.NewMatchAllQuery()
	}

	// Regex query: /pattern/
	if strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/") && len(queryString) > 2 {
		return bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
	}

	// Phrase query: "exact phrase"
	if strings.HasPrefix(queryString, "\"") && strings.HasSuffix(queryString, "\"") && len(queryString) > 2 {
		return bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
	}

	return bleve.NewMatchQuery(queryString)
}

// DocCount returns the number of indexed analyses.
func (fi *FindingsIndex) DocCount() uint64 {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	count, _ := fi.index.DocCount()
	return count
}

// Close closes the Bleve index.
func (fi *FindingsIndex) Close() error {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return fi.index.Close()
}
