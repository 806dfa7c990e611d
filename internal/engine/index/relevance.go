package index

import (
	"sort"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
)

// RelevanceScore is an ephemeral (path, score) pairing computed per query.
// It is never persisted.
type RelevanceScore struct {
	Path  string
	Score float64
}

// stopwords are filtered out of task text before scoring. The list covers
// common English filler plus verbs typical of task phrasing ("add a test
// for", "fix the bug in") that carry no signal about which files matter.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "from": true,
	"in": true, "of": true, "for": true, "and": true, "or": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"this": true, "that": true, "these": true, "those": true,
	"with": true, "into": true, "when": true, "then": true,
	"what": true, "how": true, "where": true, "which": true,
	"add": true, "fix": true, "make": true, "change": true,
	"update": true, "remove": true, "new": true, "all": true,
	"should": true, "must": true, "can": true, "will": true,
	"file": true, "files": true, "code": true, "function": true,
}

// Tokenize splits task text into lowercase, stopword-filtered keywords.
// Tokens shorter than three characters are dropped.
func Tokenize(taskText string) []string {
	words := strings.FieldsFunc(strings.ToLower(taskText), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_')
	})

	seen := make(map[string]bool, len(words))
	var keywords []string
	for _, w := range words {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// RelevantFiles scores every indexed file against the task text and returns
// the top maxFiles by score descending. Ties break by shorter path, then
// lexicographically, for determinism.
//
// Scoring operates only over the precomputed summary fields (declared names
// and docstring) — no file content is read per query, which keeps the call
// sub-millisecond on codebases of a few thousand files.
func (idx *Index) RelevantFiles(taskText string, maxFiles int) []RelevanceScore {
	keywords := Tokenize(taskText)
	if len(keywords) == 0 || maxFiles <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make([]RelevanceScore, 0, len(idx.summaries))
	for path, summary := range idx.summaries {
		score := idx.scoreSummary(summary, keywords)
		if score > 0 {
			scores = append(scores, RelevanceScore{Path: path, Score: score})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if len(scores[i].Path) != len(scores[j].Path) {
			return len(scores[i].Path) < len(scores[j].Path)
		}
		return scores[i].Path < scores[j].Path
	})

	if len(scores) > maxFiles {
		scores = scores[:maxFiles]
	}
	return scores
}

// scoreSummary counts keyword occurrences in declared names and the
// docstring. Name hits are weighted above docstring hits per the scoring
// config.
func (idx *Index) scoreSummary(summary domain.FileSummary, keywords []string) float64 {
	var score float64
	doc := strings.ToLower(summary.Doc)

	for _, keyword := range keywords {
		for _, decl := range summary.Decls {
			if strings.Contains(strings.ToLower(decl.Name), keyword) {
				score += idx.scoring.NameWeight
			}
		}
		if doc != "" {
			score += idx.scoring.DocWeight * float64(strings.Count(doc, keyword))
		}
	}
	return score
}
