package scanner

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/cascade/internal/core/domain"
)

// newSummary seeds a FileSummary with the metadata every parser shares:
// path, language, size, line count and the content hash.
func newSummary(path, language string, content []byte) domain.FileSummary {
	lines := 0
	if len(content) > 0 {
		lines = bytes.Count(content, []byte("\n"))
		if content[len(content)-1] != '\n' {
			lines++
		}
	}

	return domain.FileSummary{
		Path:     path,
		Language: language,
		Size:     int64(len(content)),
		Lines:    lines,
		Hash:     fmt.Sprintf("%016x", xxhash.Sum64(content)),
	}
}

// stripCommentMarkers removes the comment syntax from a single comment,
// leaving the text. Handles //, /* */ and # styles.
func stripCommentMarkers(comment string) string {
	text := strings.TrimSpace(comment)

	switch {
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
	case strings.HasPrefix(text, "//"):
		text = strings.TrimPrefix(text, "//")
	case strings.HasPrefix(text, "#"):
		text = strings.TrimPrefix(text, "#")
	}

	return strings.TrimSpace(text)
}

// stripStringQuotes removes matching triple or single quote pairs from a
// string literal's content.
func stripStringQuotes(literal string) string {
	for _, quote := range []string{`"""`, "'''", `"`, "'", "`"} {
		if strings.HasPrefix(literal, quote) && strings.HasSuffix(literal, quote) && len(literal) >= 2*len(quote) {
			return literal[len(quote) : len(literal)-len(quote)]
		}
	}
	return literal
}
