package scanner

import (
	"regexp"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
)

// declPattern pairs a line regex with the declaration kind it recognizes.
// The first capture group is the declared name.
type declPattern struct {
	re   *regexp.Regexp
	kind domain.DeclKind
}

var genericDeclPatterns = []declPattern{
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclFunc},
	{regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclFunc},
	{regexp.MustCompile(`^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclFunc},
	{regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclFunc},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclType},
	{regexp.MustCompile(`^\s*(?:pub\s+)?(?:struct|enum|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclType},
	{regexp.MustCompile(`^type\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclType},
	{regexp.MustCompile(`^\s*(?:export\s+)?interface\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.DeclType},
}

var genericImportPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*import\s+"([^"]+)"`),
	regexp.MustCompile(`^\s*import\s+([A-Za-z_][A-Za-z0-9_.]*)`),
	regexp.MustCompile(`^\s*from\s+([A-Za-z_][A-Za-z0-9_.]*)\s+import`),
	regexp.MustCompile(`^\s*#include\s+[<"]([^>"]+)[>"]`),
	regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`),
	regexp.MustCompile(`^\s*use\s+([A-Za-z_][A-Za-z0-9_:]*)`),
}

// GenericParser is the line-pattern fallback for files no real parser
// handles, and for files whose real parse failed. Its summaries are always
// marked approximate.
type GenericParser struct{}

// NewGenericParser creates a new GenericParser.
func NewGenericParser() *GenericParser {
	return &GenericParser{}
}

func (g *GenericParser) Language() string {
	return "generic"
}

func (g *GenericParser) Extensions() []string {
	return nil
}

func (g *GenericParser) Parse(path string, content []byte) (domain.FileSummary, error) {
	summary := newSummary(path, "generic", content)
	summary.Approximate = true

	for lineNo, line := range strings.Split(string(content), "\n") {
		for _, pattern := range genericDeclPatterns {
			if m := pattern.re.FindStringSubmatch(line); m != nil {
				summary.Decls = append(summary.Decls, domain.Declaration{
					Name: m[1],
					Kind: pattern.kind,
					// Line patterns cannot see block ends.
					StartLine: lineNo + 1,
					EndLine:   lineNo + 1,
				})
				break
			}
		}

		for _, pattern := range genericImportPatterns {
			if m := pattern.FindStringSubmatch(line); m != nil {
				summary.Imports = append(summary.Imports, m[1])
				break
			}
		}
	}

	return summary, nil
}
