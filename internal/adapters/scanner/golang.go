package scanner

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"go.trai.ch/cascade/internal/core/domain"
)

// GoParser implements parsing for Go source files.
type GoParser struct {
	parser *sitter.Parser
}

// NewGoParser creates a new Go parser.
func NewGoParser() *GoParser {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoParser{parser: p}
}

func (g *GoParser) Language() string {
	return "go"
}

func (g *GoParser) Extensions() []string {
	return []string{".go"}
}

func (g *GoParser) Parse(path string, content []byte) (domain.FileSummary, error) {
	tree, err := g.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return domain.FileSummary{}, err
	}
	defer tree.Close()

	summary := newSummary(path, "go", content)
	root := tree.RootNode()

	summary.Doc = goPackageDoc(root, content)
	g.extractDecls(root, content, &summary)

	return summary, nil
}

func (g *GoParser) extractDecls(node *sitter.Node, content []byte, summary *domain.FileSummary) {
	switch node.Type() {
	case "function_declaration":
		if decl, ok := g.callable(node, content, domain.DeclFunc); ok {
			summary.Decls = append(summary.Decls, decl)
		}

	case "method_declaration":
		if decl, ok := g.callable(node, content, domain.DeclMethod); ok {
			summary.Decls = append(summary.Decls, decl)
		}

	case "type_declaration":
		summary.Decls = append(summary.Decls, g.typeSpecs(node, content)...)

	case "import_declaration":
		summary.Imports = append(summary.Imports, g.imports(node, content)...)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		g.extractDecls(node.Child(i), content, summary)
	}
}

func (g *GoParser) callable(node *sitter.Node, content []byte, kind domain.DeclKind) (domain.Declaration, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return domain.Declaration{}, false
	}

	return domain.Declaration{
		Name:      nameNode.Content(content),
		Kind:      kind,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Params:    g.paramNames(node.ChildByFieldName("parameters"), content),
	}, true
}

func (g *GoParser) paramNames(params *sitter.Node, content []byte) []string {
	if params == nil {
		return nil
	}

	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		decl := params.NamedChild(i)
		if decl.Type() != "parameter_declaration" && decl.Type() != "variadic_parameter_declaration" {
			continue
		}
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			child := decl.NamedChild(j)
			if child.Type() == "identifier" {
				names = append(names, child.Content(content))
			}
		}
	}
	return names
}

func (g *GoParser) typeSpecs(node *sitter.Node, content []byte) []domain.Declaration {
	var decls []domain.Declaration
	for i := 0; i < int(node.NamedChildCount()); i++ {
		spec := node.NamedChild(i)
		if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		decls = append(decls, domain.Declaration{
			Name:      nameNode.Content(content),
			Kind:      domain.DeclType,
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
		})
	}
	return decls
}

func (g *GoParser) imports(node *sitter.Node, content []byte) []string {
	var imports []string

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "import_spec" {
			if pathNode := n.ChildByFieldName("path"); pathNode != nil {
				imports = append(imports, strings.Trim(pathNode.Content(content), `"`))
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)

	return imports
}

// goPackageDoc returns the comment block immediately preceding the package
// clause, in the style of go doc.
func goPackageDoc(root *sitter.Node, content []byte) string {
	var docLines []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "comment":
			docLines = append(docLines, stripCommentMarkers(child.Content(content)))
		case "package_clause":
			return strings.TrimSpace(strings.Join(docLines, "\n"))
		default:
			return ""
		}
	}
	return ""
}
