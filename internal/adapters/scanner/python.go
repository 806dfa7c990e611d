package scanner

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.trai.ch/cascade/internal/core/domain"
)

// PythonParser implements parsing for Python source files.
type PythonParser struct {
	parser *sitter.Parser
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: p}
}

func (p *PythonParser) Language() string {
	return "python"
}

func (p *PythonParser) Extensions() []string {
	return []string{".py"}
}

func (p *PythonParser) Parse(path string, content []byte) (domain.FileSummary, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return domain.FileSummary{}, err
	}
	defer tree.Close()

	summary := newSummary(path, "python", content)
	root := tree.RootNode()

	summary.Doc = pythonModuleDoc(root, content)
	p.extractDecls(root, content, &summary, false)

	return summary, nil
}

// extractDecls walks the tree. insideClass tracks whether the current scope
// is a class body, so nested defs become methods.
func (p *PythonParser) extractDecls(node *sitter.Node, content []byte, summary *domain.FileSummary, insideClass bool) {
	switch node.Type() {
	case "function_definition":
		kind := domain.DeclFunc
		if insideClass {
			kind = domain.DeclMethod
		}
		if decl, ok := p.callable(node, content, kind); ok {
			summary.Decls = append(summary.Decls, decl)
		}
		// Nested defs inside a function body are locals, skip them.
		return

	case "class_definition":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			summary.Decls = append(summary.Decls, domain.Declaration{
				Name:      nameNode.Content(content),
				Kind:      domain.DeclType,
				StartLine: int(node.StartPoint().Row) + 1,
				EndLine:   int(node.EndPoint().Row) + 1,
			})
		}
		if body := node.ChildByFieldName("body"); body != nil {
			p.extractDecls(body, content, summary, true)
		}
		return

	case "import_statement", "import_from_statement":
		summary.Imports = append(summary.Imports, p.imports(node, content)...)
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.extractDecls(node.Child(i), content, summary, insideClass)
	}
}

func (p *PythonParser) callable(node *sitter.Node, content []byte, kind domain.DeclKind) (domain.Declaration, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return domain.Declaration{}, false
	}

	return domain.Declaration{
		Name:      nameNode.Content(content),
		Kind:      kind,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Params:    p.paramNames(node.ChildByFieldName("parameters"), content),
	}, true
}

func (p *PythonParser) paramNames(params *sitter.Node, content []byte) []string {
	if params == nil {
		return nil
	}

	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)

		var name string
		switch param.Type() {
		case "identifier":
			name = param.Content(content)
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if nameNode := param.NamedChild(0); nameNode != nil && nameNode.Type() == "identifier" {
				name = nameNode.Content(content)
			}
		}

		if name != "" && name != "self" && name != "cls" {
			names = append(names, name)
		}
	}
	return names
}

func (p *PythonParser) imports(node *sitter.Node, content []byte) []string {
	if node.Type() == "import_from_statement" {
		if moduleNode := node.ChildByFieldName("module_name"); moduleNode != nil {
			return []string{moduleNode.Content(content)}
		}
		return nil
	}

	var imports []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			imports = append(imports, child.Content(content))
		case "aliased_import":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				imports = append(imports, nameNode.Content(content))
			}
		}
	}
	return imports
}

// pythonModuleDoc returns the module docstring: a bare string expression as
// the first statement of the file.
func pythonModuleDoc(root *sitter.Node, content []byte) string {
	if root.NamedChildCount() == 0 {
		return ""
	}
	first := root.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return stripStringQuotes(str.Content(content))
}
