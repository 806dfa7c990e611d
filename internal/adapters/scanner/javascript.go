package scanner

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.trai.ch/cascade/internal/core/domain"
)

// JavaScriptParser implements parsing for JavaScript source files.
type JavaScriptParser struct {
	parser *sitter.Parser
}

// NewJavaScriptParser creates a new JavaScript parser.
func NewJavaScriptParser() *JavaScriptParser {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	return &JavaScriptParser{parser: p}
}

func (j *JavaScriptParser) Language() string {
	return "javascript"
}

func (j *JavaScriptParser) Extensions() []string {
	return []string{".js", ".mjs", ".cjs"}
}

func (j *JavaScriptParser) Parse(path string, content []byte) (domain.FileSummary, error) {
	tree, err := j.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return domain.FileSummary{}, err
	}
	defer tree.Close()

	summary := newSummary(path, "javascript", content)
	root := tree.RootNode()

	summary.Doc = jsLeadingDoc(root, content)
	j.extractDecls(root, content, &summary, false)

	return summary, nil
}

func (j *JavaScriptParser) extractDecls(node *sitter.Node, content []byte, summary *domain.FileSummary, insideClass bool) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration":
		if decl, ok := j.callable(node, content, domain.DeclFunc); ok {
			summary.Decls = append(summary.Decls, decl)
		}
		return

	case "method_definition":
		if decl, ok := j.callable(node, content, domain.DeclMethod); ok {
			summary.Decls = append(summary.Decls, decl)
		}
		return

	case "class_declaration":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			summary.Decls = append(summary.Decls, domain.Declaration{
				Name:      nameNode.Content(content),
				Kind:      domain.DeclType,
				StartLine: int(node.StartPoint().Row) + 1,
				EndLine:   int(node.EndPoint().Row) + 1,
			})
		}
		if body := node.ChildByFieldName("body"); body != nil {
			j.extractDecls(body, content, summary, true)
		}
		return

	case "lexical_declaration", "variable_declaration":
		// const f = () => {} and friends.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if decl, ok := j.assignedFunction(node.NamedChild(i), node, content); ok {
				summary.Decls = append(summary.Decls, decl)
			}
		}
		return

	case "import_statement":
		if source := node.ChildByFieldName("source"); source != nil {
			summary.Imports = append(summary.Imports, strings.Trim(source.Content(content), "'\"`"))
		}
		return

	case "call_expression":
		if module, ok := j.requireCall(node, content); ok {
			summary.Imports = append(summary.Imports, module)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		j.extractDecls(node.Child(i), content, summary, insideClass)
	}
}

func (j *JavaScriptParser) callable(node *sitter.Node, content []byte, kind domain.DeclKind) (domain.Declaration, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return domain.Declaration{}, false
	}

	return domain.Declaration{
		Name:      nameNode.Content(content),
		Kind:      kind,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Params:    j.paramNames(node.ChildByFieldName("parameters"), content),
	}, true
}

// assignedFunction recognizes a variable_declarator whose value is a
// function or arrow function, surfacing it as a free-standing func.
func (j *JavaScriptParser) assignedFunction(declarator, stmt *sitter.Node, content []byte) (domain.Declaration, bool) {
	if declarator.Type() != "variable_declarator" {
		return domain.Declaration{}, false
	}
	value := declarator.ChildByFieldName("value")
	nameNode := declarator.ChildByFieldName("name")
	if value == nil || nameNode == nil {
		return domain.Declaration{}, false
	}
	if value.Type() != "arrow_function" && value.Type() != "function_expression" && value.Type() != "function" {
		return domain.Declaration{}, false
	}

	return domain.Declaration{
		Name:      nameNode.Content(content),
		Kind:      domain.DeclFunc,
		StartLine: int(stmt.StartPoint().Row) + 1,
		EndLine:   int(stmt.EndPoint().Row) + 1,
		Params:    j.paramNames(value.ChildByFieldName("parameters"), content),
	}, true
}

func (j *JavaScriptParser) paramNames(params *sitter.Node, content []byte) []string {
	if params == nil {
		return nil
	}

	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		switch param.Type() {
		case "identifier":
			names = append(names, param.Content(content))
		case "assignment_pattern":
			if left := param.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				names = append(names, left.Content(content))
			}
		case "rest_pattern":
			if param.NamedChildCount() > 0 && param.NamedChild(0).Type() == "identifier" {
				names = append(names, param.NamedChild(0).Content(content))
			}
		}
	}
	return names
}

func (j *JavaScriptParser) requireCall(node *sitter.Node, content []byte) (string, bool) {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Content(content) != "require" {
		return "", false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	arg := args.NamedChild(0)
	if arg.Type() != "string" {
		return "", false
	}
	return strings.Trim(arg.Content(content), "'\"`"), true
}

// jsLeadingDoc returns the comment block at the very top of the file.
func jsLeadingDoc(root *sitter.Node, content []byte) string {
	var docLines []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "comment" {
			break
		}
		docLines = append(docLines, stripCommentMarkers(child.Content(content)))
	}
	return strings.TrimSpace(strings.Join(docLines, "\n"))
}
