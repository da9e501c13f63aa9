package script

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SyntaxError reports the first syntax error found in a composed script.
type SyntaxError struct {
	Line    uint32 // 0-indexed
	Column  uint32 // 0-indexed
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line+1, e.Column+1, e.Message)
}

// CheckSyntax parses src as Python and returns an error if the AST contains
// syntax errors. Composed scripts are checked before any subprocess is
// spawned so a broken configuration fails at generation time.
func CheckSyntax(src string) error {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil {
		return fmt.Errorf("parsing script: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		return fmt.Errorf("parser returned no syntax tree")
	}
	if !root.HasError() {
		return nil
	}

	if errNode := firstErrorNode(root); errNode != nil {
		return &SyntaxError{
			Line:    uint32(errNode.StartPoint().Row),
			Column:  uint32(errNode.StartPoint().Column),
			Message: "syntax error",
		}
	}
	return &SyntaxError{Message: "syntax tree contains errors"}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
