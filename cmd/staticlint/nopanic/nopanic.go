// Package nopanic defines an analyzer that reports calls to the panic builtin
// in library code. Binaries, tests and Must* helpers are exempt.
package nopanic

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the nopanic analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "nopanic",
	Doc:      "reports panic calls outside main packages, tests and Must* functions",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg == nil || pass.Pkg.Name() == "main" {
		return nil, nil
	}

	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("failed to assert type: expected *inspector.Inspector")
	}

	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		fd, ok := n.(*ast.FuncDecl)
		if !ok || fd.Body == nil || strings.HasPrefix(fd.Name.Name, "Must") {
			return
		}
		if strings.HasSuffix(pass.Fset.Position(fd.Pos()).Filename, "_test.go") {
			return
		}

		ast.Inspect(fd.Body, func(nn ast.Node) bool {
			if call, ok := nn.(*ast.CallExpr); ok && isPanicCall(pass, call) {
				pass.Reportf(call.Pos(), "panic in library code; return an error instead")
			}
			return true
		})
	})

	return nil, nil
}

// isPanicCall reports whether call invokes the panic builtin.
func isPanicCall(pass *analysis.Pass, call *ast.CallExpr) bool {
	id, ok := ast.Unparen(call.Fun).(*ast.Ident)
	if !ok || pass.TypesInfo == nil {
		return false
	}
	b, ok := pass.TypesInfo.Uses[id].(*types.Builtin)
	return ok && b.Name() == "panic"
}
