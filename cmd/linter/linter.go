// Команда linter запускает анализатор exitcheck, который запрещает
// аварийное завершение процесса вне функции main пакета main.
package main

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/singlechecker"
)

const zapPath = "go.uber.org/zap"

// Analyzer находит panic, os.Exit, log.Fatal* и Fatal-методы логгеров zap.
var Analyzer = &analysis.Analyzer{
	Name: "exitcheck",
	Doc:  "проверяет использование panic, os.Exit, log.Fatal и zap Fatal вне main пакета main",
	Run:  run,
}

func main() {
	singlechecker.Main(Analyzer)
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			allowed := isMainFunc(pass, decl)

			ast.Inspect(decl, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}

				if ident, ok := call.Fun.(*ast.Ident); ok {
					if _, builtin := pass.TypesInfo.Uses[ident].(*types.Builtin); builtin && ident.Name == "panic" {
						pass.Reportf(call.Pos(), "использование встроенной функции panic")
					}
					return true
				}

				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok || allowed {
					return true
				}

				if name, ok := exitCall(pass, sel); ok {
					pass.Reportf(call.Pos(), "вызов %s вне функции main пакета main", name)
				}
				return true
			})
		}
	}

	return nil, nil
}

// exitCall возвращает имя вызова, если он завершает процесс.
func exitCall(pass *analysis.Pass, sel *ast.SelectorExpr) (string, bool) {
	funcName := sel.Sel.Name

	if x, ok := sel.X.(*ast.Ident); ok {
		if pkg, ok := pass.TypesInfo.Uses[x].(*types.PkgName); ok {
			switch path := pkg.Imported().Path(); {
			case path == "log" && isFatalFunc(funcName):
				return "log." + funcName, true
			case path == "os" && funcName == "Exit":
				return "os.Exit", true
			}
			return "", false
		}
	}

	// методы *zap.Logger и *zap.SugaredLogger
	selection, ok := pass.TypesInfo.Selections[sel]
	if !ok || selection.Kind() != types.MethodVal || !strings.HasPrefix(funcName, "Fatal") {
		return "", false
	}
	fn, ok := selection.Obj().(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != zapPath {
		return "", false
	}
	return "zap." + funcName, true
}

func isFatalFunc(name string) bool {
	return name == "Fatal" || name == "Fatalf" || name == "Fatalln"
}

// isMainFunc сообщает, является ли decl функцией main пакета main.
func isMainFunc(pass *analysis.Pass, decl ast.Decl) bool {
	if pass.Pkg.Name() != "main" {
		return false
	}
	fn, ok := decl.(*ast.FuncDecl)
	return ok && fn.Recv == nil && fn.Name.Name == "main"
}
