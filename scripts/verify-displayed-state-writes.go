// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// The alerting machine is the only writer of the displayed posture state.
// Everything else receives it through snapshots. This guard fails the build
// when code outside internal/alerting claims "upright" or "leaning" on its
// own, either via the state constants or via raw string literals.
func main() {
	pattern := "./internal/..."
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	violations, err := Analyze(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "❌ ad-hoc posture state violations found:")
		for _, v := range violations {
			fmt.Fprintln(os.Stderr, v)
		}
		os.Exit(1)
	}
}

// Analyze performs the AST checks on the given package pattern/path
func Analyze(pattern string) ([]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedFiles | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedName,
		Dir:  ".",
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		// The machine itself is the single source of truth.
		if strings.HasSuffix(pkg.PkgPath, "internal/alerting") {
			continue
		}
		for i, file := range pkg.Syntax {
			filename := ""
			if i < len(pkg.CompiledGoFiles) {
				filename = pkg.CompiledGoFiles[i]
			} else if i < len(pkg.GoFiles) {
				filename = pkg.GoFiles[i]
			}
			if filename == "" {
				continue
			}
			if strings.HasSuffix(filename, "_test.go") {
				continue
			}
			// Metrics pre-registers one counter series per state label.
			if strings.HasSuffix(filename, filepath.Join("internal", "metrics", "alerts.go")) {
				continue
			}

			ast.Inspect(file, func(n ast.Node) bool {
				switch node := n.(type) {
				case *ast.BasicLit:
					if node.Kind == token.STRING {
						val, _ := strconv.Unquote(node.Value)
						if val == "upright" || val == "leaning" {
							violations = append(violations, formatViolation(filename, node.Pos(), fmt.Sprintf("forbidden posture literal %q (read the state from an alerting snapshot)", val)))
						}
					}

				case *ast.SelectorExpr:
					if isDecidedStateConstant(node, pkg.TypesInfo) {
						violations = append(violations, formatViolation(filename, node.Pos(), "forbidden posture state constant (the alerting machine owns the displayed state)"))
					}
				}
				return true
			})
		}
	}
	return violations, nil
}

func formatViolation(filename string, pos token.Pos, msg string) string {
	rel, err := filepath.Rel(".", filename)
	if err == nil {
		filename = rel
	}
	return fmt.Sprintf("%s:%d: %s", filename, pos, msg)
}

// isDecidedStateConstant reports whether sel resolves to StateUpright or
// StateLeaning from internal/alerting. StateUndetermined stays allowed: it
// is the neutral value any package may hold before the machine has spoken.
func isDecidedStateConstant(sel *ast.SelectorExpr, info *types.Info) bool {
	obj := info.ObjectOf(sel.Sel)
	if obj == nil {
		return false
	}
	pkg := obj.Pkg()
	if pkg == nil {
		return false
	}
	if !strings.HasSuffix(pkg.Path(), "internal/alerting") {
		return false
	}

	_, isConst := obj.(*types.Const)
	if !isConst {
		return false
	}
	return obj.Name() == "StateUpright" || obj.Name() == "StateLeaning"
}
