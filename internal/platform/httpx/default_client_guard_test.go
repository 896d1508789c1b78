// SPDX-License-Identifier: MIT

package httpx

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Outbound requests must go through NewClient so that every downloader gets
// its timeouts and connection limits. The package-level helpers of net/http
// bypass them.
var forbiddenHTTP = map[string]bool{
	"DefaultClient":    true,
	"DefaultTransport": true,
	"Get":              true,
	"Head":             true,
	"Post":             true,
	"PostForm":         true,
}

func TestNoImplicitHTTPClients(t *testing.T) {
	root := filepath.Join("..", "..", "..")
	fset := token.NewFileSet()
	var found []string

	for _, dir := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
			if err != nil {
				return err
			}
			ast.Inspect(file, func(n ast.Node) bool {
				sel, ok := n.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				if pkg, ok := sel.X.(*ast.Ident); ok && pkg.Name == "http" && forbiddenHTTP[sel.Sel.Name] {
					found = append(found, fset.Position(sel.Pos()).String()+": http."+sel.Sel.Name)
				}
				return true
			})
			return nil
		})
		require.NoError(t, err)
	}

	slices.Sort(found)
	require.Empty(t, found, "use httpx.NewClient instead of the net/http package helpers")
}
