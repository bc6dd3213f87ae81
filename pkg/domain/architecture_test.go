package domain

import (
	"go/parser"
	"go/token"
	"os"
	"strconv"
	"strings"
	"testing"
)

// The domain package is shared by the CLI, the service layer and external
// tooling, so it may only depend on the standard library and small pure
// libraries.
func TestDomainImportsStayPure(t *testing.T) {
	allowed := map[string]bool{
		"github.com/goccy/go-json":      true,
		"github.com/shopspring/decimal": true,
	}
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, spec := range file.Imports {
			imp, _ := strconv.Unquote(spec.Path.Value)
			if !strings.Contains(imp, ".") {
				continue // standard library
			}
			if !allowed[imp] {
				t.Errorf("%s imports %s", name, imp)
			}
		}
	}
}
