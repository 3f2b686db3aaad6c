// Package harness type-checks snippets against a scratch copy of a fixture
// project, before and after its vendored dependencies are patched.
package harness

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/build"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

// Diagnostic is one type error reported for the checked snippet.
type Diagnostic struct {
	Pos token.Position
	Msg string
}

func (d Diagnostic) String() string { return fmt.Sprintf("%s: %s", d.Pos, d.Msg) }

// Result holds the outcome of checking one snippet.
type Result struct {
	Diagnostics []Diagnostic

	pkg  *types.Package
	info *types.Info
}

// Messages returns the diagnostic messages without positions.
func (r *Result) Messages() []string {
	out := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		out[i] = d.Msg
	}
	return out
}

// TypeOf renders the type of the identifier declared as name, qualified by
// package name. A package-level declaration wins over locals; among locals
// the first declaration in source order is used. It returns "" when name is
// not declared.
func (r *Result) TypeOf(name string) string {
	if obj := r.pkg.Scope().Lookup(name); obj != nil {
		return types.TypeString(obj.Type(), byName)
	}
	var found types.Object
	for id, obj := range r.info.Defs {
		if obj == nil || id.Name != name {
			continue
		}
		if found == nil || obj.Pos() < found.Pos() {
			found = obj
		}
	}
	if found == nil {
		return ""
	}
	return types.TypeString(found.Type(), byName)
}

func byName(p *types.Package) string { return p.Name() }

// Check type-checks src as the single file of package pkgPath inside the
// project at dir. Imports resolve to the project's own packages, then to its
// vendor tree, then to the standard library. Every package is checked at the
// Go language version of the module that provides it, as go.mod and
// vendor/modules.txt declare it, and files excluded by build constraints are
// skipped. Type errors in src come back as diagnostics; a parse error or a
// broken dependency is an error.
func Check(dir, pkgPath, src string) (*Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet.go", src, parser.AllErrors)
	if err != nil {
		return nil, fmt.Errorf("harness: parse snippet: %w", err)
	}
	imp, err := newImporter(dir, fset)
	if err != nil {
		return nil, err
	}

	res := &Result{info: &types.Info{
		Types: map[ast.Expr]types.TypeAndValue{},
		Defs:  map[*ast.Ident]types.Object{},
		Uses:  map[*ast.Ident]types.Object{},
	}}
	conf := types.Config{
		Importer:  imp,
		GoVersion: imp.goVersion(pkgPath),
		Error: func(err error) {
			if te, ok := err.(types.Error); ok {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Pos: te.Fset.Position(te.Pos), Msg: te.Msg})
				return
			}
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Msg: err.Error()})
		},
	}
	// errors are collected above
	res.pkg, _ = conf.Check(pkgPath, fset, []*ast.File{file}, res.info)
	if imp.err != nil {
		return nil, imp.err
	}
	return res, nil
}

// projectImporter loads packages from source and memoizes them.
type projectImporter struct {
	dir    string
	module string
	// go versions by module path; the project's own module included
	versions map[string]string
	fset     *token.FileSet
	std      types.Importer
	pkgs     map[string]*types.Package
	err      error
}

func newImporter(dir string, fset *token.FileSet) (*projectImporter, error) {
	gomod := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(gomod)
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	mf, err := modfile.ParseLax(gomod, data, nil)
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	if mf.Module == nil {
		return nil, fmt.Errorf("harness: %s/go.mod has no module line", dir)
	}
	versions, err := vendoredVersions(filepath.Join(dir, "vendor", "modules.txt"))
	if err != nil {
		return nil, err
	}
	if mf.Go != nil {
		versions[mf.Module.Mod.Path] = mf.Go.Version
	}
	return &projectImporter{
		dir:      dir,
		module:   mf.Module.Mod.Path,
		versions: versions,
		fset:     fset,
		std:      importer.ForCompiler(fset, "source", nil),
		pkgs:     map[string]*types.Package{},
	}, nil
}

// vendoredVersions reads the "## explicit; go 1.N" annotations of
// modules.txt. A module without one maps to "".
func vendoredVersions(file string) (map[string]string, error) {
	out := map[string]string{}
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	var mod string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "## "):
			if mod == "" {
				continue
			}
			for _, part := range strings.Split(line[3:], ";") {
				if v, ok := strings.CutPrefix(strings.TrimSpace(part), "go "); ok {
					out[mod] = v
				}
			}
		case strings.HasPrefix(line, "# "):
			mod = ""
			if f := strings.Fields(line[2:]); len(f) > 0 {
				mod = f[0]
				if _, ok := out[mod]; !ok {
					out[mod] = ""
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("harness: read %s: %w", file, err)
	}
	return out, nil
}

// goVersion returns the language version for package path in the form
// types.Config expects, or "" when the providing module declares none.
func (p *projectImporter) goVersion(path string) string {
	var best, version string
	for mod, v := range p.versions {
		if (path == mod || strings.HasPrefix(path, mod+"/")) && len(mod) > len(best) {
			best, version = mod, v
		}
	}
	if version == "" {
		return ""
	}
	return "go" + version
}

func (p *projectImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := p.pkgs[path]; ok {
		return pkg, nil
	}
	src := p.locate(path)
	if src == "" {
		return p.std.Import(path)
	}
	pkg, err := p.load(path, src)
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		return nil, err
	}
	p.pkgs[path] = pkg
	return pkg, nil
}

func (p *projectImporter) locate(path string) string {
	if path == p.module || strings.HasPrefix(path, p.module+"/") {
		return filepath.Join(p.dir, filepath.FromSlash(strings.TrimPrefix(path, p.module)))
	}
	dir := filepath.Join(p.dir, "vendor", filepath.FromSlash(path))
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return dir
	}
	return ""
}

func (p *projectImporter) load(path, dir string) (*types.Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("harness: import %s: %w", path, err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, ".go") || strings.HasSuffix(n, "_test.go") {
			continue
		}
		if ok, err := build.Default.MatchFile(dir, n); err != nil || !ok {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("harness: import %s: no Go files in %s", path, dir)
	}
	files := make([]*ast.File, 0, len(names))
	for _, n := range names {
		// comments carry the //go:build line that sets the file's version
		f, err := parser.ParseFile(p.fset, filepath.Join(dir, n), nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("harness: import %s: %w", path, err)
		}
		files = append(files, f)
	}
	conf := types.Config{Importer: p, GoVersion: p.goVersion(path)}
	pkg, err := conf.Check(path, p.fset, files, nil)
	if err != nil {
		return nil, fmt.Errorf("harness: import %s: %w", path, err)
	}
	return pkg, nil
}
