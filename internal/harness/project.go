package harness

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hanpama/typeddoc/patch"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Project is an isolated copy of a fixture project.
type Project struct {
	Root string

	t       testing.TB
	patches fs.FS
	logger  *zap.Logger
}

// ProjectOption customizes a Project.
type ProjectOption func(*Project)

// WithDependency pins module path to version in go.mod and
// vendor/modules.txt.
func WithDependency(path, version string) ProjectOption {
	return func(p *Project) { p.pin(path, version) }
}

// WithPatches reads patch files from dir instead of the fixture's patches/.
func WithPatches(dir string) ProjectOption {
	return func(p *Project) { p.patches = os.DirFS(dir) }
}

// WithPatchFS reads patch files from fsys, such as patch.Builtin().
func WithPatchFS(fsys fs.FS) ProjectOption {
	return func(p *Project) { p.patches = fsys }
}

// NewProject copies fixture into a temporary directory owned by t.
func NewProject(t testing.TB, fixture string, opts ...ProjectOption) *Project {
	t.Helper()
	root := filepath.Join(t.TempDir(), "project")
	require.NoError(t, os.CopyFS(root, os.DirFS(fixture)))
	p := &Project{
		Root:    root,
		t:       t,
		patches: os.DirFS(filepath.Join(root, "patches")),
		logger:  zaptest.NewLogger(t),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Module is a module whose sources are copied into a project's vendor tree.
type Module struct {
	Path    string
	Version string
	Dir     string
}

// CachedModule resolves path at the version required by the go.mod file
// gomod to its directory in the local module cache. The test is skipped when
// the module was never downloaded.
func CachedModule(t testing.TB, gomod, path string) Module {
	t.Helper()
	data, err := os.ReadFile(gomod)
	require.NoError(t, err)
	mf, err := modfile.Parse(gomod, data, nil)
	require.NoError(t, err)
	var version string
	for _, r := range mf.Require {
		if r.Mod.Path == path {
			version = r.Mod.Version
		}
	}
	require.NotEmpty(t, version, "%s does not require %s", gomod, path)

	escPath, err := module.EscapePath(path)
	require.NoError(t, err)
	escVersion, err := module.EscapeVersion(version)
	require.NoError(t, err)
	dir := filepath.Join(modCache(), escPath+"@"+escVersion)
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("%s@%s is not in the module cache", path, version)
	}
	return Module{Path: path, Version: version, Dir: dir}
}

func modCache() string {
	if dir := os.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}
	if list := filepath.SplitList(os.Getenv("GOPATH")); len(list) > 0 && list[0] != "" {
		return filepath.Join(list[0], "pkg", "mod")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "go", "pkg", "mod")
}

// NewModuleProject creates a project for module path mod at Go version
// goVersion that has no packages of its own and requires deps, each copied
// into vendor/ with its go.mod language version recorded in modules.txt.
func NewModuleProject(t testing.TB, mod, goVersion string, deps []Module, opts ...ProjectOption) *Project {
	t.Helper()
	root := filepath.Join(t.TempDir(), "project")
	gomod := filepath.Join(root, "go.mod")
	mf, err := modfile.Parse(gomod, []byte(fmt.Sprintf("module %s\n\ngo %s\n", mod, goVersion)), nil)
	require.NoError(t, err)

	var txt bytes.Buffer
	for _, d := range deps {
		require.NoError(t, mf.AddRequire(d.Path, d.Version))
		vendored := filepath.Join(root, "vendor", filepath.FromSlash(d.Path))
		require.NoError(t, copySources(d.Dir, vendored))

		fmt.Fprintf(&txt, "# %s %s\n", d.Path, d.Version)
		if v := moduleGoVersion(t, d.Dir); v != "" {
			fmt.Fprintf(&txt, "## explicit; go %s\n", v)
		} else {
			txt.WriteString("## explicit\n")
		}
	}
	data, err := mf.Format()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(gomod, data, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "modules.txt"), txt.Bytes(), 0o644))

	p := &Project{
		Root:    root,
		t:       t,
		patches: os.DirFS(filepath.Join(root, "patches")),
		logger:  zaptest.NewLogger(t),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func moduleGoVersion(t testing.TB, dir string) string {
	t.Helper()
	gomod := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(gomod)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	mf, err := modfile.ParseLax(gomod, data, nil)
	require.NoError(t, err)
	if mf.Go == nil {
		return ""
	}
	return mf.Go.Version
}

// copySources copies the non-test Go files and go.mod of the module at src
// to dst, leaving out testdata, vendor and directories starting with "." or
// "_" as the go command does.
func copySources(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != src && (name == "testdata" || name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if name != "go.mod" && (!strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go")) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o644)
	})
}

// Patch applies the project's patches to its vendor tree.
func (p *Project) Patch() []patch.Outcome {
	p.t.Helper()
	out, err := p.patcher().Apply(context.Background())
	require.NoError(p.t, err)
	return out
}

// Unpatch reverses the project's patches.
func (p *Project) Unpatch() []patch.Outcome {
	p.t.Helper()
	out, err := p.patcher().Reverse(context.Background())
	require.NoError(p.t, err)
	return out
}

func (p *Project) patcher() *patch.Patcher {
	return patch.New(p.Root, p.patches, patch.WithLogger(p.logger))
}

// Check type-checks src as package pkgPath of the project.
func (p *Project) Check(pkgPath, src string) *Result {
	p.t.Helper()
	res, err := Check(p.Root, pkgPath, src)
	require.NoError(p.t, err)
	return res
}

// ReadFile returns the content of a file under the project root.
func (p *Project) ReadFile(name string) string {
	p.t.Helper()
	b, err := os.ReadFile(filepath.Join(p.Root, filepath.FromSlash(name)))
	require.NoError(p.t, err)
	return string(b)
}

func (p *Project) pin(path, version string) {
	p.t.Helper()
	gomod := filepath.Join(p.Root, "go.mod")
	data, err := os.ReadFile(gomod)
	require.NoError(p.t, err)
	mf, err := modfile.Parse(gomod, data, nil)
	require.NoError(p.t, err)
	require.NoError(p.t, mf.AddRequire(path, version))
	mf.Cleanup()
	data, err = mf.Format()
	require.NoError(p.t, err)
	require.NoError(p.t, os.WriteFile(gomod, data, 0o644))

	txt := filepath.Join(p.Root, "vendor", "modules.txt")
	data, err = os.ReadFile(txt)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(p.t, err)
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if f := strings.Fields(line); len(f) >= 3 && f[0] == "#" && f[1] == path {
			f[2] = version
			line = strings.Join(f, " ")
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	require.NoError(p.t, sc.Err())
	require.NoError(p.t, os.WriteFile(txt, out.Bytes(), 0o644))
}
