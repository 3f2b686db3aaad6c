package patch

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Installed resolves the version of the module providing pkg in the project
// at root. vendor/modules.txt is consulted first since it describes the tree
// that gets patched; go.mod is the fallback. It returns "" when no module
// provides pkg.
func Installed(root, pkg string) (string, error) {
	v, err := fromModulesTxt(filepath.Join(root, "vendor", "modules.txt"), pkg)
	if err != nil || v != "" {
		return v, err
	}
	return fromGoMod(filepath.Join(root, "go.mod"), pkg)
}

// provides reports whether module path mod contains package pkg.
func provides(mod, pkg string) bool {
	return pkg == mod || strings.HasPrefix(pkg, mod+"/")
}

func fromModulesTxt(file, pkg string) (string, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var best, version string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "# ") {
			continue
		}
		// "# path version", optionally followed by "=> replacement [version]"
		f := strings.Fields(line[2:])
		if len(f) < 2 || !provides(f[0], pkg) || len(f[0]) <= len(best) {
			continue
		}
		var v string
		rest := f[1:]
		if rest[0] != "=>" {
			v, rest = rest[0], rest[1:]
		}
		if len(rest) >= 3 && rest[0] == "=>" {
			v = rest[2]
		}
		if v == "" {
			continue
		}
		best, version = f[0], v
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("patch: read %s: %w", file, err)
	}
	return version, nil
}

func fromGoMod(file, pkg string) (string, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	mf, err := modfile.Parse(file, data, nil)
	if err != nil {
		return "", fmt.Errorf("patch: %w", err)
	}
	var best module.Version
	for _, r := range mf.Require {
		if provides(r.Mod.Path, pkg) && len(r.Mod.Path) > len(best.Path) {
			best = r.Mod
		}
	}
	if best.Path == "" {
		return "", nil
	}
	for _, r := range mf.Replace {
		if r.Old.Path == best.Path && (r.Old.Version == "" || r.Old.Version == best.Version) && r.New.Version != "" {
			return r.New.Version, nil
		}
	}
	return best.Version, nil
}
