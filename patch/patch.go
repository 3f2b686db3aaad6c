// Package patch rewrites vendored dependencies so their entry points accept
// typed documents. Each patch file names the package it targets and the
// semantic version range it was written against; patches whose package is
// not vendored, or whose version is out of range, are skipped.
package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Ext is the extension of patch files.
const Ext = ".patch"

var ErrFileName = errors.New("patch: file name must be <package>+<range>.patch")

// Patch is a discovered patch file.
type Patch struct {
	// File is the path of the patch inside its file system.
	File string
	// Package is the import path the patch applies to, relative to vendor/.
	Package string
	// Range is the semantic version range as written in the file name.
	Range string

	constraint *semver.Constraints
}

// Matches reports whether version falls in the patch's range.
func (p Patch) Matches(version string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("patch: installed version %q: %w", version, err)
	}
	return p.constraint.Check(v), nil
}

// ParseFileName splits a patch file name into package and range. The name
// is split on "+": the last segment is the range and the others, joined
// with "/", are the package path. So "lib+^1.0.0.patch",
// "scope+lib+^1.0.0.patch" and "github.com+org+lib+~1.5.patch" are all
// valid.
func ParseFileName(name string) (Patch, error) {
	base := path.Base(name)
	if !strings.HasSuffix(base, Ext) {
		return Patch{}, fmt.Errorf("%w: %q", ErrFileName, base)
	}
	parts := strings.Split(strings.TrimSuffix(base, Ext), "+")
	if len(parts) < 2 {
		return Patch{}, fmt.Errorf("%w: %q", ErrFileName, base)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Patch{}, fmt.Errorf("%w: %q has an empty segment", ErrFileName, base)
		}
	}
	rng := parts[len(parts)-1]
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return Patch{}, fmt.Errorf("%w: %q: range %q: %v", ErrFileName, base, rng, err)
	}
	return Patch{
		File:       name,
		Package:    strings.Join(parts[:len(parts)-1], "/"),
		Range:      rng,
		constraint: c,
	}, nil
}

// Discover lists the patch files at the top level of fsys in name order.
// Files whose names cannot be parsed are returned in bad.
func Discover(fsys fs.FS) (patches []Patch, bad []string, err error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("patch: read patch dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		p, err := ParseFileName(e.Name())
		if err != nil {
			bad = append(bad, e.Name())
			continue
		}
		patches = append(patches, p)
	}
	return patches, bad, nil
}
