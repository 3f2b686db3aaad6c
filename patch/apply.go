package patch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	eventbus "github.com/hanpama/typeddoc/internal/eventbus"
	events "github.com/hanpama/typeddoc/internal/events"
	"go.uber.org/zap"
)

// Status is the final state of one patch in a run.
type Status string

const (
	Applied  Status = "applied"
	Reversed Status = "reversed"
	Skipped  Status = "skipped"
)

// Reason explains a Skipped outcome.
type Reason string

const (
	NotInstalled    Reason = "not-installed"
	VersionMismatch Reason = "version-mismatch"
	ApplyFailed     Reason = "apply-failed"
	Unparsable      Reason = "unparsable"
)

// Outcome reports what happened to one patch file.
type Outcome struct {
	Patch     Patch
	Installed string
	Status    Status
	Reason    Reason
	// Unchanged is set when the target was already in the requested state
	// and nothing was written.
	Unchanged bool
	Err       error
}

// Patcher applies a set of patch files to the vendor tree of one project.
type Patcher struct {
	root    string
	patches fs.FS
	logger  *zap.Logger
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithLogger sets the logger. Successes are logged at info, version
// mismatches and failed applies at warn, and packages that are not
// installed at debug.
func WithLogger(l *zap.Logger) Option {
	return func(p *Patcher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Patcher for the project at root reading patch files from
// patches.
func New(root string, patches fs.FS, opts ...Option) *Patcher {
	p := &Patcher{root: root, patches: patches, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Apply applies every matching patch. Individual patches never fail the
// run; the returned error is reserved for an unreadable patch directory.
func (p *Patcher) Apply(ctx context.Context) ([]Outcome, error) {
	return p.run(ctx, false)
}

// Reverse undoes every matching patch.
func (p *Patcher) Reverse(ctx context.Context) ([]Outcome, error) {
	return p.run(ctx, true)
}

func (p *Patcher) run(ctx context.Context, reverse bool) ([]Outcome, error) {
	patches, bad, err := Discover(p.patches)
	if err != nil {
		return nil, err
	}
	var out []Outcome
	for _, name := range bad {
		o := Outcome{Patch: Patch{File: name}, Status: Skipped, Reason: Unparsable, Err: ErrFileName}
		p.logger.Debug("ignoring patch file", zap.String("file", name))
		out = append(out, p.publish(ctx, o, reverse))
	}
	for _, pt := range patches {
		o := p.one(pt, reverse)
		out = append(out, p.publish(ctx, o, reverse))
	}
	return out, nil
}

func (p *Patcher) one(pt Patch, reverse bool) Outcome {
	o := Outcome{Patch: pt, Status: Skipped}
	log := p.logger.With(zap.String("patch", pt.File), zap.String("package", pt.Package))

	v, err := Installed(p.root, pt.Package)
	if err != nil {
		o.Reason, o.Err = NotInstalled, err
		log.Debug("cannot resolve installed version", zap.Error(err))
		return o
	}
	if v == "" {
		o.Reason = NotInstalled
		log.Debug("package not installed")
		return o
	}
	o.Installed = v
	dir := filepath.Join(p.root, "vendor", filepath.FromSlash(pt.Package))
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		o.Reason = NotInstalled
		log.Debug("package not vendored", zap.String("version", v))
		return o
	}

	ok, err := pt.Matches(v)
	if err != nil || !ok {
		o.Reason, o.Err = VersionMismatch, err
		log.Warn("installed version outside patch range", zap.String("version", v), zap.String("range", pt.Range))
		return o
	}

	files, err := p.load(pt)
	if err == nil {
		o.Unchanged, err = applyFiles(dir, files, reverse)
	}
	if err != nil {
		o.Reason, o.Err = ApplyFailed, err
		log.Warn("patch did not apply", zap.String("version", v), zap.Bool("reverse", reverse), zap.Error(err))
		return o
	}
	o.Status, o.Reason = Applied, ""
	msg := "patch applied"
	if reverse {
		o.Status = Reversed
		msg = "patch reversed"
	}
	log.Info(msg, zap.String("version", v), zap.Bool("unchanged", o.Unchanged))
	return o
}

func (p *Patcher) load(pt Patch) ([]*gitdiff.File, error) {
	data, err := fs.ReadFile(p.patches, pt.File)
	if err != nil {
		return nil, err
	}
	files, _, err := gitdiff.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pt.File, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s contains no file changes", pt.File)
	}
	return files, nil
}

func (p *Patcher) publish(ctx context.Context, o Outcome, reverse bool) Outcome {
	eventbus.Publish(ctx, events.PatchOutcome{
		File:      o.Patch.File,
		Package:   o.Patch.Package,
		Range:     o.Patch.Range,
		Installed: o.Installed,
		Status:    string(o.Status),
		Reason:    string(o.Reason),
		Reverse:   reverse,
		Err:       o.Err,
	})
	return o
}

// change is the computed result for one target file.
type change struct {
	path    string
	content []byte
	remove  bool
}

// applyFiles applies files under dir, or their inverse when reverse is set.
// Nothing is written unless every file applies. When the requested direction
// conflicts but the opposite direction applies cleanly, dir is already in
// the requested state and unchanged is reported.
func applyFiles(dir string, files []*gitdiff.File, reverse bool) (unchanged bool, err error) {
	forward, back := files, invert(files)
	if reverse {
		forward, back = back, forward
	}
	changes, err := compute(dir, forward)
	if err == nil {
		return false, write(changes)
	}
	if !isConflict(err) {
		return false, err
	}
	if _, berr := compute(dir, back); berr == nil {
		return true, nil
	}
	return false, err
}

func compute(dir string, files []*gitdiff.File) ([]change, error) {
	out := make([]change, 0, len(files))
	for _, f := range files {
		if f.IsBinary {
			return nil, fmt.Errorf("binary patch for %s is not supported", f.NewName)
		}
		name := f.NewName
		if f.IsDelete {
			name = f.OldName
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return nil, fmt.Errorf("patch target %q escapes the package directory", name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		src, err := os.ReadFile(target)
		switch {
		case errors.Is(err, fs.ErrNotExist) && f.IsNew:
			src = nil
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%s: %w", name, errMissing)
		case err != nil:
			return nil, err
		}

		var buf bytes.Buffer
		if err := gitdiff.Apply(&buf, bytes.NewReader(src), f); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, change{path: target, content: buf.Bytes(), remove: f.IsDelete})
	}
	return out, nil
}

func write(changes []change) error {
	for _, c := range changes {
		if c.remove {
			if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(c.path, c.content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

var errMissing = errors.New("file to patch does not exist")

func isConflict(err error) bool {
	return errors.Is(err, errMissing) || errors.Is(err, &gitdiff.Conflict{})
}

// invert returns the diffs that undo files.
func invert(files []*gitdiff.File) []*gitdiff.File {
	out := make([]*gitdiff.File, len(files))
	for i, f := range files {
		r := *f
		r.OldName, r.NewName = f.NewName, f.OldName
		r.IsNew, r.IsDelete = f.IsDelete, f.IsNew
		r.OldMode, r.NewMode = f.NewMode, f.OldMode
		r.TextFragments = make([]*gitdiff.TextFragment, len(f.TextFragments))
		for j, frag := range f.TextFragments {
			rf := *frag
			rf.OldPosition, rf.NewPosition = frag.NewPosition, frag.OldPosition
			rf.OldLines, rf.NewLines = frag.NewLines, frag.OldLines
			rf.LinesAdded, rf.LinesDeleted = frag.LinesDeleted, frag.LinesAdded
			rf.Lines = make([]gitdiff.Line, len(frag.Lines))
			for k, l := range frag.Lines {
				switch l.Op {
				case gitdiff.OpAdd:
					l.Op = gitdiff.OpDelete
				case gitdiff.OpDelete:
					l.Op = gitdiff.OpAdd
				}
				rf.Lines[k] = l
			}
			r.TextFragments[j] = &rf
		}
		out[i] = &r
	}
	return out
}
