package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/hanpama/typeddoc/patch"
	"github.com/spf13/cobra"
)

func newPatchCmd(g *globals, reverse bool) *cobra.Command {
	var (
		root    string
		patches string
	)
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Patch vendored GraphQL libraries to accept typed documents",
		Long: `patch applies every patch file whose package is vendored at a version
inside the file's range. Patches for missing packages or other versions are
skipped. Running it again leaves patched files untouched.`,
		Args: cobra.NoArgs,
	}
	if reverse {
		cmd.Use = "unpatch"
		cmd.Short = "Restore vendored libraries patched by patch"
		cmd.Long = `unpatch reverses every patch that patch would apply, restoring the
vendored files to their original content.`
	}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var fsys fs.FS = patch.Builtin()
		if patches != "" {
			fsys = os.DirFS(patches)
		}
		p := patch.New(root, fsys, patch.WithLogger(g.logger))
		apply := p.Apply
		if reverse {
			apply = p.Reverse
		}
		outcomes, err := apply(cmd.Context())
		if err != nil {
			return err
		}
		summarize(cmd.OutOrStdout(), outcomes, reverse, g.verbose)
		return nil
	}
	cmd.Flags().StringVar(&root, "root", ".", "project root holding go.mod and vendor/")
	cmd.Flags().StringVar(&patches, "patches", "", "directory of patch files (default: built-in patches)")
	return cmd
}

// summarize prints one line per patch. Patches skipped because their package
// is not vendored are only listed when verbose.
func summarize(w io.Writer, outcomes []patch.Outcome, reverse, verbose bool) {
	var done, skipped int
	for _, o := range outcomes {
		if o.Status == patch.Skipped {
			skipped++
			if o.Reason == patch.NotInstalled && !verbose {
				continue
			}
		} else {
			done++
		}
		fmt.Fprintf(w, "%s %s\n", status(o), describe(o))
	}
	verb := "patched"
	if reverse {
		verb = "reversed"
	}
	fmt.Fprintf(w, "%d %s, %d skipped\n", done, verb, skipped)
}

func status(o patch.Outcome) string {
	label := fmt.Sprintf("%-9s", o.Status)
	switch {
	case o.Status == patch.Skipped && o.Reason == patch.NotInstalled:
		return color.HiBlackString(label)
	case o.Status == patch.Skipped:
		return color.YellowString(label)
	case o.Unchanged:
		return color.CyanString(label)
	}
	return color.GreenString(label)
}

func describe(o patch.Outcome) string {
	name := o.Patch.Package
	if name == "" {
		name = o.Patch.File
	}
	if o.Installed != "" {
		name += "@" + o.Installed
	}
	switch {
	case o.Status == patch.Skipped && o.Err != nil:
		return fmt.Sprintf("%s (%s: %v)", name, o.Reason, o.Err)
	case o.Status == patch.Skipped:
		return fmt.Sprintf("%s (%s, wants %s)", name, o.Reason, o.Patch.Range)
	case o.Unchanged:
		return name + " (already up to date)"
	}
	return name
}
