package events

// PatchOutcome is emitted once per discovered patch file.
type PatchOutcome struct {
	File    string
	Package string
	Range   string
	// Installed is empty when the package is not installed.
	Installed string
	// Status is "applied", "reversed" or "skipped".
	Status string
	// Reason is set when Status is "skipped".
	Reason  string
	Reverse bool
	Err     error
}

// GenerateFinish is emitted after a generator run.
type GenerateFinish struct {
	Operations int
	Output     string
	Cached     bool
	Err        error
}
