package upload

import "slices"

// Outcome is the result of one file's unit of work in a cycle.
// An empty Err means the file was uploaded.
type Outcome struct {
	FileName string
	Err      string
}

func (o Outcome) Failed() bool { return o.Err != "" }

// CycleResult aggregates every outcome of one upload cycle.
type CycleResult struct {
	// Outcomes holds one entry per attempted file, in batch order.
	Outcomes []Outcome
}

// Errors returns the failed outcomes.
func (r CycleResult) Errors() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// Successes returns the names of the files uploaded in this cycle.
func (r CycleResult) Successes() []string {
	var out []string
	for _, o := range r.Outcomes {
		if !o.Failed() {
			out = append(out, o.FileName)
		}
	}
	return out
}

// State is the upload bookkeeping of a batch across cycles.
// Errors and Successes are disjoint once a cycle has been applied.
type State struct {
	Errors    []Outcome
	Successes []string
	InFlight  bool
}

// ErrorFor returns the recorded error message for name, if any.
func (s State) ErrorFor(name string) (string, bool) {
	for _, o := range s.Errors {
		if o.FileName == name {
			return o.Err, true
		}
	}
	return "", false
}

func (s State) Succeeded(name string) bool {
	return slices.Contains(s.Successes, name)
}

// Apply folds a finished cycle into the state.
//
// The error set is replaced, not merged: a file that failed before and
// succeeded now is no longer an error. Successes accumulate. A file that
// already succeeded stays succeeded even if a later re-upload of it failed.
func (s State) Apply(r CycleResult) State {
	successes := slices.Clone(s.Successes)
	for _, name := range r.Successes() {
		if !slices.Contains(successes, name) {
			successes = append(successes, name)
		}
	}

	var errs []Outcome
	for _, o := range r.Errors() {
		if slices.Contains(s.Successes, o.FileName) {
			continue
		}
		errs = append(errs, o)
	}

	return State{Errors: errs, Successes: successes, InFlight: s.InFlight}
}

// Forget drops every trace of name from the state.
func (s State) Forget(name string) State {
	return State{
		Errors:    slices.DeleteFunc(slices.Clone(s.Errors), func(o Outcome) bool { return o.FileName == name }),
		Successes: slices.DeleteFunc(slices.Clone(s.Successes), func(n string) bool { return n == name }),
		InFlight:  s.InFlight,
	}
}

// IsSuccess reports whether a batch of fileCount files is fully uploaded:
// no errors, every file succeeded, and at least one cycle produced a result.
func (s State) IsSuccess(fileCount int) bool {
	if len(s.Errors) == 0 && len(s.Successes) == 0 {
		return false
	}
	return len(s.Errors) == 0 && len(s.Successes) == fileCount
}
