package intake

// Batch is the ordered set of candidate files awaiting or having completed
// upload. It is not safe for concurrent use; callers serialize access (see
// upload.Session).
type Batch struct {
	previews Previews
	files    []*CandidateFile
}

// NewBatch returns an empty batch that creates previews through p.
// A nil p disables previews.
func NewBatch(p Previews) *Batch {
	return &Batch{previews: p}
}

// Files returns the batch members in selection order. The slice is a copy;
// the elements are shared.
func (b *Batch) Files() []*CandidateFile {
	out := make([]*CandidateFile, len(b.files))
	copy(out, b.files)
	return out
}

func (b *Batch) Len() int { return len(b.files) }

// Names returns the file names in selection order.
func (b *Batch) Names() []string {
	names := make([]string, len(b.files))
	for i, f := range b.files {
		names[i] = f.Name
	}
	return names
}

// Contains reports whether a file with the given name is in the batch.
func (b *Batch) Contains(name string) bool {
	return b.indexOf(name) >= 0
}

func (b *Batch) indexOf(name string) int {
	for i, f := range b.files {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// HasViolations reports whether any member carries a violation.
func (b *Batch) HasViolations() bool {
	for _, f := range b.files {
		if len(f.Violations) > 0 {
			return true
		}
	}
	return false
}

// AddFiles appends one classified selection event.
//
// Files whose name is already present, in the batch or earlier in the same
// event, are dropped; the first occurrence wins. This holds for rejected
// files too, so names stay unique once violations are reconciled away.
// It returns the number of files added.
func (b *Batch) AddFiles(accepted []RawFile, rejected []Rejection) int {
	added := 0

	for _, f := range accepted {
		if b.Contains(f.Name) {
			continue
		}
		b.files = append(b.files, &CandidateFile{RawFile: f, Preview: b.createPreview(f)})
		added++
	}

	for _, r := range rejected {
		if b.Contains(r.File.Name) {
			continue
		}
		vs := make([]Violation, len(r.Violations))
		copy(vs, r.Violations)
		b.files = append(b.files, &CandidateFile{RawFile: r.File, Preview: b.createPreview(r.File), Violations: vs})
		added++
	}

	return added
}

// ReconcileCountConstraint drops the too-many-files violation from every
// file once the batch fits within maxFiles. It reports whether any file
// changed.
func (b *Batch) ReconcileCountConstraint(maxFiles int) bool {
	if len(b.files) > maxFiles {
		return false
	}

	changed := false
	for _, f := range b.files {
		var removed bool
		if f.Violations, removed = withoutCode(f.Violations, CodeTooManyFiles); removed {
			changed = true
		}
	}
	return changed
}

// Remove drops the named file and releases its preview.
// It reports whether the file was present.
func (b *Batch) Remove(name string) bool {
	i := b.indexOf(name)
	if i < 0 {
		return false
	}

	b.releasePreview(b.files[i])
	b.files = append(b.files[:i], b.files[i+1:]...)
	return true
}

// Reset drops every file, releasing all previews.
func (b *Batch) Reset() {
	for _, f := range b.files {
		b.releasePreview(f)
	}
	b.files = nil
}

func (b *Batch) createPreview(f RawFile) PreviewHandle {
	if b.previews == nil {
		return ""
	}
	return b.previews.Create(f)
}

func (b *Batch) releasePreview(f *CandidateFile) {
	if b.previews == nil || f.Preview == "" {
		return
	}
	b.previews.Release(f.Preview)
	f.Preview = ""
}
