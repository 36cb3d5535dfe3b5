// Package intake accumulates the candidate batch of files selected for upload.
//
// Files arrive in selection events. Each event is classified against the
// configured Constraints, deduplicated by name and appended to a Batch.
// Nothing in this package touches the network.
package intake

import (
	"bytes"
	"io"
	"slices"
)

// RawFile is a file as selected by the user, before intake.
type RawFile struct {
	Name     string
	Size     int64
	MimeType string
	// Open returns a fresh reader over the file content. It may be called
	// once per upload attempt.
	Open func() (io.ReadCloser, error)
}

// BytesFile builds a RawFile backed by an in-memory buffer.
func BytesFile(name, mimeType string, content []byte) RawFile {
	return RawFile{
		Name:     name,
		Size:     int64(len(content)),
		MimeType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// Rejection pairs a file with the violations that kept it from being accepted.
type Rejection struct {
	File       RawFile
	Violations []Violation
}

// CandidateFile is a member of the batch.
type CandidateFile struct {
	RawFile
	Preview    PreviewHandle
	Violations []Violation
}

// HasViolation reports whether the file carries a violation with the given code.
func (f *CandidateFile) HasViolation(code Code) bool {
	return slices.ContainsFunc(f.Violations, func(v Violation) bool { return v.Code == code })
}
