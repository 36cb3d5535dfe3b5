package intake

import (
	"fmt"
	"slices"
	"strings"
)

// Code identifies the kind of constraint a file violates.
type Code string

const (
	CodeTooLarge     Code = "too-large"
	CodeTooSmall     Code = "too-small"
	CodeInvalidType  Code = "invalid-type"
	CodeTooManyFiles Code = "too-many-files"
)

// Violation is a constraint failure attached to a single file at intake time.
// Violations are data for display; they are never returned as errors.
type Violation struct {
	Code    Code
	Message string
}

func tooLarge(limit int64) Violation {
	return Violation{Code: CodeTooLarge, Message: fmt.Sprintf("File is larger than %d bytes", limit)}
}

func tooSmall(limit int64) Violation {
	return Violation{Code: CodeTooSmall, Message: fmt.Sprintf("File is smaller than %d bytes", limit)}
}

func invalidType(allowed []string) Violation {
	return Violation{Code: CodeInvalidType, Message: "File type must be one of " + strings.Join(allowed, ", ")}
}

func tooManyFiles(limit int) Violation {
	return Violation{Code: CodeTooManyFiles, Message: fmt.Sprintf("Too many files, at most %d allowed", limit)}
}

// withoutCode returns vs minus every violation with the given code.
// The second result reports whether anything was removed.
func withoutCode(vs []Violation, code Code) ([]Violation, bool) {
	if !slices.ContainsFunc(vs, func(v Violation) bool { return v.Code == code }) {
		return vs, false
	}
	return slices.DeleteFunc(slices.Clone(vs), func(v Violation) bool { return v.Code == code }), true
}
