package intake

import "strings"

// DefaultMaxFiles is used when Constraints.MaxFiles is not set.
const DefaultMaxFiles = 1

// Constraints are the per-file and per-batch limits checked at intake.
type Constraints struct {
	// AllowedMimeTypes accepts exact types ("image/png") and wildcard
	// families ("image/*"). Empty allows every type.
	AllowedMimeTypes []string
	// MaxFileSize in bytes; 0 means unlimited.
	MaxFileSize int64
	// MinFileSize in bytes; 0 disables the check.
	MinFileSize int64
	// MaxFiles caps the number of files accepted from one selection event
	// and the size of the batch.
	MaxFiles int
}

func (c Constraints) maxFiles() int {
	if c.MaxFiles <= 0 {
		return DefaultMaxFiles
	}
	return c.MaxFiles
}

// AllowsType reports whether mimeType matches one of the allowed patterns.
func (c Constraints) AllowsType(mimeType string) bool {
	if len(c.AllowedMimeTypes) == 0 {
		return true
	}

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	for _, pattern := range c.AllowedMimeTypes {
		p := strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case p == "*" || p == "*/*":
			return true
		case strings.HasSuffix(p, "/*"):
			if strings.HasPrefix(mt, strings.TrimSuffix(p, "*")) {
				return true
			}
		case p == mt:
			return true
		}
	}
	return false
}

// Classify splits one selection event into accepted files and rejections.
//
// Size and type are checked per file. When more files pass than the event
// allows (more than one for single-file mode, more than MaxFiles otherwise),
// every passing file is rejected with a too-many-files violation.
func (c Constraints) Classify(files []RawFile) ([]RawFile, []Rejection) {
	var accepted []RawFile
	var rejected []Rejection

	for _, f := range files {
		var vs []Violation
		if !c.AllowsType(f.MimeType) {
			vs = append(vs, invalidType(c.AllowedMimeTypes))
		}
		if c.MaxFileSize > 0 && f.Size > c.MaxFileSize {
			vs = append(vs, tooLarge(c.MaxFileSize))
		}
		if c.MinFileSize > 0 && f.Size < c.MinFileSize {
			vs = append(vs, tooSmall(c.MinFileSize))
		}

		if len(vs) > 0 {
			rejected = append(rejected, Rejection{File: f, Violations: vs})
			continue
		}
		accepted = append(accepted, f)
	}

	if len(accepted) > c.maxFiles() {
		for _, f := range accepted {
			rejected = append(rejected, Rejection{File: f, Violations: []Violation{tooManyFiles(c.maxFiles())}})
		}
		accepted = nil
	}

	return accepted, rejected
}
