// Package sanitize maps user-supplied file names onto names that are safe to
// use as object-storage keys.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// fallbackStem replaces a stem that sanitizes down to nothing.
const fallbackStem = "file"

// unsafeChars are stripped from the stem.
const unsafeChars = `<>:"/\|?*`

// Filename returns a storage-key-safe version of name.
//
// The name is split at its last '.'; only the stem is rewritten:
//   - whitespace runs, U+FEFF included, become a single '_'
//   - non-ASCII runes (and invalid UTF-8 bytes) are dropped
//   - the characters <>:"/\|?* are dropped
//   - repeated '_' collapse into one, leading/trailing '_' are trimmed
//
// An empty result becomes "file". The extension is reattached unmodified,
// so Filename(Filename(x)) == Filename(x).
func Filename(name string) string {
	stem, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		stem, ext = name[:i], name[i:]
	}

	var b strings.Builder
	b.Grow(len(stem))

	inSpace := false
	for i := 0; i < len(stem); {
		r, size := utf8.DecodeRuneInString(stem[i:])
		i += size

		if unicode.IsSpace(r) || r == '\uFEFF' {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false

		if r == utf8.RuneError || r > unicode.MaxASCII {
			continue
		}
		if strings.ContainsRune(unsafeChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	clean := strings.Trim(collapseUnderscores(b.String()), "_")
	if clean == "" {
		clean = fallbackStem
	}

	return clean + ext
}

func collapseUnderscores(s string) string {
	if !strings.Contains(s, "__") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	prev := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && prev == '_' {
			continue
		}
		b.WriteByte(c)
		prev = c
	}
	return b.String()
}

// StorageKey joins an optional prefix with the sanitized file name.
func StorageKey(prefix, name string) string {
	if prefix == "" {
		return Filename(name)
	}
	return strings.TrimRight(prefix, "/") + "/" + Filename(name)
}
