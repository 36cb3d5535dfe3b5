package sanitize

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "spaces collapse", in: "my   summer\tphoto.jpg", want: "my_summer_photo.jpg"},
		{name: "korean stripped", in: "보고서 final.docx", want: "final.docx"},
		{name: "all symbols", in: "???.png", want: "file.png"},
		{name: "only non ascii", in: "日本語.txt", want: "file.txt"},
		{name: "unsafe chars", in: `a<b>c:d"e/f\g|h?i*j.txt`, want: "abcdefghij.txt"},
		{name: "underscores collapse", in: "__a___b__.csv", want: "a_b.csv"},
		{name: "underscores around removed chars", in: "a_?_b.csv", want: "a_b.csv"},
		{name: "no extension", in: "Makefile", want: "Makefile"},
		{name: "empty", in: "", want: "file"},
		{name: "dot only", in: ".env", want: "file.env"},
		{name: "multi dot keeps inner dots", in: "archive.tar.gz", want: "archive.tar.gz"},
		{name: "extension untouched", in: "a b.P N?G", want: "a_b.P N?G"},
		{name: "invalid utf8", in: "a\xffb.bin", want: "ab.bin"},
		{name: "nbsp is whitespace", in: "a\u00a0b.txt", want: "a_b.txt"},
		{name: "byte order mark is whitespace", in: "a\uFEFFb.txt", want: "a_b.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.in))
		})
	}
}

func TestFilename_Properties(t *testing.T) {
	inputs := []string{
		"report.pdf",
		"  leading and trailing  .txt",
		"보고서 최종본 (1).hwp",
		"???.png",
		`C:\Users\me\Desktop\notes.md`,
		"a//b//c",
		"___",
		"emoji 😀 party 🎉.gif",
		"tab\tand\nnewline.log",
		"..",
		"name.",
		"a_\u3000_b.txt",
	}

	for _, in := range inputs {
		out := Filename(in)

		assert.Equal(t, out, Filename(out), "not idempotent for %q", in)

		ext := ""
		if i := strings.LastIndexByte(in, '.'); i >= 0 {
			ext = in[i:]
		}
		assert.True(t, strings.HasSuffix(out, ext), "extension of %q not preserved in %q", in, out)

		stem := strings.TrimSuffix(out, ext)
		assert.NotEmpty(t, stem)
		assert.False(t, strings.ContainsAny(stem, unsafeChars), "unsafe char in %q", out)
		assert.NotContains(t, stem, "__")
		for _, r := range stem {
			assert.LessOrEqual(t, r, rune(unicode.MaxASCII), "non-ascii rune in %q", out)
			assert.False(t, unicode.IsSpace(r), "whitespace in %q", out)
		}
	}
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "file.png", StorageKey("", "???.png"))
	assert.Equal(t, "p1/my_doc.pdf", StorageKey("p1", "my doc.pdf"))
	assert.Equal(t, "p1/my_doc.pdf", StorageKey("p1/", "my doc.pdf"))
}
