// Package filex turns paths on the local disk into intake files.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/filedrop/internal/intake"
)

var detectFile = mimetype.DetectFile

// DetectMimeType sniffs the content of path. Parameters such as charset are
// dropped.
func DetectMimeType(path string) (string, error) {
	mt, err := detectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", path, err)
	}
	base, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(base), nil
}

// RawFile describes the regular file at path. The content is read again on
// every Open, so a retry sees the file as it is on disk at that moment.
func RawFile(path string) (intake.RawFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return intake.RawFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return intake.RawFile{}, fmt.Errorf("%s: not a regular file", path)
	}

	mt, err := DetectMimeType(path)
	if err != nil {
		return intake.RawFile{}, err
	}

	return intake.RawFile{
		Name:     filepath.Base(path),
		Size:     fi.Size(),
		MimeType: mt,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// RawFiles loads every path, stopping at the first error.
func RawFiles(paths []string) ([]intake.RawFile, error) {
	files := make([]intake.RawFile, 0, len(paths))
	for _, p := range paths {
		f, err := RawFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
