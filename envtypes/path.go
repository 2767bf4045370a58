package envtypes

import (
	"errors"
	"fmt"
	"os"
)

var ErrNotAFile = errors.New("not a regular file")

// LocalPath is a file that existed when the variable naming it was read.
type LocalPath struct {
	Path string
	Info os.FileInfo
}

// StatFile checks that path names a regular file.
func StatFile(path string) (LocalPath, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalPath{}, err //nolint:wrapcheck
	}

	if !info.Mode().IsRegular() {
		return LocalPath{}, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	return LocalPath{Path: path, Info: info}, nil
}
