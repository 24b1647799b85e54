package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// readSource loads the translation unit's text and a diagnostic file name
// for it, grounded on hhramberg-go-vslc/src/util/io.go's ReadSource: a
// named file when one is given, standard input otherwise. Unlike the
// teacher, which races stdin against a timeout on its own goroutine, this
// reads synchronously -- spec.md §5 is explicit the whole pipeline is
// single-threaded, so there is nothing else for the process to do while it
// waits.
func readSource(path string) (src, file string, err error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", errors.Wrap(err, "reading standard input")
		}
		return string(b), "<stdin>", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "reading %s", path)
	}
	return string(b), path, nil
}

// writeOutput writes data to path, or to def if path is empty (spec.md §6:
// "Default is target-specific").
func writeOutput(path, def string, data []byte) error {
	if path == "" {
		path = def
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
