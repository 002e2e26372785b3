package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var errNoInput = errors.New("one of --text or --in is required")

// addToFilename inserts suffix before the extension: "kasumi.txt" with
// "-encrypted" gives "kasumi-encrypted.txt". Names without an extension
// get the suffix appended.
func addToFilename(name, suffix string) string {
	dir, base := filepath.Split(name)
	ext := filepath.Ext(base)
	if ext == base {
		// dotfiles such as ".secret" have no stem to keep
		ext = ""
	}
	return dir + strings.TrimSuffix(base, ext) + suffix + ext
}

// readValue returns inline when set, otherwise the trimmed content of file
func readValue(inline, file, what string) (string, error) {
	if inline != "" {
		return strings.TrimSpace(inline), nil
	}
	if file == "" {
		return "", nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", what, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// readInput returns the text to process, from --text or the --in file
func readInput(text, in string) (string, error) {
	if text != "" {
		return text, nil
	}
	if in == "" {
		return "", errNoInput
	}
	raw, err := os.ReadFile(in)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(raw), nil
}

// outputPath picks where a result is written: the explicit --out, or the
// input file name with suffix. Inline text with no --out is not written.
func outputPath(out, in, suffix string) string {
	if out != "" {
		return out
	}
	if in == "" {
		return ""
	}
	return addToFilename(in, suffix)
}

func writeOutput(path, content string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
