// Package input reads identifier lists for the CLI.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoIdentifiers is returned when a source contains no identifiers.
var ErrNoIdentifiers = errors.New("no identifiers found")

// Load reads one identifier per line from path. Blank lines and lines
// starting with '#' are ignored.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identifier file: %w", err)
	}
	defer f.Close()

	ids, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}

// Parse reads identifiers from r using the same rules as Load.
func Parse(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identifiers: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoIdentifiers
	}
	return ids, nil
}

// SplitList splits a comma or whitespace separated list as typed on the
// command line.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
