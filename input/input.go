// Package input collects raw usernames from the command line and from files.
// Names are returned as given; validation happens in the tracker. Blank
// entries in a list or file are separators, not usernames, and are dropped.
// Callers deduplicate with Merge.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseList splits a comma separated list and trims each entry. Empty
// entries are dropped.
func ParseList(list string) []string {
	names := []string{}
	for _, part := range strings.Split(list, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Read returns one name per non-blank line of r. Lines starting with # are
// comments.
func Read(r io.Reader) ([]string, error) {
	names := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read usernames: %w", err)
	}
	return names, nil
}

// ReadFile reads line delimited names from path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open usernames file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Merge concatenates name lists, dropping exact duplicates while keeping the
// first occurrence.
func Merge(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
