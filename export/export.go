// Package export writes profile records in flat form to CSV, JSON or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tnicklin/leetcode_tracker/models"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for a format other than csv, json or yaml.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat normalizes s into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Write encodes records to w in format.
func Write(w io.Writer, format Format, records []models.ProfileRecord) error {
	flat := make([]models.FlatRecord, len(records))
	for i, r := range records {
		flat[i] = r.Flat()
	}

	switch format {
	case FormatCSV:
		return writeCSV(w, flat)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		if err := enc.Encode(flat); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(flat); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeCSV(w io.Writer, flat []models.FlatRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.FlatFields); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, f := range flat {
		if err := cw.Write(f.Row()); err != nil {
			return fmt.Errorf("write csv row %s: %w", f.Username, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile writes records to name.<ext> and returns the path written.
func SaveFile(name string, format Format, records []models.ProfileRecord) (string, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return "", err
	}
	path := name + "." + format.Ext()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := Write(f, format, records); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
