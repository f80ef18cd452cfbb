// Package dataset reads delimited catalog files into records and groups
// them into series.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"series-platform/internal/models"
)

// Options controls how a delimited file is read
type Options struct {
	Delimiter rune // field delimiter (default ',')
	Comment   rune // lines starting with this rune are ignored (0 disables)
	// DefaultKey is used for rows without a recognized key column.
	// LoadSeriesFile falls back to the file name without extension.
	DefaultKey string
}

// DefaultOptions returns comma-separated options
func DefaultOptions() Options {
	return Options{Delimiter: ','}
}

// ReadRecords reads a header row followed by data rows.
// Header names are trimmed of spaces, quotes and a UTF-8 byte order mark.
func ReadRecords(r io.Reader, opts Options) ([]models.Record, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.Trim(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), "\"")
	}

	var records []models.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		if len(row) > len(header) {
			return nil, &models.ValidationError{
				Field:   "row",
				Value:   fmt.Sprintf("%d", line),
				Message: fmt.Sprintf("row has %d fields, header has %d", len(row), len(header)),
			}
		}

		rec := make(models.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// LoadFile reads all records from a file
func LoadFile(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// FileKey derives a default series key from a file path
func FileKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
