// Package spreadsheet reads the first sheet of an uploaded workbook into a
// header row and raw data rows.
//
// Cells come back as string, float64, bool or time.Time. Date-formatted
// numeric cells are converted to time.Time in UTC, keeping the calendar
// components stored in the file.
package spreadsheet

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/mailpilot/mailpilot/internal/model"
)

var (
	ErrNoHeaderRow       = errors.New("spreadsheet has no header row")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrCorruptFile       = errors.New("spreadsheet could not be parsed")
)

// Sheet is the tabular content of one worksheet
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Read parses r according to the extension of filename
func Read(r io.Reader, filename string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv", ".txt":
		return ReadCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Supported reports whether filename has an extension Read understands
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".csv", ".txt":
		return true
	}
	return false
}

func newSheet(name string, table [][]any) (*Sheet, error) {
	if len(table) == 0 {
		return nil, ErrNoHeaderRow
	}

	headers := make([]string, len(table[0]))
	nonEmpty := false
	for i, cell := range table[0] {
		headers[i] = strings.TrimSpace(model.FormatValue(cell))
		if headers[i] != "" {
			nonEmpty = true
		}
	}
	if !nonEmpty {
		return nil, ErrNoHeaderRow
	}

	return &Sheet{Name: name, Headers: headers, Rows: table[1:]}, nil
}
