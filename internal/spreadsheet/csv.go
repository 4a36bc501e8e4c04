package spreadsheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a delimited text export. The delimiter is ';' when the header
// line has more semicolons than commas, which is what French spreadsheet
// software writes by default. All cells are strings.
func ReadCSV(r io.Reader) (*Sheet, error) {
	br := bufio.NewReader(r)

	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	firstLine, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if i := bytes.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(string(firstLine))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	table := make([][]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		table = append(table, row)
	}

	return newSheet("csv", table)
}

func detectDelimiter(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	if strings.Count(header, "\t") > strings.Count(header, ",") {
		return '\t'
	}
	return ','
}
