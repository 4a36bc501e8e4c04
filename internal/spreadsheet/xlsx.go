package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// builtin number formats that render as dates or times
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// ReadXLSX reads the first worksheet of an Office Open XML workbook
func ReadXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeaderRow
	}
	name := sheets[0]

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	raw, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}

	styles := map[int]bool{}
	table := make([][]any, len(raw))
	for i, row := range raw {
		cells := make([]any, len(row))
		for j, value := range row {
			cells[j] = xlsxCell(f, name, j+1, i+1, value, date1904, styles)
		}
		table[i] = cells
	}

	return newSheet(name, table)
}

func xlsxCell(f *excelize.File, sheet string, col, row int, value string, date1904 bool, styles map[int]bool) any {
	if value == "" {
		return ""
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return value
	}

	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return value
	}

	switch typ {
	case excelize.CellTypeBool:
		return value == "1" || strings.EqualFold(value, "true")
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return value
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}

	if typ == excelize.CellTypeDate || isDateStyled(f, sheet, axis, styles) {
		if t, err := excelize.ExcelDateToTime(n, date1904); err == nil {
			return t
		}
	}
	return n
}

func isDateStyled(f *excelize.File, sheet, axis string, cache map[int]bool) bool {
	id, err := f.GetCellStyle(sheet, axis)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := cache[id]; ok {
		return v
	}

	style, err := f.GetStyle(id)
	isDate := false
	if err == nil && style != nil {
		isDate = builtinDateFormats[style.NumFmt]
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	cache[id] = isDate
	return isDate
}

// isDateFormatCode looks for date or time tokens outside quoted literals and
// bracketed sections such as colors or locales.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	stripped := b.String()
	if stripped == "general" {
		return false
	}
	return strings.ContainsAny(stripped, "ydhms")
}
