// Package importer turns raw spreadsheet rows into recipient records.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mailpilot/mailpilot/internal/model"
)

var (
	ErrMissingEmailColumn = errors.New("la colonne requise 'adresse mail' n'a pas été trouvée dans le fichier")
	ErrNoDataRows         = errors.New("le fichier doit comporter une ligne d'en-tête et au moins une ligne de données")
)

const (
	DefaultTrainerCivility = "M."
	DefaultWorkingDays     = 2

	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

// Options tunes normalization. Zero values fall back to the defaults above.
type Options struct {
	Now                    func() time.Time
	DefaultTrainerCivility string
	WorkingDays            int
	GenerateID             func(index int) string
}

// Result is the outcome of a normalization pass
type Result struct {
	Recipients []model.Recipient
	// Dropped counts data rows discarded for lack of an email address
	Dropped int
}

// Normalize zips each row with headers and applies import defaults.
// Rows without an email address are dropped.
func Normalize(rows [][]any, headers []string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = strings.TrimSpace(h)
	}

	emailIdx := headerIndex(cleaned, model.FieldEmail)
	if emailIdx < 0 {
		return nil, ErrMissingEmailColumn
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	hasTrainerCivility := headerIndex(cleaned, model.FieldTrainerCivility) >= 0
	dateIdx := headerIndex(cleaned, model.FieldRDVDate)

	defaultDate := FormatDate(AddWorkingDays(opts.Now(), opts.WorkingDays))

	res := &Result{}
	for index, row := range rows {
		if len(row) == 0 {
			continue
		}

		rec := model.Record{}
		for col, header := range cleaned {
			if header == "" {
				continue
			}
			var cell any
			if col < len(row) {
				cell = row[col]
			}
			rec.Set(header, cellValue(header, cell))
		}

		if !hasTrainerCivility {
			rec.Set(model.FieldTrainerCivility, opts.DefaultTrainerCivility)
		}
		if dateIdx < 0 {
			rec.Set(model.FieldRDVDate, defaultDate)
		} else if strings.TrimSpace(rec.Get(cleaned[dateIdx])) == "" {
			rec.Set(cleaned[dateIdx], defaultDate)
		}

		if rec.Email() == "" {
			res.Dropped++
			continue
		}

		res.Recipients = append(res.Recipients, model.Recipient{
			ID:       opts.GenerateID(index),
			Position: len(res.Recipients),
			Fields:   rec,
		})
	}

	return res, nil
}

// AddWorkingDays advances t by n weekdays. Saturdays and Sundays are skipped;
// there is no holiday calendar.
func AddWorkingDays(t time.Time, n int) time.Time {
	for added := 0; added < n; {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return t
}

// FormatDate renders the calendar date of t as DD/MM/YYYY, using t's own
// location.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatTime renders t as HH:MM
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// IsTimeColumn reports whether header holds times of day rather than dates
func IsTimeColumn(header string) bool {
	h := model.NormalizeHeader(header)
	return strings.Contains(h, "heure") || h == model.NormalizeHeader(model.FieldRDVEnd)
}

func cellValue(header string, cell any) any {
	switch v := cell.(type) {
	case nil:
		return ""
	case time.Time:
		if IsTimeColumn(header) {
			return FormatTime(v)
		}
		return FormatDate(v)
	case string:
		return v
	case float64, int, int64, bool:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func headerIndex(headers []string, name string) int {
	want := model.NormalizeHeader(name)
	for i, h := range headers {
		if h != "" && model.NormalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.DefaultTrainerCivility == "" {
		o.DefaultTrainerCivility = DefaultTrainerCivility
	}
	if o.WorkingDays <= 0 {
		o.WorkingDays = DefaultWorkingDays
	}
	if o.GenerateID == nil {
		o.GenerateID = LocalID
	}
	return o
}

// LocalID is the id given to rows that have not been persisted yet
func LocalID(index int) string {
	return fmt.Sprintf("local-recipient-%d", index)
}
