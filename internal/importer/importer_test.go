package importer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/mailpilot/internal/importer"
	"github.com/mailpilot/mailpilot/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedNow(s string) importer.Options {
	return importer.Options{Now: func() time.Time { return day(s) }}
}

func TestAddWorkingDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2025-10-15", 2, "2025-10-17"}, // Wednesday -> Friday
		{"2025-10-16", 2, "2025-10-20"}, // Thursday -> Monday
		{"2025-10-17", 2, "2025-10-21"}, // Friday -> Tuesday
		{"2025-10-18", 2, "2025-10-21"}, // Saturday -> Tuesday
		{"2025-10-19", 1, "2025-10-20"}, // Sunday -> Monday
		{"2025-10-17", 0, "2025-10-17"},
	}

	for _, tt := range tests {
		got := importer.AddWorkingDays(day(tt.from), tt.n)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), "%s + %d", tt.from, tt.n)
	}
}

func TestNormalizeDefaultDateOnFriday(t *testing.T) {
	t.Parallel()

	res, err := importer.Normalize(
		[][]any{{"a@x.com", "Durand"}},
		[]string{"adresse mail", "Nom"},
		fixedNow("2025-10-17"),
	)
	require.NoError(t, err)
	require.Len(t, res.Recipients, 1)
	assert.Equal(t, "21/10/2025", res.Recipients[0].Fields.Get("Date du RDV"))
}

func TestNormalizeFillsEmptyDateInPlace(t *testing.T) {
	t.Parallel()

	res, err := importer.Normalize(
		[][]any{{"a@x.com", ""}, {"b@x.com", "05/11/2025"}},
		[]string{"adresse mail", "date du rdv"},
		fixedNow("2025-10-15"),
	)
	require.NoError(t, err)
	require.Len(t, res.Recipients, 2)

	first := res.Recipients[0].Fields
	assert.Equal(t, 3, first.Len())
	assert.Equal(t, "17/10/2025", first.Get("Date du RDV"))
	assert.Equal(t, "date du rdv", first.Fields()[1].Header)

	assert.Equal(t, "05/11/2025", res.Recipients[1].Fields.Get("Date du RDV"))
}

func TestNormalizeTrainerCivilityDefault(t *testing.T) {
	t.Parallel()

	res, err := importer.Normalize([][]any{{"a@x.com"}}, []string{"adresse mail"}, fixedNow("2025-10-15"))
	require.NoError(t, err)
	assert.Equal(t, "M.", res.Recipients[0].Fields.Get("Civilité Formateur"))

	opts := fixedNow("2025-10-15")
	opts.DefaultTrainerCivility = "Mme"
	res, err = importer.Normalize([][]any{{"a@x.com"}}, []string{"adresse mail"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "Mme", res.Recipients[0].Fields.Get("Civilité Formateur"))
}

func TestNormalizeKeepsExistingTrainerColumn(t *testing.T) {
	t.Parallel()

	res, err := importer.Normalize(
		[][]any{{"a@x.com", ""}, {"b@x.com", "Mme"}},
		[]string{"adresse mail", "Civilité Formateur"},
		fixedNow("2025-10-15"),
	)
	require.NoError(t, err)
	assert.Equal(t, "", res.Recipients[0].Fields.Get("Civilité Formateur"))
	assert.Equal(t, "Mme", res.Recipients[1].Fields.Get("Civilité Formateur"))
}

func TestNormalizeDropsRowsWithoutEmail(t *testing.T) {
	t.Parallel()

	res, err := importer.Normalize(
		[][]any{{"a@x.com", "A"}, {"  ", "B"}, {}, {nil, "C"}, {"d@x.com"}},
		[]string{"Adresse Mail", "Nom"},
		fixedNow("2025-10-15"),
	)
	require.NoError(t, err)
	require.Len(t, res.Recipients, 2)
	assert.Equal(t, 2, res.Dropped)

	assert.Equal(t, "local-recipient-0", res.Recipients[0].ID)
	assert.Equal(t, "local-recipient-4", res.Recipients[1].ID)
	assert.Equal(t, 1, res.Recipients[1].Position)
	assert.Equal(t, "", res.Recipients[1].Fields.Get("Nom"))
}

func TestNormalizeSkipsBlankHeaders(t *testing.T) {
	t.Parallel()

	res, err := importer.Normalize(
		[][]any{{"a@x.com", "ignored", "Durand"}},
		[]string{" adresse mail ", "  ", "Nom"},
		fixedNow("2025-10-15"),
	)
	require.NoError(t, err)

	var headers []string
	for _, f := range res.Recipients[0].Fields.Fields() {
		headers = append(headers, f.Header)
	}
	assert.Equal(t, []string{"adresse mail", "Nom", "Civilité Formateur", "Date du RDV"}, headers)
}

func TestNormalizeFormatsDateAndTimeCells(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	start := time.Date(1899, 12, 30, 9, 5, 0, 0, time.UTC)
	end := time.Date(1899, 12, 30, 10, 30, 0, 0, time.UTC)

	res, err := importer.Normalize(
		[][]any{{"a@x.com", date, start, end, float64(3)}},
		[]string{"adresse mail", "Date du RDV", "Heure RDV", "Fin RDV", "Salle"},
		fixedNow("2025-10-15"),
	)
	require.NoError(t, err)

	rec := res.Recipients[0].Fields
	assert.Equal(t, "03/11/2025", rec.Get("Date du RDV"))
	assert.Equal(t, "09:05", rec.Get("Heure RDV"))
	assert.Equal(t, "10:30", rec.Get("Fin RDV"))
	assert.Equal(t, "3", rec.Get("Salle"))
}

func TestNormalizeDateIgnoresLocalTimezone(t *testing.T) {
	t.Parallel()

	// Late evening in a negative offset is still the same calendar day.
	loc := time.FixedZone("UTC-5", -5*3600)
	cell := time.Date(2025, 11, 3, 23, 30, 0, 0, loc)

	res, err := importer.Normalize(
		[][]any{{"a@x.com", cell}},
		[]string{"adresse mail", "Date du RDV"},
		fixedNow("2025-10-15"),
	)
	require.NoError(t, err)
	assert.Equal(t, "03/11/2025", res.Recipients[0].Fields.Get("Date du RDV"))
}

func TestNormalizeErrors(t *testing.T) {
	t.Parallel()

	_, err := importer.Normalize([][]any{{"x"}}, []string{"Nom"}, importer.Options{})
	assert.ErrorIs(t, err, importer.ErrMissingEmailColumn)

	_, err = importer.Normalize(nil, []string{"adresse mail"}, importer.Options{})
	assert.ErrorIs(t, err, importer.ErrNoDataRows)
}

func TestNormalizeCustomIDs(t *testing.T) {
	t.Parallel()

	opts := fixedNow("2025-10-15")
	n := 0
	opts.GenerateID = func(int) string {
		n++
		return "id-" + model.FormatValue(n)
	}

	res, err := importer.Normalize([][]any{{"a@x.com"}, {"b@x.com"}}, []string{"adresse mail"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "id-1", res.Recipients[0].ID)
	assert.Equal(t, "id-2", res.Recipients[1].ID)
}

func TestIsTimeColumn(t *testing.T) {
	t.Parallel()

	assert.True(t, importer.IsTimeColumn("Heure RDV"))
	assert.True(t, importer.IsTimeColumn("heure de fin"))
	assert.True(t, importer.IsTimeColumn(" Fin RDV "))
	assert.False(t, importer.IsTimeColumn("Date du RDV"))
	assert.False(t, importer.IsTimeColumn("Fin RDV prévue"))
}
