// Package placeholder renders {{ key }} templates against a recipient record.
//
// Keys resolve to record fields case-insensitively. Two keys get grammatical
// treatment: {{Civilité}} expands an abbreviated honorific into the full word,
// and the literal {{formateur/formatrice}} agrees with the trainer's civility.
// Unknown keys are left in place so typos stay visible in previews.
package placeholder

import (
	"regexp"
	"strings"

	"github.com/mailpilot/mailpilot/internal/model"
)

// TrainerTitleKey is matched case-sensitively so it does not collide with a
// "Formateur/Formatrice" column holding the trainer's name.
const TrainerTitleKey = "formateur/formatrice"

var placeholderRegex = regexp.MustCompile(`\{\{([^}]+)\}\}`)

var civilities = map[string]string{
	"mr":   "monsieur",
	"m.":   "monsieur",
	"mme":  "madame",
	"mme.": "madame",
	"mlle": "mademoiselle",
}

var civilityKey = model.NormalizeHeader(model.FieldCivility)

var lineBreaks = strings.NewReplacer("\r\n", "<br />", "\n", "<br />")

// Render substitutes every placeholder in text. A nil record returns text
// unchanged. Substituted values are never scanned again.
func Render(text string, rec *model.Record) string {
	if rec == nil {
		return text
	}

	return placeholderRegex.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])

		if key == TrainerTitleKey {
			return trainerTitle(rec)
		}

		field, ok := rec.Lookup(key)
		if !ok {
			return match
		}
		value := model.FormatValue(field.Value)

		if model.NormalizeHeader(key) == civilityKey {
			if word, ok := civilities[strings.ToLower(strings.TrimSpace(value))]; ok {
				return word
			}
		}
		return value
	})
}

// RenderHTML renders text and converts newlines into HTML line breaks
func RenderHTML(text string, rec *model.Record) string {
	return lineBreaks.Replace(Render(text, rec))
}

func trainerTitle(rec *model.Record) string {
	c := strings.ToLower(strings.TrimSpace(rec.Get(model.FieldTrainerCivility)))
	if c == "mme" || c == "mme." {
		return "formatrice"
	}
	return "formateur"
}
