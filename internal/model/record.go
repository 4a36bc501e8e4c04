package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Well-known spreadsheet columns
const (
	FieldEmail           = "adresse mail"
	FieldRDVDate         = "Date du RDV"
	FieldRDVTime         = "Heure RDV"
	FieldRDVEnd          = "Fin RDV"
	FieldCivility        = "Civilité"
	FieldTrainerCivility = "Civilité Formateur"
	FieldTrainerName     = "Formateur/Formatrice"
	FieldBeneficiaryName = "Bénéficiare"
)

// Field is one column of a recipient row
type Field struct {
	Header string
	Value  any
}

// Record is an insertion-ordered set of spreadsheet fields. Headers keep their
// original casing; lookups through Get are case-insensitive.
type Record struct {
	fields []Field
}

// NewRecord builds a record from header/value pairs, in order
func NewRecord(fields ...Field) Record {
	r := Record{}
	for _, f := range fields {
		r.Set(f.Header, f.Value)
	}
	return r
}

// Fields returns a copy of the fields in insertion order
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields
func (r Record) Len() int {
	return len(r.fields)
}

// Set replaces the value of an exactly matching header or appends a new field
func (r *Record) Set(header string, value any) {
	for i := range r.fields {
		if r.fields[i].Header == header {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Header: header, Value: value})
}

// NormalizeHeader folds a header for comparison: trimmed, lowercased, NFC.
// Spreadsheets saved on some platforms carry decomposed accents.
func NormalizeHeader(h string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(h)))
}

// Lookup finds the first field whose header matches key case-insensitively,
// both sides trimmed.
func (r Record) Lookup(key string) (Field, bool) {
	want := NormalizeHeader(key)
	for _, f := range r.fields {
		if NormalizeHeader(f.Header) == want {
			return f, true
		}
	}
	return Field{}, false
}

// HasHeader reports whether a field with this header exists (case-insensitive)
func (r Record) HasHeader(key string) bool {
	_, ok := r.Lookup(key)
	return ok
}

// Get returns the string form of the field matching key, or "" when absent
func (r Record) Get(key string) string {
	f, ok := r.Lookup(key)
	if !ok {
		return ""
	}
	return FormatValue(f.Value)
}

// Email returns the trimmed recipient address
func (r Record) Email() string {
	return strings.TrimSpace(r.Get(FieldEmail))
}

// EmailKey is the deduplication identity: address + "_" + appointment date
func (r Record) EmailKey() string {
	return EmailKey(r.Email(), r.Get(FieldRDVDate))
}

// EmailKey composes a deduplication key
func EmailKey(email, rdvDate string) string {
	return email + "_" + rdvDate
}

// FormatValue renders a scalar cell value the way it is shown in templates
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// MarshalJSON encodes the record as a JSON object with keys in insertion order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Header)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	r.fields = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected string key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if n, ok := value.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				value = f
			} else {
				value = n.String()
			}
		}
		r.fields = append(r.fields, Field{Header: key, Value: value})
	}

	_, err = dec.Token()
	return err
}
