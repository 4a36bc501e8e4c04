package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DeliveryStatus is the terminal outcome of one dispatch attempt
type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "Delivered"
	DeliveryStatusFailed    DeliveryStatus = "Failed"
)

// Beneficiary is the recipient snapshot captured at send time
type Beneficiary struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Initials string `json:"initials"`
}

// DeliveryLog is an immutable history entry for one delivery attempt
type DeliveryLog struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	BatchID     string         `json:"batchId"`
	EmailKey    string         `json:"emailKey"`
	Beneficiary Beneficiary    `json:"beneficiary"`
	Trainer     string         `json:"trainer"`
	Date        string         `json:"date"`
	Status      DeliveryStatus `json:"status"`
	Message     string         `json:"message,omitempty"`
	SentAt      time.Time      `json:"sentAt"`
}

// DeliveryStats aggregates an owner's history
type DeliveryStats struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Initials derives up to two uppercase initials from a display name.
// An empty name yields "?".
func Initials(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "?"
	}
	var b strings.Builder
	for _, part := range strings.Split(name, " ") {
		if part == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(r)
	}
	initials := []rune(strings.ToUpper(b.String()))
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return string(initials)
}

// NewDeliveryLog snapshots a recipient record into a history entry
func NewDeliveryLog(id, ownerID, batchID string, rec Record, status DeliveryStatus, message string, sentAt time.Time) DeliveryLog {
	name := rec.Get(FieldBeneficiaryName)
	return DeliveryLog{
		ID:       id,
		OwnerID:  ownerID,
		BatchID:  batchID,
		EmailKey: rec.EmailKey(),
		Beneficiary: Beneficiary{
			Name:     name,
			Email:    rec.Email(),
			Initials: Initials(name),
		},
		Trainer: rec.Get(FieldTrainerName),
		Date:    rec.Get(FieldRDVDate) + " de " + rec.Get(FieldRDVTime) + " à " + rec.Get(FieldRDVEnd),
		Status:  status,
		Message: message,
		SentAt:  sentAt.UTC(),
	}
}
