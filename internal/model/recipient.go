package model

import "time"

// Recipient is one imported spreadsheet row owned by a user
type Recipient struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Position  int       `json:"position"`
	Fields    Record    `json:"fields"`
	CreatedAt time.Time `json:"createdAt"`
}

// Email returns the trimmed recipient address
func (r *Recipient) Email() string {
	return r.Fields.Email()
}

// EmailKey returns the deduplication key of this recipient
func (r *Recipient) EmailKey() string {
	return r.Fields.EmailKey()
}
