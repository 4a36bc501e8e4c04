package model

import "time"

// SMTPSettings are the per-owner mail transport settings
type SMTPSettings struct {
	OwnerID      string    `json:"ownerId"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	User         string    `json:"user"`
	Pass         string    `json:"pass,omitempty"`
	SealedPass   string    `json:"-"`
	Secure       bool      `json:"secure"`
	SavePassword bool      `json:"savePassword"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsConfigured reports whether a send can be attempted with these settings
func (s *SMTPSettings) IsConfigured() bool {
	return s != nil && s.Host != "" && s.Port > 0
}

// HasSavedPassword reports whether a sealed password is stored
func (s *SMTPSettings) HasSavedPassword() bool {
	return s != nil && s.SealedPass != ""
}

// Redacted returns a copy without any password material
func (s SMTPSettings) Redacted() SMTPSettings {
	s.Pass = ""
	s.SealedPass = ""
	return s
}
