// Package ai drafts appointment confirmation messages with a language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDisabled   = errors.New("message generation is not configured")
	ErrEmptyReply = errors.New("model returned an empty message")
)

// ConfirmationInput describes the event a message is drafted for
type ConfirmationInput struct {
	RecipientName string `json:"recipientName"`
	EventName     string `json:"eventName"`
	EventType     string `json:"eventType"`
	EventDate     string `json:"eventDate"`
	TrainerName   string `json:"trainerName"`
}

// Generator drafts confirmation message bodies.
// Implementations must be safe to call concurrently.
type Generator interface {
	GenerateConfirmation(ctx context.Context, in ConfirmationInput) (string, error)
}

// Disabled is the Generator used when no provider is configured
type Disabled struct{}

// GenerateConfirmation always returns ErrDisabled
func (Disabled) GenerateConfirmation(context.Context, ConfirmationInput) (string, error) {
	return "", ErrDisabled
}

const systemPrompt = "You are an AI assistant designed to generate personalized confirmation messages for various events. " +
	"Based on the event details and recipient information provided, create a confirmation message that sounds natural and avoids being too generic."

func userPrompt(in ConfirmationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event Type: %s\n", in.EventType)
	fmt.Fprintf(&b, "Event Name: %s\n", in.EventName)
	fmt.Fprintf(&b, "Recipient Name: %s\n", in.RecipientName)
	fmt.Fprintf(&b, "Event Date: %s\n", in.EventDate)
	fmt.Fprintf(&b, "Trainer Name: %s\n\n", in.TrainerName)
	b.WriteString("Generate a confirmation message that includes all the relevant details and sounds personalized. ")
	b.WriteString("The confirmation message should contain a polite tone and helpful information. ")
	b.WriteString("Do not include a greeting or signature. Be concise.")
	return b.String()
}
