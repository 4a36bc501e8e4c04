package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailpilot "github.com/mailpilot/mailpilot/sdk/go"
)

func TestConfirm(t *testing.T) {
	counts := mailpilot.Counts{New: 2, AlreadySent: 3, Invalid: 1, Total: 6}

	tests := []struct {
		name        string
		counts      mailpilot.Counts
		force       bool
		yes         bool
		input       string
		wantForce   bool
		wantProceed bool
	}{
		{"yes skips prompts", counts, false, true, "", false, true},
		{"decline resend then accept", counts, false, false, "n\ny\n", false, true},
		{"accept resend in french", counts, false, false, "oui\no\n", true, true},
		{"decline send", counts, false, false, "n\nn\n", false, false},
		{"force does not ask about resend", counts, true, false, "y\n", true, true},
		{"nothing new", mailpilot.Counts{AlreadySent: 1, Total: 1}, false, false, "n\n", false, false},
		{"nothing new with yes", mailpilot.Counts{Invalid: 2, Total: 2}, false, true, "", false, false},
		{"eof declines", counts, false, false, "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			force, proceed, err := confirm(tt.counts, tt.force, tt.yes, strings.NewReader(tt.input), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.wantForce, force)
			assert.Equal(t, tt.wantProceed, proceed)
		})
	}
}

func TestConfirmPrintsCounts(t *testing.T) {
	var out bytes.Buffer
	_, _, err := confirm(mailpilot.Counts{New: 1, AlreadySent: 1, Invalid: 1, Total: 3}, false, true, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "3 recipients: 1 new, 1 already sent, 1 invalid\n", out.String())
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, &mailpilot.SendResult{
		SendSummary: mailpilot.SendSummary{Sent: 1, Skipped: 2, Invalid: 1, AlreadySent: 1, Total: 3},
		Cancelled:   true,
	})
	assert.Contains(t, out.String(), "Batch cancelled")
	assert.Contains(t, out.String(), "Sent 1, skipped 2 (1 invalid, 1 already sent), failed 0, total 3")
}
