package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpilot/mailpilot/internal/auth"
	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/logger"
)

func newSettingsService(t *testing.T, withSealer bool) (*SettingsService, *memSettings, *stubTester) {
	t.Helper()
	var sealer *auth.Sealer
	if withSealer {
		var err error
		sealer, err = auth.NewSealer(strings.Repeat("0f", 32))
		require.NoError(t, err)
	}
	store := newMemSettings()
	tester := &stubTester{res: email.Result{Success: true, Message: "Connexion réussie. E-mail de test envoyé."}}
	return NewSettingsService(store, sealer, tester, "Mail Pilot", logger.Nop()), store, tester
}

var smtpInput = SaveSettingsInput{Host: " smtp.example.com ", Port: 465, User: "me@example.com", Pass: "s3cret", Secure: true, SavePassword: true}

func TestSettingsSaveSealsPassword(t *testing.T) {
	svc, store, _ := newSettingsService(t, true)
	ctx := context.Background()

	saved, err := svc.Save(ctx, owner, smtpInput)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", saved.Host)
	assert.Empty(t, saved.Pass)
	assert.Empty(t, saved.SealedPass)

	stored := store.byOwner[owner]
	assert.NotEmpty(t, stored.SealedPass)
	assert.NotContains(t, stored.SealedPass, "s3cret")

	cfg, err := svc.TransportConfig(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, email.Config{Host: "smtp.example.com", Port: 465, User: "me@example.com", Pass: "s3cret", Secure: true}, cfg)

	cfg, err = svc.TransportConfig(ctx, owner, "override")
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Pass)
}

func TestSettingsSaveKeepsPreviousPassword(t *testing.T) {
	svc, store, _ := newSettingsService(t, true)
	ctx := context.Background()

	_, err := svc.Save(ctx, owner, smtpInput)
	require.NoError(t, err)
	sealed := store.byOwner[owner].SealedPass

	in := smtpInput
	in.Pass = ""
	in.Port = 587
	_, err = svc.Save(ctx, owner, in)
	require.NoError(t, err)
	assert.Equal(t, sealed, store.byOwner[owner].SealedPass)
	assert.Equal(t, 587, store.byOwner[owner].Port)
}

func TestSettingsSaveWithoutPasswordDropsIt(t *testing.T) {
	svc, store, _ := newSettingsService(t, true)
	ctx := context.Background()

	_, err := svc.Save(ctx, owner, smtpInput)
	require.NoError(t, err)

	in := smtpInput
	in.SavePassword = false
	_, err = svc.Save(ctx, owner, in)
	require.NoError(t, err)
	assert.Empty(t, store.byOwner[owner].SealedPass)

	_, err = svc.TransportConfig(ctx, owner, "")
	assert.ErrorIs(t, err, ErrMissingPassword)
}

func TestSettingsSaveRequiresSealer(t *testing.T) {
	svc, _, _ := newSettingsService(t, false)
	_, err := svc.Save(context.Background(), owner, smtpInput)
	assert.ErrorIs(t, err, ErrSealingUnavailable)

	in := smtpInput
	in.SavePassword = false
	_, err = svc.Save(context.Background(), owner, in)
	assert.NoError(t, err)
}

func TestSettingsValidation(t *testing.T) {
	svc, _, _ := newSettingsService(t, true)
	tests := []struct {
		name string
		in   SaveSettingsInput
	}{
		{"no host", SaveSettingsInput{Port: 25, User: "u"}},
		{"bad port", SaveSettingsInput{Host: "h", Port: 70000, User: "u"}},
		{"no user", SaveSettingsInput{Host: "h", Port: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(context.Background(), owner, tt.in)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestSettingsMissing(t *testing.T) {
	svc, _, _ := newSettingsService(t, true)
	_, err := svc.Get(context.Background(), owner)
	assert.ErrorIs(t, err, ErrMissingTransportConfig)
	_, err = svc.TransportConfig(context.Background(), owner, "pw")
	assert.ErrorIs(t, err, ErrMissingTransportConfig)
}

func TestSettingsTestConnection(t *testing.T) {
	svc, _, tester := newSettingsService(t, true)
	ctx := context.Background()
	_, err := svc.Save(ctx, owner, smtpInput)
	require.NoError(t, err)

	res, err := svc.Test(ctx, owner, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "s3cret", tester.got.Pass)
	assert.Equal(t, "me@example.com", tester.got.User)
}
