package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/repository"
)

func newTestManager(t *testing.T) (*Manager, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	m := NewManager(store, Defaults{Password: "admin123", CompanyName: "Hardhat"}, WithCost(bcrypt.MinCost))
	return m, store
}

func TestManager_Initialize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestManager(t)

	settings, err := m.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, "Hardhat", settings.CompanyName)
	require.True(t, settings.DefaultGSTRate.Equal(decimal.NewFromFloat(0.1)))
	require.Zero(t, settings.SessionTimeout)
	require.NotEqual(t, "admin123", settings.AdminPasswordHash)

	stored, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, settings.AdminPasswordHash, stored.AdminPasswordHash)

	again, err := m.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, settings.AdminPasswordHash, again.AdminPasswordHash, "existing settings are kept")
}

func TestManager_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t)

	ok, err := m.Authenticate(ctx, "admin123")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Authenticate(ctx, "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManager_UpdatePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t)

	err := m.UpdatePassword(ctx, "nope", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidPassword)

	err = m.UpdatePassword(ctx, "admin123", "short")
	require.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, m.UpdatePassword(ctx, "admin123", "s3cret-pass"))

	ok, err := m.Authenticate(ctx, "admin123")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = m.Authenticate(ctx, "s3cret-pass")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestManager_ResetPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t)

	require.NoError(t, m.ResetPassword(ctx, "operator-set"))
	ok, err := m.Authenticate(ctx, "operator-set")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestManager_UpdateSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t)

	name := "  Hardhat Pty Ltd "
	rate := decimal.NewFromFloat(0.15)
	timeout := 30 * time.Minute
	settings, err := m.UpdateSettings(ctx, SettingsUpdate{CompanyName: &name, DefaultGSTRate: &rate, SessionTimeout: &timeout})
	require.NoError(t, err)
	require.Equal(t, "Hardhat Pty Ltd", settings.CompanyName)
	require.True(t, settings.DefaultGSTRate.Equal(rate))
	require.Equal(t, timeout, settings.SessionTimeout)

	bad := decimal.NewFromInt(2)
	_, err = m.UpdateSettings(ctx, SettingsUpdate{DefaultGSTRate: &bad})
	require.ErrorIs(t, err, models.ErrValidation)

	tooFine := decimal.RequireFromString("0.12345")
	_, err = m.UpdateSettings(ctx, SettingsUpdate{DefaultGSTRate: &tooFine})
	require.ErrorIs(t, err, models.ErrValidation)

	negative := -time.Second
	_, err = m.UpdateSettings(ctx, SettingsUpdate{SessionTimeout: &negative})
	require.ErrorIs(t, err, models.ErrValidation)
}

type brokenStore struct{}

func (brokenStore) GetSettings(context.Context) (*models.Settings, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) SaveSettings(context.Context, *models.Settings) error {
	return nil
}

func TestManager_StoreFailure(t *testing.T) {
	t.Parallel()
	m := NewManager(brokenStore{}, Defaults{Password: "admin123"}, WithCost(bcrypt.MinCost))

	ok, err := m.Authenticate(context.Background(), "admin123")
	require.Error(t, err)
	require.False(t, ok)
}
