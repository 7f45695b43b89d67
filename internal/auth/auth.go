// Package auth manages the single admin credential and idle-timed sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// DefaultCost is the bcrypt work factor for stored password hashes.
const DefaultCost = 12

// MinPasswordLength is the shortest password UpdatePassword accepts.
const MinPasswordLength = 6

// ErrInvalidPassword is returned when the supplied password does not match.
var ErrInvalidPassword = errors.New("invalid password")

// SettingsStore persists the settings singleton.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
}

// Defaults seed the settings when they are first created.
type Defaults struct {
	Password       string
	CompanyName    string
	CompanyABN     string
	DefaultGSTRate decimal.Decimal
	SessionTimeout time.Duration
}

// Manager verifies and changes the admin password and edits settings.
type Manager struct {
	store    SettingsStore
	defaults Defaults
	cost     int
}

// Option configures a Manager.
type Option func(*Manager)

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(m *Manager) {
		m.cost = cost
	}
}

// NewManager creates a Manager.
func NewManager(store SettingsStore, defaults Defaults, opts ...Option) *Manager {
	m := &Manager{store: store, defaults: defaults, cost: DefaultCost}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize returns the settings, creating them with the default password if absent.
func (m *Manager) Initialize(ctx context.Context) (*models.Settings, error) {
	settings, err := m.store.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(m.defaults.Password), m.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash default password: %w", err)
	}

	rate := m.defaults.DefaultGSTRate
	if rate.IsZero() {
		rate = models.DefaultGSTRate
	}
	settings = &models.Settings{
		CompanyName:       m.defaults.CompanyName,
		CompanyABN:        m.defaults.CompanyABN,
		DefaultGSTRate:    rate,
		AdminPasswordHash: string(hash),
		SessionTimeout:    m.defaults.SessionTimeout,
	}
	if err := m.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}

	logger.Log.Info().Msg("Settings initialized with default admin password")
	return settings, nil
}

// Authenticate reports whether password matches the admin credential.
func (m *Manager) Authenticate(ctx context.Context, password string) (bool, error) {
	settings, err := m.Initialize(ctx)
	if err != nil {
		return false, err
	}
	return m.matches(settings, password), nil
}

// UpdatePassword replaces the admin password after checking the current one.
func (m *Manager) UpdatePassword(ctx context.Context, current, next string) error {
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	}

	settings, err := m.Initialize(ctx)
	if err != nil {
		return err
	}
	if !m.matches(settings, current) {
		return ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), m.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	settings.AdminPasswordHash = string(hash)
	if err := m.store.SaveSettings(ctx, settings); err != nil {
		return err
	}

	logger.Log.Info().Msg("Admin password changed")
	return nil
}

// ResetPassword sets the admin password without checking the current one.
// Intended for operators with direct access to the deployment.
func (m *Manager) ResetPassword(ctx context.Context, next string) error {
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	}

	settings, err := m.Initialize(ctx)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), m.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	settings.AdminPasswordHash = string(hash)
	return m.store.SaveSettings(ctx, settings)
}

// SettingsUpdate holds the settings fields to change. Nil fields are left alone.
type SettingsUpdate struct {
	CompanyName    *string
	CompanyABN     *string
	DefaultGSTRate *decimal.Decimal
	SessionTimeout *time.Duration
}

// UpdateSettings applies upd to the stored settings.
func (m *Manager) UpdateSettings(ctx context.Context, upd SettingsUpdate) (*models.Settings, error) {
	if upd.DefaultGSTRate != nil {
		if err := models.CheckGSTRate(*upd.DefaultGSTRate); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
		}
	}
	if upd.SessionTimeout != nil && *upd.SessionTimeout < 0 {
		return nil, fmt.Errorf("%w: session timeout must not be negative", models.ErrValidation)
	}

	settings, err := m.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	if upd.CompanyName != nil {
		settings.CompanyName = strings.TrimSpace(*upd.CompanyName)
	}
	if upd.CompanyABN != nil {
		settings.CompanyABN = strings.TrimSpace(*upd.CompanyABN)
	}
	if upd.DefaultGSTRate != nil {
		settings.DefaultGSTRate = *upd.DefaultGSTRate
	}
	if upd.SessionTimeout != nil {
		settings.SessionTimeout = *upd.SessionTimeout
	}

	if err := m.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (m *Manager) matches(settings *models.Settings, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(settings.AdminPasswordHash), []byte(password)) == nil
}
