package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/claimspro/internal/auth"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
)

const settingsUsage = "/settings [company|abn|gst|timeout] [value]"

// handleLoginCore handles the /login command.
func (b *Bot) handleLoginCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	password := commandArgs(update.Message)
	if password == "" {
		usage(ctx, tg, chatID, "/login <password>")
		return
	}

	ok, err := b.auth.Authenticate(ctx, password)
	if err != nil {
		replyError(ctx, tg, chatID, "login", err)
		return
	}
	if !ok {
		logger.Log.Warn().Str("user_hash", logger.HashUserID(userID)).Msg("Failed login attempt")
		reply(ctx, tg, chatID, "❌ Incorrect password.")
		return
	}

	b.syncSessionTimeout(ctx)
	b.sessions.Login(userID)
	logger.Log.Info().Str("user_hash", logger.HashUserID(userID)).Msg("Admin signed in")

	text := "✅ Signed in."
	if timeout := b.sessions.Timeout(); timeout > 0 {
		text += fmt.Sprintf(" Your session ends after %s of inactivity.", formatDuration(timeout))
	}
	reply(ctx, tg, chatID, text)
}

// handleLogoutCore handles the /logout command.
func (b *Bot) handleLogoutCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	b.sessions.Logout(update.Message.From.ID)
	reply(ctx, tg, update.Message.Chat.ID, "👋 Signed out.")
}

// handlePasswdCore handles the /passwd command.
func (b *Bot) handlePasswdCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(commandArgs(update.Message))
	if len(fields) != 2 {
		usage(ctx, tg, chatID, "/passwd <current> <new>")
		return
	}

	if err := b.auth.UpdatePassword(ctx, fields[0], fields[1]); err != nil {
		replyError(ctx, tg, chatID, "passwd", err)
		return
	}
	reply(ctx, tg, chatID, "🔑 Password changed.")
}

// handleSettingsCore handles the /settings command.
func (b *Bot) handleSettingsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		settings, err := b.auth.Initialize(ctx)
		if err != nil {
			replyError(ctx, tg, chatID, "settings", err)
			return
		}
		reply(ctx, tg, chatID, formatSettings(settings))
		return
	}

	upd, err := parseSettingsUpdate(args)
	if err != nil {
		usage(ctx, tg, chatID, settingsUsage)
		return
	}

	settings, err := b.auth.UpdateSettings(ctx, upd)
	if err != nil {
		replyError(ctx, tg, chatID, "settings", err)
		return
	}
	if upd.SessionTimeout != nil {
		b.sessions.SetTimeout(settings.SessionTimeout)
	}

	reply(ctx, tg, chatID, "✅ Settings updated.\n\n"+formatSettings(settings))
}

// parseSettingsUpdate parses "<field> <value>".
func parseSettingsUpdate(args string) (auth.SettingsUpdate, error) {
	field, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	value = strings.TrimSpace(value)
	if value == "" {
		return auth.SettingsUpdate{}, errMissingArgs
	}

	var upd auth.SettingsUpdate
	switch strings.ToLower(field) {
	case "company":
		upd.CompanyName = &value
	case "abn":
		upd.CompanyABN = &value
	case "gst":
		rate, err := ParseGSTRate(value)
		if err != nil {
			return auth.SettingsUpdate{}, err
		}
		upd.DefaultGSTRate = &rate
	case "timeout":
		timeout, err := parseTimeout(value)
		if err != nil {
			return auth.SettingsUpdate{}, err
		}
		upd.SessionTimeout = &timeout
	default:
		return auth.SettingsUpdate{}, fmt.Errorf("unknown setting %q", field)
	}
	return upd, nil
}

// parseTimeout accepts a Go duration ("90m", "2h") or a bare number of minutes.
// Zero disables expiry.
func parseTimeout(s string) (time.Duration, error) {
	if minutes, err := strconv.Atoi(s); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}
	return time.ParseDuration(s)
}

func formatSettings(s *appmodels.Settings) string {
	company := s.CompanyName
	if company == "" {
		company = "(not set)"
	}
	abn := s.CompanyABN
	if abn == "" {
		abn = "(not set)"
	}
	timeout := "never"
	if s.SessionTimeout > 0 {
		timeout = formatDuration(s.SessionTimeout)
	}

	return fmt.Sprintf(`⚙️ <b>Settings</b>

Company: %s
ABN: %s
Default GST: %s%%
Session timeout: %s`,
		escapeHTML(company),
		escapeHTML(abn),
		s.DefaultGSTRate.Mul(hundred).String(),
		timeout)
}

func formatDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return d.String()
}

// syncSessionTimeout applies the stored session timeout to the live sessions.
func (b *Bot) syncSessionTimeout(ctx context.Context) {
	settings, err := b.auth.Initialize(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to load settings for session timeout")
		return
	}
	b.sessions.SetTimeout(settings.SessionTimeout)
}

