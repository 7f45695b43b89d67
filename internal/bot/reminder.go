package bot

import (
	"context"
	"time"

	tgbot "github.com/go-telegram/bot"

	"gitlab.com/yelinaung/claimspro/internal/auth"
	"gitlab.com/yelinaung/claimspro/internal/logger"
)

// NotifyTimeout is the maximum time a single expiry notice can take.
const NotifyTimeout = 10 * time.Second

// startSessionExpiryLoop ends idle admin sessions and tells each user
// their session has expired. It returns when ctx is done.
func (b *Bot) startSessionExpiryLoop(ctx context.Context) {
	logger.Log.Info().
		Dur("timeout", b.sessions.Timeout()).
		Msg("Session expiry loop started")

	b.sessions.Run(ctx, auth.SweepInterval, func(userID int64) {
		b.notifySessionExpired(ctx, userID)
	})

	logger.Log.Info().Msg("Session expiry loop stopped")
}

// notifySessionExpired sends the expiry notice to a private chat, whose ID
// is the user ID.
func (b *Bot) notifySessionExpired(ctx context.Context, userID int64) {
	if b.messageSender == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, NotifyTimeout)
	defer cancel()

	_, err := b.messageSender.SendMessage(sendCtx, &tgbot.SendMessageParams{
		ChatID: userID,
		Text:   "⏰ Your session expired after a period of inactivity. Sign in again with /login.",
	})
	if err != nil {
		logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(userID)).Msg("Failed to send session expiry notice")
		return
	}
	logger.Log.Debug().Str("user_hash", logger.HashUserID(userID)).Msg("Sent session expiry notice")
}
