package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/claimspro/internal/logger"
	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
)

const (
	callbackStatusPrefix         = "st:"
	callbackDeleteClaimPrefix    = "dc:"
	callbackDeleteContractPrefix = "dk:"
	callbackCancel               = "cancel"

	confirmDeleteText = "🗑 Yes, delete"
	cancelText        = "⬅️ Cancel"
)

func statusCallbackData(claimID string, status appmodels.ClaimStatus) string {
	return callbackStatusPrefix + claimID + ":" + string(status)
}

// parseStatusCallback splits "st:<claim id>:<status>".
func parseStatusCallback(data string) (string, appmodels.ClaimStatus, bool) {
	rest, ok := strings.CutPrefix(data, callbackStatusPrefix)
	if !ok {
		return "", "", false
	}
	claimID, statusStr, ok := strings.Cut(rest, ":")
	if !ok || claimID == "" {
		return "", "", false
	}
	status := appmodels.ClaimStatus(statusStr)
	if !status.Valid() {
		return "", "", false
	}
	return claimID, status, true
}

// sendConfirm asks a yes/cancel question whose yes button sends confirmData.
func sendConfirm(ctx context.Context, tg TelegramAPI, chatID int64, text, confirmData string) {
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: confirmDeleteText, CallbackData: confirmData},
				{Text: cancelText, CallbackData: callbackCancel},
			},
		},
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send confirmation")
	}
}

// callbackMessage returns the chat and message a callback button belongs to.
func callbackMessage(update *models.Update) (int64, int, bool) {
	msg := update.CallbackQuery.Message.Message
	if msg == nil {
		return 0, 0, false
	}
	return msg.Chat.ID, msg.ID, true
}

func editCallbackText(ctx context.Context, tg TelegramAPI, chatID int64, messageID int, text string) {
	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to edit callback message")
	}
}

// handleStatusCallback handles the status transition buttons on a claim.
func (b *Bot) handleStatusCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStatusCallbackCore(ctx, tgBot, update)
}

// handleStatusCallbackCore is the testable implementation of handleStatusCallback.
func (b *Bot) handleStatusCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	claimID, status, ok := parseStatusCallback(update.CallbackQuery.Data)
	if !ok {
		logger.Log.Warn().Str("data", update.CallbackQuery.Data).Msg("Malformed status callback")
		return
	}
	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}

	claim, err := b.claims.SetStatus(ctx, claimID, status)
	if err != nil {
		editCallbackText(ctx, tg, chatID, messageID, userErrorText(err))
		return
	}
	contract, err := b.claims.GetContract(ctx, claim.ContractID)
	if err != nil {
		editCallbackText(ctx, tg, chatID, messageID, userErrorText(err))
		return
	}

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        formatClaim(contract, claim),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: claimKeyboard(claim),
	})
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to refresh claim after status change")
	}
}

// handleDeleteClaimCallback handles delete confirmation for a claim.
func (b *Bot) handleDeleteClaimCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteClaimCallbackCore(ctx, tgBot, update)
}

// handleDeleteClaimCallbackCore is the testable implementation of handleDeleteClaimCallback.
func (b *Bot) handleDeleteClaimCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	claimID := strings.TrimPrefix(update.CallbackQuery.Data, callbackDeleteClaimPrefix)
	chatID, messageID, ok := callbackMessage(update)
	if !ok || claimID == "" {
		return
	}

	claim, err := b.claims.GetClaim(ctx, claimID)
	if err != nil {
		editCallbackText(ctx, tg, chatID, messageID, userErrorText(err))
		return
	}
	if err := b.claims.RemoveClaim(ctx, claimID); err != nil {
		editCallbackText(ctx, tg, chatID, messageID, userErrorText(err))
		return
	}

	editCallbackText(ctx, tg, chatID, messageID, fmt.Sprintf("🗑 Claim #%03d deleted.", claim.Number))
}

// handleDeleteContractCallback handles delete confirmation for a contract.
func (b *Bot) handleDeleteContractCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteContractCallbackCore(ctx, tgBot, update)
}

// handleDeleteContractCallbackCore is the testable implementation of handleDeleteContractCallback.
func (b *Bot) handleDeleteContractCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	contractID := strings.TrimPrefix(update.CallbackQuery.Data, callbackDeleteContractPrefix)
	chatID, messageID, ok := callbackMessage(update)
	if !ok || contractID == "" {
		return
	}

	contract, err := b.claims.GetContract(ctx, contractID)
	if err != nil {
		editCallbackText(ctx, tg, chatID, messageID, userErrorText(err))
		return
	}
	if err := b.claims.DeleteContract(ctx, contractID); err != nil {
		editCallbackText(ctx, tg, chatID, messageID, userErrorText(err))
		return
	}

	b.clearActiveContract(contractID)
	editCallbackText(ctx, tg, chatID, messageID, "🗑 Contract <b>"+escapeHTML(contract.Name)+"</b> deleted.")
}

// handleCancelCallback dismisses a confirmation prompt.
func (b *Bot) handleCancelCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCallbackCore(ctx, tgBot, update)
}

// handleCancelCallbackCore is the testable implementation of handleCancelCallback.
func (b *Bot) handleCancelCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	chatID, messageID, ok := callbackMessage(update)
	if !ok {
		return
	}
	editCallbackText(ctx, tg, chatID, messageID, "Cancelled.")
}
