// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/claimspro/internal/auth"
	"gitlab.com/yelinaung/claimspro/internal/backup"
	"gitlab.com/yelinaung/claimspro/internal/claims"
	"gitlab.com/yelinaung/claimspro/internal/config"
	"gitlab.com/yelinaung/claimspro/internal/gemini"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// pollTimeout is the long-poll timeout passed to Telegram getUpdates.
const pollTimeout = time.Minute

// ProgressReader suggests percent-complete values from a progress report file.
type ProgressReader interface {
	ReadProgressReport(
		ctx context.Context,
		content []byte,
		mimeType string,
		items []models.LineItem,
	) ([]gemini.ProgressSuggestion, error)
}

// Deps are the application services the bot drives.
type Deps struct {
	Claims   *claims.Service
	Auth     *auth.Manager
	Sessions *auth.Sessions
	Store    backup.Store
	// Reader is optional; /suggest is disabled without it.
	Reader     ProgressReader
	HTTPClient *http.Client
}

type commandHandler func(ctx context.Context, tg TelegramAPI, update *tgmodels.Update)

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot           *bot.Bot
	cfg           *config.Config
	claims        *claims.Service
	auth          *auth.Manager
	sessions      *auth.Sessions
	store         backup.Store
	reader        ProgressReader
	httpClient    *http.Client
	messageSender TelegramAPI
	now           func() time.Time

	commands map[string]commandHandler

	activeMu sync.RWMutex
	active   map[int64]string // chat ID -> selected contract ID
}

// publicCommands may be used without an admin session.
var publicCommands = map[string]bool{
	"start": true,
	"help":  true,
	"login": true,
}

// New creates a new Bot instance.
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	b := newBot(cfg, deps)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware, b.sessionMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}
	if deps.HTTPClient != nil {
		opts = append(opts, bot.WithHTTPClient(pollTimeout, deps.HTTPClient))
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.messageSender = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, deps Deps) *Bot {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	b := &Bot{
		cfg:        cfg,
		claims:     deps.Claims,
		auth:       deps.Auth,
		sessions:   deps.Sessions,
		store:      deps.Store,
		reader:     deps.Reader,
		httpClient: httpClient,
		now:        time.Now,
		active:     make(map[int64]string),
	}
	b.commands = b.commandTable()
	return b
}

// Start begins polling for updates and the session expiry loop.
func (b *Bot) Start(ctx context.Context) {
	go b.startSessionExpiryLoop(ctx)

	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

func (b *Bot) commandTable() map[string]commandHandler {
	return map[string]commandHandler{
		"start":         b.handleStartCore,
		"help":          b.handleHelpCore,
		"login":         b.handleLoginCore,
		"logout":        b.handleLogoutCore,
		"passwd":        b.handlePasswdCore,
		"settings":      b.handleSettingsCore,
		"contracts":     b.handleContractsCore,
		"use":           b.handleUseCore,
		"contract":      b.handleContractCore,
		"newcontract":   b.handleNewContractCore,
		"editcontract":  b.handleEditContractCore,
		"additem":       b.handleAddTemplateItemCore,
		"delitem":       b.handleRemoveTemplateItemCore,
		"delcontract":   b.handleDeleteContractCore,
		"claims":        b.handleClaimsCore,
		"newclaim":      b.handleNewClaimCore,
		"claim":         b.handleClaimCore,
		"progress":      b.handleProgressCore,
		"claimitem":     b.handleAddClaimItemCore,
		"rmclaimitem":   b.handleRemoveClaimItemCore,
		"status":        b.handleStatusCore,
		"date":          b.handleDateCore,
		"dupclaim":      b.handleDuplicateClaimCore,
		"delclaim":      b.handleDeleteClaimCore,
		"history":       b.handleHistoryCore,
		"assessment":    b.handleAssessmentCore,
		"invoice":       b.handleInvoiceCore,
		"report":        b.handleReportCore,
		"items":         b.handleItemsCore,
		"chart":         b.handleChartCore,
		"dashboard":     b.handleDashboardCore,
		"export":        b.handleExportCore,
		"import":        b.handleImportCore,
		"attach":        b.handleAttachCore,
		"attachments":   b.handleAttachmentsCore,
		"getattachment": b.handleGetAttachmentCore,
		"delattachment": b.handleDeleteAttachmentCore,
		"suggest":       b.handleSuggestCore,
	}
}

// registerHandlers sets up callback handlers. Commands are routed by defaultHandler.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackStatusPrefix, bot.MatchTypePrefix, b.handleStatusCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackDeleteClaimPrefix, bot.MatchTypePrefix, b.handleDeleteClaimCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackDeleteContractPrefix, bot.MatchTypePrefix, b.handleDeleteContractCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackCancel, bot.MatchTypeExact, b.handleCancelCallback)
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.allowUser(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

func (b *Bot) allowUser(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	logUserAction(userID, update)

	if b.cfg.IsUserWhitelisted(userID, username) {
		return true
	}

	logger.Log.Warn().
		Str("user_hash", logger.HashUserID(userID)).
		Msg("Blocked non-whitelisted user")
	if update.Message != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "⛔ Sorry, you are not authorized to use this bot.",
		})
	}
	return false
}

// sessionMiddleware requires a live admin session for everything except
// the public commands, and records activity on the session.
func (b *Bot) sessionMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.requireSession(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

func (b *Bot) requireSession(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)

	if update.Message != nil {
		name, _ := commandOf(messageCommandText(update.Message))
		if publicCommands[name] {
			return true
		}
	}

	if b.sessions.Touch(userID) {
		return true
	}

	switch {
	case update.Message != nil:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    update.Message.Chat.ID,
			Text:      "🔒 Please sign in first with <code>/login &lt;password&gt;</code>.",
			ParseMode: tgmodels.ParseModeHTML,
		})
	case update.CallbackQuery != nil:
		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "Session expired. Please /login again.",
			ShowAlert:       true,
		})
	}
	return false
}

// logUserAction logs the user's input/action without message contents.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		if name, _ := commandOf(messageCommandText(msg)); name != "" {
			event = event.Str("command", name)
		}
		if len(msg.Photo) > 0 {
			event = event.Str("type", "photo")
		}
		if msg.Document != nil {
			event = event.Str("type", "document").Str("mime_type", msg.Document.MimeType)
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.ID
	}
	return 0
}

// messageCommandText returns the text a command is read from: the caption
// for photos and documents, the message text otherwise.
func messageCommandText(msg *tgmodels.Message) string {
	if msg.Document != nil || len(msg.Photo) > 0 {
		return msg.Caption
	}
	return msg.Text
}

// commandOf splits "/name@bot args" into its lower-cased name and the raw command token.
func commandOf(text string) (name, token string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	token, _, _ = strings.Cut(text, " ")
	name = strings.TrimPrefix(token, "/")
	if at := strings.Index(name, "@"); at != -1 {
		name = name[:at]
	}
	return strings.ToLower(name), token
}

// defaultHandler routes commands; everything else gets a hint.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.routeCore(ctx, tgBot, update)
}

// routeCore is the testable implementation of defaultHandler.
func (b *Bot) routeCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	name, _ := commandOf(messageCommandText(update.Message))
	if handler, ok := b.commands[name]; ok {
		handler(ctx, tg, update)
		return
	}

	logger.Log.Debug().
		Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).
		Msg("Default handler triggered")

	text := "I didn't understand that. Use /help to see available commands."
	if update.Message.Document != nil || len(update.Message.Photo) > 0 {
		text = "📎 To attach a file, send it with the caption <code>/attach &lt;claim #&gt;</code>. " +
			"To restore a backup, send it with the caption <code>/import</code>."
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send default response")
	}
}

// activeContract returns the contract selected in chatID.
func (b *Bot) activeContract(chatID int64) (string, bool) {
	b.activeMu.RLock()
	defer b.activeMu.RUnlock()
	id, ok := b.active[chatID]
	return id, ok
}

func (b *Bot) setActiveContract(chatID int64, contractID string) {
	b.activeMu.Lock()
	defer b.activeMu.Unlock()
	b.active[chatID] = contractID
}

// clearActiveContract forgets any selection of contractID, or every selection when it is empty.
func (b *Bot) clearActiveContract(contractID string) {
	b.activeMu.Lock()
	defer b.activeMu.Unlock()
	for chatID, id := range b.active {
		if contractID == "" || id == contractID {
			delete(b.active, chatID)
		}
	}
}
