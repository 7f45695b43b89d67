package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/claimspro/internal/auth"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
)

const (
	noActiveContractMsg = "📁 No contract selected. Use /contracts to list them and <code>/use &lt;#&gt;</code> to pick one."
	genericErrorMsg     = "❌ Something went wrong. Please try again."
)

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// commandArgs returns the arguments of the command in msg.
func commandArgs(msg *models.Message) string {
	text := strings.TrimSpace(messageCommandText(msg))
	_, token := commandOf(text)
	return extractCommandArgs(text, token)
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

// userErrorText turns a service error into a message safe to show the user.
func userErrorText(err error) string {
	switch {
	case errors.Is(err, appmodels.ErrValidation):
		return "⚠️ " + escapeHTML(validationMessage(err))
	case errors.Is(err, appmodels.ErrNotFound):
		return "❌ Not found: " + escapeHTML(strings.TrimSuffix(err.Error(), ": "+appmodels.ErrNotFound.Error()))
	case errors.Is(err, auth.ErrInvalidPassword):
		return "❌ Incorrect password."
	default:
		return genericErrorMsg
	}
}

// validationMessage strips the sentinel prefix from a validation error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), appmodels.ErrValidation.Error()+": ")
}

// reply sends an HTML message to chatID, logging send failures.
func reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

// replyError reports err to the user and logs anything that is not the user's fault.
func replyError(ctx context.Context, tg TelegramAPI, chatID int64, action string, err error) {
	if !errors.Is(err, appmodels.ErrValidation) &&
		!errors.Is(err, appmodels.ErrNotFound) &&
		!errors.Is(err, auth.ErrInvalidPassword) {
		logger.Log.Error().Err(err).Str("action", action).Msg("Command failed")
	}
	reply(ctx, tg, chatID, userErrorText(err))
}

// usage sends a usage hint for a command.
func usage(ctx context.Context, tg TelegramAPI, chatID int64, format string) {
	reply(ctx, tg, chatID, "Usage: <code>"+escapeHTML(format)+"</code>")
}

// handleStartCore handles the /start command.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I manage progress claims for your construction contracts: line items, percent complete, GST totals, assessments and invoices.

<b>Quick Start:</b>
• Sign in: <code>/login &lt;password&gt;</code>
• Create a contract: <code>/newcontract Name | value | client</code>
• Add scope items: <code>/additem 50000 Site works</code>
• Start a claim: <code>/newclaim</code>

Use /help to see all available commands.`,
		formatGreeting(firstName))

	logger.Log.Debug().Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).Msg("Sending /start response")
	reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleHelpCore handles the /help command.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>Available Commands</b>

<b>Session:</b>
• <code>/login &lt;password&gt;</code> - Sign in
• <code>/logout</code> - Sign out
• <code>/passwd &lt;current&gt; &lt;new&gt;</code> - Change the admin password
• <code>/settings [company|abn|gst|timeout] [value]</code> - View or change settings

<b>Contracts:</b>
• <code>/contracts</code> - List contracts
• <code>/use &lt;#|name&gt;</code> - Select a contract
• <code>/contract</code> - Show the selected contract
• <code>/newcontract Name | value | client [| abn | email | phone | gst]</code>
• <code>/editcontract Name | value | client [| abn | email | phone | gst]</code>
• <code>/additem &lt;value&gt; &lt;description&gt;</code> - Add a template item
• <code>/delitem &lt;item #&gt;</code> - Remove a template item
• <code>/delcontract</code> - Delete the contract and its claims

<b>Claims:</b>
• <code>/claims</code> - List claims
• <code>/newclaim [template|clone|blank] [YYYY-MM-DD]</code>
• <code>/claim &lt;#&gt;</code> - Show a claim
• <code>/progress &lt;claim #&gt; &lt;item #&gt; &lt;percent&gt;</code>
• <code>/claimitem &lt;claim #&gt; &lt;value&gt; &lt;description&gt;</code>
• <code>/rmclaimitem &lt;claim #&gt; &lt;item #&gt;</code>
• <code>/status &lt;claim #&gt; &lt;status&gt;</code>
• <code>/date &lt;claim #&gt; &lt;YYYY-MM-DD&gt;</code>
• <code>/dupclaim &lt;claim #&gt;</code> - Duplicate a claim
• <code>/delclaim &lt;claim #&gt;</code> - Delete a claim
• <code>/history &lt;claim #&gt;</code> - Show the changelog

<b>Documents:</b>
• <code>/assessment &lt;claim #&gt;</code> - Progress claim assessment
• <code>/invoice &lt;claim #&gt;</code> - Tax invoice (marks the claim Invoiced)
• <code>/attach &lt;claim #&gt;</code> - Caption on a photo or file
• <code>/attachments &lt;claim #&gt;</code>
• <code>/getattachment &lt;claim #&gt; &lt;#&gt;</code>
• <code>/delattachment &lt;claim #&gt; &lt;#&gt;</code>
• <code>/suggest &lt;claim #&gt; &lt;attachment #&gt;</code> - Read progress from a report

<b>Reports:</b>
• <code>/report</code> - Claims CSV for the contract
• <code>/items &lt;claim #&gt;</code> - Claim items CSV
• <code>/chart [status|contracts]</code> - Pie chart
• <code>/dashboard</code> - Portfolio statistics

<b>Backup:</b>
• <code>/export</code> - Download a JSON backup
• <code>/import</code> - Caption on a backup file to restore it`

	reply(ctx, tg, update.Message.Chat.ID, text)
}
