package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/claimspro/internal/claims"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/report"
)

const (
	displayDateLayout = "02 Jan 2006"
	maxHistoryEntries = 20
)

var statusEmoji = map[appmodels.ClaimStatus]string{
	appmodels.StatusDraft:         "📝",
	appmodels.StatusForAssessment: "🔎",
	appmodels.StatusApproved:      "✅",
	appmodels.StatusInvoiced:      "🧾",
	appmodels.StatusPaid:          "💰",
}

// claimByNumber resolves a claim number on the selected contract.
func (b *Bot) claimByNumber(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	arg string,
) (*appmodels.Contract, *appmodels.Claim, bool) {
	n, err := parseIndex(arg)
	if err != nil {
		reply(ctx, tg, chatID, "❌ "+escapeHTML(err.Error()))
		return nil, nil, false
	}

	contract, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return nil, nil, false
	}

	list, err := b.claims.ListClaims(ctx, contract.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "list claims", err)
		return nil, nil, false
	}
	for i := range list {
		if list[i].Number == n {
			return contract, &list[i], true
		}
	}

	reply(ctx, tg, chatID, fmt.Sprintf("❌ Claim #%d not found on %s. Use /claims to list them.", n, escapeHTML(contract.Name)))
	return nil, nil, false
}

// handleClaimsCore handles the /claims command.
func (b *Bot) handleClaimsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	contract, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return
	}

	list, err := b.claims.ListClaims(ctx, contract.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "list claims", err)
		return
	}
	if len(list) == 0 {
		reply(ctx, tg, chatID, "📋 No claims on <b>"+escapeHTML(contract.Name)+"</b> yet. Start one with /newclaim.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 <b>Claims for %s</b>\n\n", escapeHTML(contract.Name))
	for _, c := range list {
		fmt.Fprintf(&sb, "%s <b>#%03d</b> · %s · %s · %s\n",
			statusEmoji[c.Status],
			c.Number,
			c.Date.Format(displayDateLayout),
			escapeHTML(string(c.Status)),
			report.FormatMoney(c.Totals.IncGST))
	}
	sb.WriteString("\nOpen one with <code>/claim &lt;#&gt;</code>.")

	reply(ctx, tg, chatID, sb.String())
}

// parseNewClaimArgs parses "[seed] [YYYY-MM-DD]" in either order.
func parseNewClaimArgs(args string) (claims.SeedStrategy, time.Time, error) {
	seed := claims.SeedTemplate
	var date time.Time

	for _, field := range strings.Fields(args) {
		if d, err := parseDate(field); err == nil {
			date = d
			continue
		}
		s, err := claims.ParseSeedStrategy(field)
		if err != nil {
			return "", time.Time{}, err
		}
		seed = s
	}
	return seed, date, nil
}

// handleNewClaimCore handles the /newclaim command.
func (b *Bot) handleNewClaimCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	seed, date, err := parseNewClaimArgs(commandArgs(update.Message))
	if err != nil {
		usage(ctx, tg, chatID, "/newclaim [template|clone|blank] [YYYY-MM-DD]")
		return
	}

	contract, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return
	}

	claim, err := b.claims.CreateClaim(ctx, claims.CreateClaimInput{
		ContractID: contract.ID,
		Date:       date,
		Seed:       seed,
	})
	if err != nil {
		replyError(ctx, tg, chatID, "create claim", err)
		return
	}

	logger.Log.Info().
		Str("claim_id", claim.ID).
		Int("number", claim.Number).
		Str("seed", string(seed)).
		Msg("Claim created via bot")

	b.sendClaim(ctx, tg, chatID, contract, claim, "✅ Claim created.\n\n")
}

// handleClaimCore handles the /claim command.
func (b *Bot) handleClaimCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/claim <#>")
		return
	}

	contract, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}
	b.sendClaim(ctx, tg, chatID, contract, claim, "")
}

// sendClaim shows a claim with its sanity warnings and action buttons.
func (b *Bot) sendClaim(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	contract *appmodels.Contract,
	claim *appmodels.Claim,
	prefix string,
) {
	text := prefix + formatClaim(contract, claim)

	warnings, err := b.claims.SanityCheck(ctx, claim.ID)
	if err != nil {
		logger.Log.Warn().Err(err).Str("claim_id", claim.ID).Msg("Sanity check failed")
	}
	if len(warnings) > 0 {
		text += "\n<b>Warnings</b>\n"
		for _, w := range warnings {
			text += "⚠️ " + escapeHTML(w) + "\n"
		}
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: claimKeyboard(claim),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send claim")
	}
}

func claimKeyboard(claim *appmodels.Claim) *models.InlineKeyboardMarkup {
	var row []models.InlineKeyboardButton
	if next, ok := claim.Status.NextOffered(); ok {
		row = append(row, models.InlineKeyboardButton{
			Text:         "➡️ " + string(next),
			CallbackData: statusCallbackData(claim.ID, next),
		})
	}
	row = append(row, models.InlineKeyboardButton{
		Text:         "🗑 Delete",
		CallbackData: callbackDeleteClaimPrefix + claim.ID,
	})

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{row},
	}
}

func formatClaim(contract *appmodels.Contract, claim *appmodels.Claim) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>Claim #%03d</b> · %s\n",
		statusEmoji[claim.Status], claim.Number, escapeHTML(contract.Name))
	fmt.Fprintf(&sb, "Date: %s\nStatus: %s\n\n", claim.Date.Format(displayDateLayout), escapeHTML(string(claim.Status)))

	if len(claim.Items) == 0 {
		sb.WriteString("No items. Add one with <code>/claimitem &lt;claim #&gt; &lt;value&gt; &lt;description&gt;</code>.\n")
	}
	for i, item := range claim.Items {
		fmt.Fprintf(&sb, "%d. %s\n   %s · %s%% · prev %s · this %s\n",
			i+1,
			escapeHTML(item.Description),
			report.FormatMoney(item.ContractValue),
			item.PercentComplete.String(),
			report.FormatMoney(item.PreviousClaim),
			report.FormatMoney(item.ThisClaim))
	}

	fmt.Fprintf(&sb, "\nEx GST: %s\nGST: %s\n<b>Inc GST: %s</b>\n",
		report.FormatMoney(claim.Totals.ExGST),
		report.FormatMoney(claim.Totals.GST),
		report.FormatMoney(claim.Totals.IncGST))
	return sb.String()
}

// handleProgressCore handles the /progress command.
func (b *Bot) handleProgressCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	const format = "/progress <claim #> <item #> <percent>"

	fields := strings.Fields(commandArgs(update.Message))
	if len(fields) != 3 {
		usage(ctx, tg, chatID, format)
		return
	}
	itemNum, err := parseIndex(fields[1])
	if err != nil {
		usage(ctx, tg, chatID, format)
		return
	}
	pct, err := ParsePercent(fields[2])
	if err != nil {
		usage(ctx, tg, chatID, format)
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, fields[0])
	if !ok {
		return
	}

	updated, validation, err := b.claims.SetItemProgress(ctx, claim.ID, itemNum-1, pct)
	if err != nil {
		replyError(ctx, tg, chatID, "set progress", err)
		return
	}

	item := updated.Items[itemNum-1]
	text := fmt.Sprintf("✅ %s is now %s%% complete.\nThis claim: %s\nClaim total: %s inc GST",
		escapeHTML(item.Description),
		item.PercentComplete.String(),
		report.FormatMoney(item.ThisClaim),
		report.FormatMoney(updated.Totals.IncGST))
	if validation.Warning != "" {
		text += "\n⚠️ " + escapeHTML(validation.Warning)
	}
	reply(ctx, tg, chatID, text)
}

// handleAddClaimItemCore handles the /claimitem command.
func (b *Bot) handleAddClaimItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	const format = "/claimitem <claim #> <value> <description>"

	claimArg, rest, _ := strings.Cut(commandArgs(update.Message), " ")
	value, description, err := ParseItemArgs(rest)
	if err != nil {
		usage(ctx, tg, chatID, format)
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, claimArg)
	if !ok {
		return
	}

	updated, err := b.claims.AddClaimItem(ctx, claim.ID, description, value)
	if err != nil {
		replyError(ctx, tg, chatID, "add claim item", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("✅ Added item %d to claim #%03d: %s · %s",
		len(updated.Items), updated.Number, escapeHTML(description), report.FormatMoney(value)))
}

// handleRemoveClaimItemCore handles the /rmclaimitem command.
func (b *Bot) handleRemoveClaimItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	const format = "/rmclaimitem <claim #> <item #>"

	fields := strings.Fields(commandArgs(update.Message))
	if len(fields) != 2 {
		usage(ctx, tg, chatID, format)
		return
	}
	itemNum, err := parseIndex(fields[1])
	if err != nil {
		usage(ctx, tg, chatID, format)
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, fields[0])
	if !ok {
		return
	}

	updated, err := b.claims.RemoveClaimItem(ctx, claim.ID, itemNum-1)
	if err != nil {
		replyError(ctx, tg, chatID, "remove claim item", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("🗑 Item %d removed from claim #%03d. New total: %s inc GST",
		itemNum, updated.Number, report.FormatMoney(updated.Totals.IncGST)))
}

// handleStatusCore handles the /status command.
func (b *Bot) handleStatusCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	claimArg, statusArg, _ := strings.Cut(commandArgs(update.Message), " ")
	status, err := appmodels.ParseClaimStatus(statusArg)
	if claimArg == "" || err != nil {
		names := make([]string, len(appmodels.ClaimStatuses))
		for i, s := range appmodels.ClaimStatuses {
			names[i] = string(s)
		}
		usage(ctx, tg, chatID, "/status <claim #> <"+strings.Join(names, "|")+">")
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, claimArg)
	if !ok {
		return
	}

	updated, err := b.claims.SetStatus(ctx, claim.ID, status)
	if err != nil {
		replyError(ctx, tg, chatID, "set status", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("%s Claim #%03d is now <b>%s</b>.",
		statusEmoji[updated.Status], updated.Number, escapeHTML(string(updated.Status))))
}

// handleDateCore handles the /date command.
func (b *Bot) handleDateCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	const format = "/date <claim #> <YYYY-MM-DD>"

	fields := strings.Fields(commandArgs(update.Message))
	if len(fields) != 2 {
		usage(ctx, tg, chatID, format)
		return
	}
	date, err := parseDate(fields[1])
	if err != nil {
		usage(ctx, tg, chatID, format)
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, fields[0])
	if !ok {
		return
	}

	updated, err := b.claims.UpdateClaim(ctx, claim.ID, claims.ClaimUpdate{Date: &date}, &claims.Change{
		Field:    "date",
		OldValue: claim.Date.Format(inputDateLayout),
		NewValue: date.Format(inputDateLayout),
	})
	if err != nil {
		replyError(ctx, tg, chatID, "set date", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("📅 Claim #%03d is now dated %s.", updated.Number, updated.Date.Format(displayDateLayout)))
}

// handleDuplicateClaimCore handles the /dupclaim command.
func (b *Bot) handleDuplicateClaimCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/dupclaim <claim #>")
		return
	}

	contract, source, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}

	claim, err := b.claims.DuplicateClaim(ctx, source.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "duplicate claim", err)
		return
	}
	b.sendClaim(ctx, tg, chatID, contract, claim, fmt.Sprintf("📄 Duplicated claim #%03d.\n\n", source.Number))
}

// handleDeleteClaimCore handles the /delclaim command by asking for confirmation.
func (b *Bot) handleDeleteClaimCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/delclaim <claim #>")
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}

	text := fmt.Sprintf("⚠️ Delete claim #%03d (%s, %s) and its attachments?",
		claim.Number, escapeHTML(string(claim.Status)), report.FormatMoney(claim.Totals.IncGST))
	sendConfirm(ctx, tg, chatID, text, callbackDeleteClaimPrefix+claim.ID)
}

// handleHistoryCore handles the /history command.
func (b *Bot) handleHistoryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/history <claim #>")
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}

	reply(ctx, tg, chatID, formatHistory(claim))
}

func formatHistory(claim *appmodels.Claim) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🕓 <b>History of claim #%03d</b>\n\n", claim.Number)
	if len(claim.Changelog) == 0 {
		sb.WriteString("No changes recorded.")
		return sb.String()
	}

	entries := claim.Changelog
	if len(entries) > maxHistoryEntries {
		fmt.Fprintf(&sb, "<i>Showing the last %d of %d changes.</i>\n", maxHistoryEntries, len(entries))
		entries = entries[len(entries)-maxHistoryEntries:]
	}
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s · <code>%s</code>: %s → %s\n",
			e.Timestamp.Format("02 Jan 15:04"),
			escapeHTML(e.FieldChanged),
			escapeHTML(formatChangeValue(e.OldValue)),
			escapeHTML(formatChangeValue(e.NewValue)))
	}
	return sb.String()
}

func formatChangeValue(v any) string {
	if v == nil {
		return "∅"
	}
	s := fmt.Sprint(v)
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
