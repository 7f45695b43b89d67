package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/calc"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/report"
)

const contractArgsUsage = "Name | value | client [| abn | email | phone | gst]"

// currentContract returns the contract selected in chatID. When nothing is
// selected and exactly one contract exists, that contract is selected.
func (b *Bot) currentContract(ctx context.Context, tg TelegramAPI, chatID int64) (*appmodels.Contract, bool) {
	id, ok := b.activeContract(chatID)
	if !ok {
		contracts, err := b.claims.ListContracts(ctx)
		if err != nil {
			replyError(ctx, tg, chatID, "list contracts", err)
			return nil, false
		}
		if len(contracts) != 1 {
			reply(ctx, tg, chatID, noActiveContractMsg)
			return nil, false
		}
		b.setActiveContract(chatID, contracts[0].ID)
		return &contracts[0], true
	}

	contract, err := b.claims.GetContract(ctx, id)
	if errors.Is(err, appmodels.ErrNotFound) {
		b.clearActiveContract(id)
		reply(ctx, tg, chatID, noActiveContractMsg)
		return nil, false
	}
	if err != nil {
		replyError(ctx, tg, chatID, "get contract", err)
		return nil, false
	}
	return contract, true
}

// handleContractsCore handles the /contracts command.
func (b *Bot) handleContractsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	contracts, err := b.claims.ListContracts(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "list contracts", err)
		return
	}
	if len(contracts) == 0 {
		reply(ctx, tg, chatID, "📁 No contracts yet. Create one with <code>/newcontract "+escapeHTML(contractArgsUsage)+"</code>")
		return
	}

	activeID, _ := b.activeContract(chatID)

	var sb strings.Builder
	sb.WriteString("📁 <b>Contracts</b>\n\n")
	for i, c := range contracts {
		marker := ""
		if c.ID == activeID {
			marker = " ▶️"
		}

		progress, err := b.claims.ContractProgress(ctx, c.ID)
		if err != nil {
			replyError(ctx, tg, chatID, "contract progress", err)
			return
		}

		fmt.Fprintf(&sb, "%d. <b>%s</b>%s\n   %s · %s · %s%% claimed\n",
			i+1,
			escapeHTML(c.Name),
			marker,
			escapeHTML(c.ClientInfo.Name),
			report.FormatMoney(c.ContractValue),
			progress.ProgressPercentage.String())
	}
	sb.WriteString("\nSelect one with <code>/use &lt;#&gt;</code>.")

	reply(ctx, tg, chatID, sb.String())
}

// handleUseCore handles the /use command.
func (b *Bot) handleUseCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/use <#|name>")
		return
	}

	contracts, err := b.claims.ListContracts(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "list contracts", err)
		return
	}

	contract := findContract(contracts, args)
	if contract == nil {
		reply(ctx, tg, chatID, "❌ No contract matches <b>"+escapeHTML(args)+"</b>. Use /contracts to list them.")
		return
	}

	b.setActiveContract(chatID, contract.ID)
	reply(ctx, tg, chatID, "▶️ Now working on <b>"+escapeHTML(contract.Name)+"</b>.")
}

// findContract matches a 1-based list position, then an exact name, then a name prefix.
func findContract(contracts []appmodels.Contract, query string) *appmodels.Contract {
	if n, err := parseIndex(query); err == nil {
		if n <= len(contracts) {
			return &contracts[n-1]
		}
		return nil
	}

	query = strings.ToLower(strings.TrimSpace(query))
	for i := range contracts {
		if strings.ToLower(contracts[i].Name) == query {
			return &contracts[i]
		}
	}
	for i := range contracts {
		if strings.HasPrefix(strings.ToLower(contracts[i].Name), query) {
			return &contracts[i]
		}
	}
	return nil
}

// handleContractCore handles the /contract command.
func (b *Bot) handleContractCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	contract, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return
	}

	progress, err := b.claims.ContractProgress(ctx, contract.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "contract progress", err)
		return
	}
	claims, err := b.claims.ListClaims(ctx, contract.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "list claims", err)
		return
	}

	reply(ctx, tg, chatID, formatContract(contract, progress, len(claims)))
}

func formatContract(c *appmodels.Contract, progress calc.Progress, claimCount int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📁 <b>%s</b>\n\n", escapeHTML(c.Name))
	fmt.Fprintf(&sb, "Client: %s\n", escapeHTML(c.ClientInfo.Name))
	if c.ClientInfo.Email != "" {
		fmt.Fprintf(&sb, "Email: %s\n", escapeHTML(c.ClientInfo.Email))
	}
	if c.ClientInfo.Phone != "" {
		fmt.Fprintf(&sb, "Phone: %s\n", escapeHTML(c.ClientInfo.Phone))
	}
	if c.ABN != "" {
		fmt.Fprintf(&sb, "ABN: %s\n", escapeHTML(c.ABN))
	}
	fmt.Fprintf(&sb, "Contract value: %s\n", report.FormatMoney(c.ContractValue))
	fmt.Fprintf(&sb, "GST rate: %s%%\n", c.GSTRate.Mul(hundred).String())
	fmt.Fprintf(&sb, "Claims: %d\n", claimCount)
	fmt.Fprintf(&sb, "Claimed to date: %s (%s%%)\n",
		report.FormatMoney(progress.TotalClaimed), progress.ProgressPercentage.String())

	sb.WriteString("\n<b>Template items</b>\n")
	if len(c.TemplateItems) == 0 {
		sb.WriteString("None. Add one with <code>/additem &lt;value&gt; &lt;description&gt;</code>.\n")
	}
	for i, item := range c.TemplateItems {
		fmt.Fprintf(&sb, "%d. %s · %s\n", i+1, escapeHTML(item.Description), report.FormatMoney(item.ContractValue))
	}
	return sb.String()
}

// handleNewContractCore handles the /newcontract command.
func (b *Bot) handleNewContractCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	in, err := ParseContractArgs(commandArgs(update.Message))
	if err != nil {
		usage(ctx, tg, chatID, "/newcontract "+contractArgsUsage)
		return
	}

	contract, err := b.claims.CreateContract(ctx, in)
	if err != nil {
		replyError(ctx, tg, chatID, "create contract", err)
		return
	}

	b.setActiveContract(chatID, contract.ID)
	logger.Log.Info().Str("contract_id", contract.ID).Str("chat_hash", logger.HashChatID(chatID)).Msg("Contract created via bot")

	reply(ctx, tg, chatID, fmt.Sprintf(
		"✅ Contract <b>%s</b> created and selected.\n\nAdd scope items with <code>/additem &lt;value&gt; &lt;description&gt;</code>.",
		escapeHTML(contract.Name)))
}

// handleEditContractCore handles the /editcontract command.
func (b *Bot) handleEditContractCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	in, err := ParseContractArgs(commandArgs(update.Message))
	if err != nil {
		usage(ctx, tg, chatID, "/editcontract "+contractArgsUsage)
		return
	}

	current, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return
	}

	contract, err := b.claims.UpdateContract(ctx, current.ID, in)
	if err != nil {
		replyError(ctx, tg, chatID, "update contract", err)
		return
	}
	reply(ctx, tg, chatID, "✅ Contract <b>"+escapeHTML(contract.Name)+"</b> updated.")
}

// handleAddTemplateItemCore handles the /additem command.
func (b *Bot) handleAddTemplateItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	value, description, err := ParseItemArgs(commandArgs(update.Message))
	if err != nil {
		usage(ctx, tg, chatID, "/additem <value> <description>")
		return
	}

	current, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return
	}

	contract, err := b.claims.AddTemplateItem(ctx, current.ID, description, value)
	if err != nil {
		replyError(ctx, tg, chatID, "add template item", err)
		return
	}

	total := decimal.Zero
	for _, item := range contract.TemplateItems {
		total = total.Add(item.ContractValue)
	}

	text := fmt.Sprintf("✅ Added item %d: %s · %s\nTemplate total: %s of %s",
		len(contract.TemplateItems),
		escapeHTML(description),
		report.FormatMoney(value),
		report.FormatMoney(total),
		report.FormatMoney(contract.ContractValue))
	if total.GreaterThan(contract.ContractValue) {
		text += "\n⚠️ Template items exceed the contract value."
	}
	reply(ctx, tg, chatID, text)
}

// handleRemoveTemplateItemCore handles the /delitem command.
func (b *Bot) handleRemoveTemplateItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	n, err := parseIndex(commandArgs(update.Message))
	if err != nil {
		usage(ctx, tg, chatID, "/delitem <item #>")
		return
	}

	current, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return
	}

	if _, err := b.claims.RemoveTemplateItem(ctx, current.ID, n-1); err != nil {
		replyError(ctx, tg, chatID, "remove template item", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("🗑 Template item %d removed.", n))
}

// handleDeleteContractCore handles the /delcontract command by asking for confirmation.
func (b *Bot) handleDeleteContractCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	contract, ok := b.currentContract(ctx, tg, chatID)
	if !ok {
		return
	}

	claims, err := b.claims.ListClaims(ctx, contract.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "list claims", err)
		return
	}

	text := fmt.Sprintf("⚠️ Delete <b>%s</b> with its %d claim(s) and their attachments? This cannot be undone.",
		escapeHTML(contract.Name), len(claims))
	sendConfirm(ctx, tg, chatID, text, callbackDeleteContractPrefix+contract.ID)
}
