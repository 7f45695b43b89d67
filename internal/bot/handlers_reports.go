package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/claimspro/internal/logger"
	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/report"
)

const (
	chartKindStatus    = "status"
	chartKindContracts = "contracts"
)

// handleReportCore handles the /report command: a CSV of the selected contract's claims.
func (b *Bot) handleReportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
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
		reply(ctx, tg, chatID, "📋 No claims on <b>"+escapeHTML(contract.Name)+"</b> to report.")
		return
	}

	data, err := report.GenerateClaimsCSV(*contract, list)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate claims CSV")
		reply(ctx, tg, chatID, "❌ Failed to generate report. Please try again.")
		return
	}

	sendFile(ctx, tg, chatID, report.ClaimsReportFilename(*contract, b.now()), data,
		fmt.Sprintf("📊 <b>%s</b>\n\n%d claim(s)", escapeHTML(contract.Name), len(list)))
}

// handleItemsCore handles the /items command: a CSV of one claim's line items.
func (b *Bot) handleItemsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/items <claim #>")
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}

	data, err := report.GenerateClaimItemsCSV(*claim)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate items CSV")
		reply(ctx, tg, chatID, "❌ Failed to generate report. Please try again.")
		return
	}

	sendFile(ctx, tg, chatID, report.ClaimItemsFilename(*claim), data,
		fmt.Sprintf("📊 Claim #%03d · %d item(s)", claim.Number, len(claim.Items)))
}

// handleChartCore handles the /chart command.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	kind := strings.ToLower(commandArgs(update.Message))
	if kind == "" {
		kind = chartKindStatus
	}
	if kind != chartKindStatus && kind != chartKindContracts {
		usage(ctx, tg, chatID, "/chart [status|contracts]")
		return
	}

	contracts, err := b.store.GetAllContracts(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "chart", err)
		return
	}
	all, err := b.store.GetAllClaims(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "chart", err)
		return
	}

	var (
		data    []byte
		caption string
	)
	switch kind {
	case chartKindStatus:
		data, err = report.GenerateStatusChart(all)
		caption = fmt.Sprintf("📊 <b>Claims by status</b>\n\n%d claim(s)", len(all))
	case chartKindContracts:
		data, err = report.GenerateClaimedChart(contracts, all)
		caption = fmt.Sprintf("📊 <b>Claimed by contract</b>\n\n%d contract(s)", len(contracts))
	}
	if errors.Is(err, report.ErrNothingToChart) {
		reply(ctx, tg, chatID, "📊 Nothing to chart yet.")
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("kind", kind).Msg("Failed to generate chart")
		reply(ctx, tg, chatID, "❌ Failed to generate chart. Please try again.")
		return
	}

	sendFile(ctx, tg, chatID, report.ChartFilename(kind, b.now()), data, caption)
}

// handleDashboardCore handles the /dashboard command.
func (b *Bot) handleDashboardCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	contracts, err := b.store.GetAllContracts(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "dashboard", err)
		return
	}
	all, err := b.store.GetAllClaims(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "dashboard", err)
		return
	}

	reply(ctx, tg, chatID, formatDashboard(report.ComputeStats(contracts, all)))
}

func formatDashboard(s report.Stats) string {
	var sb strings.Builder
	sb.WriteString("📈 <b>Dashboard</b>\n\n")
	fmt.Fprintf(&sb, "Contracts: %d · %s\n", s.TotalContracts, report.FormatMoney(s.TotalContractValue))
	fmt.Fprintf(&sb, "Claims: %d · %s claimed\n", s.TotalClaims, report.FormatMoney(s.TotalClaimed))
	fmt.Fprintf(&sb, "Pending: %d\n", s.PendingClaims)
	fmt.Fprintf(&sb, "Overall progress: %s%%\n", s.OverallProgress.String())
	fmt.Fprintf(&sb, "Average claim: %s\n", report.FormatMoney(s.AverageClaimValue))
	fmt.Fprintf(&sb, "Average contract: %s\n", report.FormatMoney(s.AverageContractSize))
	fmt.Fprintf(&sb, "Completed contracts: %s%%\n", s.CompletionRate.String())

	if s.TotalClaims > 0 {
		sb.WriteString("\n<b>By status</b>\n")
		for _, status := range appmodels.ClaimStatuses {
			if n := s.StatusBreakdown[status]; n > 0 {
				fmt.Fprintf(&sb, "%s %s: %d\n", statusEmoji[status], escapeHTML(string(status)), n)
			}
		}
	}

	if len(s.Monthly) > 0 {
		sb.WriteString("\n<b>Monthly</b>\n")
		for _, m := range s.Monthly {
			fmt.Fprintf(&sb, "%s: %d · %s\n", m.Month, m.Claims, report.FormatMoney(m.Value))
		}
	}

	if len(s.Contracts) > 0 {
		sb.WriteString("\n<b>Contracts</b>\n")
		for _, c := range s.Contracts {
			fmt.Fprintf(&sb, "%s · %s%% · %s remaining\n",
				escapeHTML(c.Name), c.Progress.String(), report.FormatMoney(c.Remaining))
		}
	}

	if len(s.RecentClaims) > 0 {
		sb.WriteString("\n<b>Recent claims</b>\n")
		for _, c := range s.RecentClaims {
			fmt.Fprintf(&sb, "#%03d · %s · %s · %s\n",
				c.Number, c.Date.Format(displayDateLayout), escapeHTML(string(c.Status)), report.FormatMoney(c.Totals.IncGST))
		}
	}
	return sb.String()
}
