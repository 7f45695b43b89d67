package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/claimspro/internal/backup"
	"gitlab.com/yelinaung/claimspro/internal/gemini"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	appmodels "gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/report"
)

// maxDownloadBytes is the largest file the Bot API lets bots download.
const maxDownloadBytes = 20 * 1024 * 1024

// downloadFile fetches a Telegram file by ID.
func (b *Bot) downloadFile(ctx context.Context, tg TelegramAPI, fileID string) ([]byte, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tg.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := b.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file exceeds size limit of %d bytes", maxDownloadBytes)
	}
	return data, nil
}

// sendFile uploads content as a document.
func sendFile(ctx context.Context, tg TelegramAPI, chatID int64, fileName string, content []byte, caption string) {
	_, err := tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: fileName, Data: bytes.NewReader(content)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("file", fileName).Msg("Failed to send document")
		reply(ctx, tg, chatID, "❌ Failed to send the file. Please try again.")
	}
}

// handleAssessmentCore handles the /assessment command.
func (b *Bot) handleAssessmentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/assessment <claim #>")
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}

	doc, err := b.claims.GenerateAssessment(ctx, claim.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "assessment", err)
		return
	}

	sendFile(ctx, tg, chatID, doc.FileName, doc.Content,
		fmt.Sprintf("📄 Assessment for claim #%03d", claim.Number))
}

// handleInvoiceCore handles the /invoice command.
func (b *Bot) handleInvoiceCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/invoice <claim #>")
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}
	previous := claim.Status

	doc, updated, err := b.claims.GenerateInvoice(ctx, claim.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "invoice", err)
		return
	}

	caption := fmt.Sprintf("🧾 Invoice for claim #%03d · %s inc GST",
		updated.Number, report.FormatMoney(updated.Totals.IncGST))
	if updated.Status != previous {
		caption += fmt.Sprintf("\nStatus: %s → <b>%s</b>", escapeHTML(string(previous)), escapeHTML(string(updated.Status)))
	}
	sendFile(ctx, tg, chatID, doc.FileName, doc.Content, caption)
}

// handleExportCore handles the /export command.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	now := b.now()

	doc, err := backup.Export(ctx, b.store, now)
	if err != nil {
		replyError(ctx, tg, chatID, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := backup.Write(&buf, doc); err != nil {
		replyError(ctx, tg, chatID, "export", err)
		return
	}

	caption := fmt.Sprintf("💾 Backup: %d contract(s), %d claim(s).\nAttachments are not included.",
		len(doc.Contracts), len(doc.Claims))
	sendFile(ctx, tg, chatID, "claimspro_backup_"+now.Format(inputDateLayout)+".json", buf.Bytes(), caption)
}

// handleImportCore handles a backup file sent with the /import caption.
func (b *Bot) handleImportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if update.Message.Document == nil {
		reply(ctx, tg, chatID, "📥 Send a backup <code>.json</code> file with the caption <code>/import</code>. "+
			"This replaces all contracts, claims and settings.")
		return
	}

	data, err := b.downloadFile(ctx, tg, update.Message.Document.FileID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to download backup")
		reply(ctx, tg, chatID, "❌ Failed to download the file. Please try again.")
		return
	}

	doc, err := backup.Read(bytes.NewReader(data))
	if err == nil {
		err = backup.Import(ctx, b.store, doc)
	}
	if errors.Is(err, appmodels.ErrValidation) {
		reply(ctx, tg, chatID, "❌ That is not a valid backup: "+escapeHTML(validationMessage(err)))
		return
	}
	if err != nil {
		replyError(ctx, tg, chatID, "import", err)
		return
	}

	b.clearActiveContract("")
	b.syncSessionTimeout(ctx)

	reply(ctx, tg, chatID, fmt.Sprintf("✅ Restored %d contract(s) and %d claim(s). Use /contracts to pick one.",
		len(doc.Contracts), len(doc.Claims)))
}

// handleAttachCore handles a photo or file sent with the /attach caption.
func (b *Bot) handleAttachCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID

	var fileID, fileName, mimeType string
	switch {
	case msg.Document != nil:
		fileID = msg.Document.FileID
		fileName = msg.Document.FileName
		mimeType = msg.Document.MimeType
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		fileID = largest.FileID
		fileName = fmt.Sprintf("photo_%s.jpg", b.now().Format("20060102_150405"))
		mimeType = "image/jpeg"
	default:
		reply(ctx, tg, chatID, "📎 Send a photo or file with the caption <code>/attach &lt;claim #&gt;</code>.")
		return
	}

	args := commandArgs(msg)
	if args == "" {
		usage(ctx, tg, chatID, "/attach <claim #>")
		return
	}
	_, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}

	data, err := b.downloadFile(ctx, tg, fileID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to download attachment")
		reply(ctx, tg, chatID, "❌ Failed to download the file. Please try again.")
		return
	}
	if fileName == "" {
		fileName = "attachment"
	}

	attachment, err := b.claims.AddAttachment(ctx, claim.ID, fileName, mimeType, data)
	if err != nil {
		replyError(ctx, tg, chatID, "attach", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("📎 Attached <b>%s</b> (%s) to claim #%03d.",
		escapeHTML(attachment.FileName), formatBytes(attachment.Size), claim.Number))
}

// attachmentByNumber resolves "<claim #> <attachment #>".
func (b *Bot) attachmentByNumber(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	args string,
	format string,
) (*appmodels.Claim, *appmodels.Attachment, bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		usage(ctx, tg, chatID, format)
		return nil, nil, false
	}
	n, err := parseIndex(fields[1])
	if err != nil {
		usage(ctx, tg, chatID, format)
		return nil, nil, false
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, fields[0])
	if !ok {
		return nil, nil, false
	}

	attachments, err := b.claims.ListAttachments(ctx, claim.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "list attachments", err)
		return nil, nil, false
	}
	if n > len(attachments) {
		reply(ctx, tg, chatID, fmt.Sprintf("❌ Claim #%03d has no attachment %d.", claim.Number, n))
		return nil, nil, false
	}
	return claim, &attachments[n-1], true
}

// handleAttachmentsCore handles the /attachments command.
func (b *Bot) handleAttachmentsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message)
	if args == "" {
		usage(ctx, tg, chatID, "/attachments <claim #>")
		return
	}

	_, claim, ok := b.claimByNumber(ctx, tg, chatID, args)
	if !ok {
		return
	}

	attachments, err := b.claims.ListAttachments(ctx, claim.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "list attachments", err)
		return
	}
	if len(attachments) == 0 {
		reply(ctx, tg, chatID, fmt.Sprintf("📎 Claim #%03d has no attachments.", claim.Number))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📎 <b>Attachments on claim #%03d</b>\n\n", claim.Number)
	for i, a := range attachments {
		fmt.Fprintf(&sb, "%d. %s · %s · %s\n", i+1, escapeHTML(a.FileName), escapeHTML(a.MIMEType), formatBytes(a.Size))
	}
	reply(ctx, tg, chatID, sb.String())
}

// handleGetAttachmentCore handles the /getattachment command.
func (b *Bot) handleGetAttachmentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	_, listed, ok := b.attachmentByNumber(ctx, tg, chatID, commandArgs(update.Message),
		"/getattachment <claim #> <attachment #>")
	if !ok {
		return
	}

	attachment, err := b.claims.GetAttachment(ctx, listed.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "get attachment", err)
		return
	}
	sendFile(ctx, tg, chatID, attachment.FileName, attachment.Content, "")
}

// handleDeleteAttachmentCore handles the /delattachment command.
func (b *Bot) handleDeleteAttachmentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	claim, attachment, ok := b.attachmentByNumber(ctx, tg, chatID, commandArgs(update.Message),
		"/delattachment <claim #> <attachment #>")
	if !ok {
		return
	}

	if err := b.claims.DeleteAttachment(ctx, attachment.ID); err != nil {
		replyError(ctx, tg, chatID, "delete attachment", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("🗑 Removed <b>%s</b> from claim #%03d.",
		escapeHTML(attachment.FileName), claim.Number))
}

// handleSuggestCore handles the /suggest command: it reads an attached
// progress report and proposes percent complete values. Nothing is applied.
func (b *Bot) handleSuggestCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if b.reader == nil {
		reply(ctx, tg, chatID, "🤖 Progress suggestions are not configured.")
		return
	}

	claim, listed, ok := b.attachmentByNumber(ctx, tg, chatID, commandArgs(update.Message),
		"/suggest <claim #> <attachment #>")
	if !ok {
		return
	}

	attachment, err := b.claims.GetAttachment(ctx, listed.ID)
	if err != nil {
		replyError(ctx, tg, chatID, "get attachment", err)
		return
	}

	reply(ctx, tg, chatID, "🔍 Reading <b>"+escapeHTML(attachment.FileName)+"</b>...")

	suggestions, err := b.reader.ReadProgressReport(ctx, attachment.Content, attachment.MIMEType, claim.Items)
	switch {
	case errors.Is(err, gemini.ErrUnsupportedMedia):
		reply(ctx, tg, chatID, "❌ Only photos and PDF reports can be read.")
		return
	case errors.Is(err, gemini.ErrReadTimeout):
		reply(ctx, tg, chatID, "⏱ Reading the report took too long. Please try again.")
		return
	case errors.Is(err, gemini.ErrNoSuggestions):
		reply(ctx, tg, chatID, "🤷 No progress figures found in that report.")
		return
	case err != nil:
		replyError(ctx, tg, chatID, "suggest", err)
		return
	}

	reply(ctx, tg, chatID, formatSuggestions(claim, suggestions))
}

func formatSuggestions(claim *appmodels.Claim, suggestions []gemini.ProgressSuggestion) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🤖 <b>Suggested progress for claim #%03d</b>\n\n", claim.Number)
	for _, s := range suggestions {
		fmt.Fprintf(&sb, "%d. %s: %s%% (confidence %.0f%%)\n   <code>/progress %d %d %s</code>\n",
			s.ItemIndex+1,
			escapeHTML(s.Description),
			s.PercentComplete.String(),
			s.Confidence*100,
			claim.Number,
			s.ItemIndex+1,
			s.PercentComplete.String())
		if s.Warning != "" {
			sb.WriteString("   ⚠️ " + escapeHTML(s.Warning) + "\n")
		}
	}
	sb.WriteString("\nReview each figure before applying it.")
	return sb.String()
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
