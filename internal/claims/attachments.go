package claims

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// AddAttachment stores a supporting file on a claim.
// An empty mimeType is sniffed from the content.
func (s *Service) AddAttachment(
	ctx context.Context,
	claimID string,
	fileName string,
	mimeType string,
	content []byte,
) (attachment *models.Attachment, err error) {
	ctx, span := s.startSpan(ctx, "claims.AddAttachment")
	defer func() { endSpan(span, err) }()

	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, fmt.Errorf("%w: file name is required", models.ErrValidation)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: attachment is empty", models.ErrValidation)
	}
	if int64(len(content)) > s.maxAttachmentBytes {
		return nil, fmt.Errorf("%w: attachment is %d bytes, limit is %d",
			models.ErrValidation, len(content), s.maxAttachmentBytes)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	if _, err = s.gw.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}

	attachment = &models.Attachment{
		ID:        s.newID(),
		ClaimID:   claimID,
		FileName:  fileName,
		MIMEType:  mimeType,
		Size:      int64(len(content)),
		Content:   content,
		CreatedAt: s.now(),
	}
	if err = s.gw.SaveAttachment(ctx, attachment); err != nil {
		return nil, err
	}

	logger.Log.Info().
		Str("claim_id", claimID).
		Str("attachment_id", attachment.ID).
		Int64("size", attachment.Size).
		Msg("Attachment added")
	return attachment, nil
}

// ListAttachments returns a claim's attachments.
func (s *Service) ListAttachments(ctx context.Context, claimID string) ([]models.Attachment, error) {
	if _, err := s.gw.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return s.gw.GetAttachmentsByClaimID(ctx, claimID)
}

// GetAttachment returns an attachment with its content.
func (s *Service) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	return s.gw.GetAttachment(ctx, id)
}

// DeleteAttachment removes an attachment.
func (s *Service) DeleteAttachment(ctx context.Context, id string) error {
	if err := s.gw.DeleteAttachment(ctx, id); err != nil {
		return err
	}
	logger.Log.Info().Str("attachment_id", id).Msg("Attachment deleted")
	return nil
}
