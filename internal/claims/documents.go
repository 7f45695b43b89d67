package claims

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

// ErrNoRenderer is returned when documents are requested from a Service without a renderer.
var ErrNoRenderer = errors.New("no document renderer configured")

// GenerateAssessment renders the assessment document for a claim.
func (s *Service) GenerateAssessment(ctx context.Context, claimID string) (doc models.Document, err error) {
	ctx, span := s.startSpan(ctx, "claims.GenerateAssessment")
	defer func() { endSpan(span, err) }()

	contract, claim, settings, err := s.documentInputs(ctx, claimID)
	if err != nil {
		return models.Document{}, err
	}
	return s.renderer.RenderAssessment(*contract, *claim, settings)
}

// GenerateInvoice renders the invoice for a claim. Generating an invoice for
// an Approved claim moves it to Invoiced; the returned claim reflects that.
func (s *Service) GenerateInvoice(ctx context.Context, claimID string) (doc models.Document, claim *models.Claim, err error) {
	ctx, span := s.startSpan(ctx, "claims.GenerateInvoice")
	defer func() { endSpan(span, err) }()

	contract, claim, settings, err := s.documentInputs(ctx, claimID)
	if err != nil {
		return models.Document{}, nil, err
	}

	doc, err = s.renderer.RenderInvoice(*contract, *claim, settings)
	if err != nil {
		return models.Document{}, nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	s.addCount(ctx, s.invoices)

	if claim.Status == models.StatusApproved {
		claim, err = s.SetStatus(ctx, claimID, models.StatusInvoiced)
		if err != nil {
			return models.Document{}, nil, err
		}
	}
	return doc, claim, nil
}

func (s *Service) documentInputs(
	ctx context.Context,
	claimID string,
) (*models.Contract, *models.Claim, models.Settings, error) {
	if s.renderer == nil {
		return nil, nil, models.Settings{}, ErrNoRenderer
	}

	claim, err := s.gw.GetClaim(ctx, claimID)
	if err != nil {
		return nil, nil, models.Settings{}, err
	}
	contract, err := s.gw.GetContract(ctx, claim.ContractID)
	if err != nil {
		return nil, nil, models.Settings{}, err
	}

	settings := models.Settings{DefaultGSTRate: models.DefaultGSTRate}
	stored, err := s.gw.GetSettings(ctx)
	switch {
	case err == nil:
		settings = *stored
	case !errors.Is(err, models.ErrNotFound):
		return nil, nil, models.Settings{}, err
	}

	return contract, claim, settings, nil
}
