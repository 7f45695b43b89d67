package claims

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gitlab.com/yelinaung/claimspro/internal/calc"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// SeedStrategy selects how a new claim's items are populated.
type SeedStrategy string

// Seed strategies.
const (
	SeedTemplate SeedStrategy = "template"
	SeedClone    SeedStrategy = "clone"
	SeedBlank    SeedStrategy = "blank"
)

// ParseSeedStrategy parses a seed strategy name, defaulting to template when empty.
func ParseSeedStrategy(s string) (SeedStrategy, error) {
	switch SeedStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SeedTemplate:
		return SeedTemplate, nil
	case SeedClone, "previous":
		return SeedClone, nil
	case SeedBlank, "empty":
		return SeedBlank, nil
	default:
		return "", fmt.Errorf("%w: unknown seed strategy %q", models.ErrValidation, s)
	}
}

// CreateClaimInput describes a new claim.
// A zero Date means today and an empty Status means Draft.
type CreateClaimInput struct {
	ContractID string
	Date       time.Time
	Status     models.ClaimStatus
	Seed       SeedStrategy
}

// Change is a caller-described changelog entry. The values are recorded as given.
type Change struct {
	Field    string
	OldValue any
	NewValue any
}

// ClaimUpdate holds the fields to replace on a claim. Nil fields are left alone.
type ClaimUpdate struct {
	Date   *time.Time
	Status *models.ClaimStatus
	Items  *[]models.LineItem
}

// CreateClaim creates the next claim for a contract.
func (s *Service) CreateClaim(ctx context.Context, in CreateClaimInput) (claim *models.Claim, err error) {
	ctx, span := s.startSpan(ctx, "claims.CreateClaim")
	defer func() { endSpan(span, err) }()

	if in.Seed == "" {
		in.Seed = SeedTemplate
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown claim status %q", models.ErrValidation, in.Status)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	return s.createClaim(ctx, in, "")
}

// DuplicateClaim creates a new Draft claim dated today, cloned from sourceID
// rather than from the contract's latest claim.
func (s *Service) DuplicateClaim(ctx context.Context, sourceID string) (claim *models.Claim, err error) {
	ctx, span := s.startSpan(ctx, "claims.DuplicateClaim")
	defer func() { endSpan(span, err) }()

	source, err := s.gw.GetClaim(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	return s.createClaim(ctx, CreateClaimInput{
		ContractID: source.ContractID,
		Date:       s.now(),
		Status:     models.StatusDraft,
		Seed:       SeedClone,
	}, sourceID)
}

func (s *Service) createClaim(ctx context.Context, in CreateClaimInput, sourceID string) (*models.Claim, error) {
	unlock := s.locks.lock(in.ContractID)
	defer unlock()

	contract, err := s.gw.GetContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}

	existing, err := s.gw.GetClaimsByContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}

	items, err := s.seedItems(in.Seed, contract, existing, sourceID)
	if err != nil {
		return nil, err
	}

	claim := &models.Claim{
		ID:         s.newID(),
		ContractID: contract.ID,
		Number:     nextClaimNumber(existing),
		Date:       dateOnly(in.Date),
		Status:     in.Status,
		Items:      items,
		Totals:     calc.ComputeClaimTotals(items, contract.GSTRate),
		Changelog: []models.ChangeEntry{{
			Timestamp:    s.now(),
			FieldChanged: "status",
			OldValue:     nil,
			NewValue:     string(in.Status),
		}},
	}

	if err := s.gw.SaveClaim(ctx, claim); err != nil {
		return nil, err
	}

	s.addCount(ctx, s.claimsCreated, metric.WithAttributes(attribute.String("seed", string(in.Seed))))
	logger.Log.Info().
		Str("claim_id", claim.ID).
		Str("contract_id", contract.ID).
		Int("number", claim.Number).
		Str("seed", string(in.Seed)).
		Msg("Claim created")

	return claim, nil
}

// nextClaimNumber is max(existing numbers, 0) + 1. Deleting the highest claim
// frees its number for reuse.
func nextClaimNumber(existing []models.Claim) int {
	highest := 0
	for _, c := range existing {
		if c.Number > highest {
			highest = c.Number
		}
	}
	return highest + 1
}

func (s *Service) seedItems(
	seed SeedStrategy,
	contract *models.Contract,
	existing []models.Claim,
	sourceID string,
) ([]models.LineItem, error) {
	switch seed {
	case SeedBlank:
		return []models.LineItem{}, nil
	case SeedTemplate:
		return s.templateItems(contract), nil
	case SeedClone:
		source := latestClaim(existing)
		if sourceID != "" {
			source = nil
			for i := range existing {
				if existing[i].ID == sourceID {
					source = &existing[i]
					break
				}
			}
			if source == nil {
				return nil, fmt.Errorf("source claim %s: %w", sourceID, models.ErrNotFound)
			}
		}
		if source == nil {
			return s.templateItems(contract), nil
		}
		return s.cloneItems(source.Items), nil
	default:
		return nil, fmt.Errorf("%w: unknown seed strategy %q", models.ErrValidation, seed)
	}
}

func latestClaim(existing []models.Claim) *models.Claim {
	var latest *models.Claim
	for i := range existing {
		if latest == nil || existing[i].Number > latest.Number {
			latest = &existing[i]
		}
	}
	return latest
}

// templateItems copies the contract template with fresh IDs and no progress.
func (s *Service) templateItems(contract *models.Contract) []models.LineItem {
	items := make([]models.LineItem, 0, len(contract.TemplateItems))
	for _, t := range contract.TemplateItems {
		items = append(items, models.LineItem{
			ID:              s.newID(),
			Description:     t.Description,
			ContractValue:   t.ContractValue,
			PercentComplete: decimal.Zero,
			PreviousClaim:   decimal.Zero,
			ThisClaim:       decimal.Zero,
		})
	}
	return items
}

// cloneItems rolls the previous period's claim into PreviousClaim.
func (s *Service) cloneItems(prev []models.LineItem) []models.LineItem {
	items := make([]models.LineItem, 0, len(prev))
	for _, p := range prev {
		items = append(items, models.LineItem{
			ID:              s.newID(),
			Description:     p.Description,
			ContractValue:   p.ContractValue,
			PercentComplete: p.PercentComplete,
			PreviousClaim:   p.PreviousClaim.Add(p.ThisClaim),
			ThisClaim:       decimal.Zero,
		})
	}
	return items
}

// GetClaim returns a claim by ID.
func (s *Service) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	return s.gw.GetClaim(ctx, id)
}

// ListClaims returns a contract's claims in number order.
func (s *Service) ListClaims(ctx context.Context, contractID string) ([]models.Claim, error) {
	if _, err := s.gw.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	return s.gw.GetClaimsByContract(ctx, contractID)
}

// UpdateClaim merges upd into the claim and persists the whole record.
// When items change they are recalculated and the totals recomputed from them.
// A non-nil change is appended to the changelog with the current time.
func (s *Service) UpdateClaim(ctx context.Context, id string, upd ClaimUpdate, change *Change) (claim *models.Claim, err error) {
	ctx, span := s.startSpan(ctx, "claims.UpdateClaim")
	defer func() { endSpan(span, err) }()

	return s.mutateClaim(ctx, id, func(_ *models.Contract, c *models.Claim) (*Change, error) {
		if upd.Status != nil {
			if !upd.Status.Valid() {
				return nil, fmt.Errorf("%w: unknown claim status %q", models.ErrValidation, *upd.Status)
			}
			c.Status = *upd.Status
		}
		if upd.Date != nil {
			c.Date = dateOnly(*upd.Date)
		}
		if upd.Items != nil {
			c.Items = models.CloneItems(*upd.Items)
			if c.Items == nil {
				c.Items = []models.LineItem{}
			}
		}
		return change, nil
	})
}

// mutateClaim runs fn against a fresh copy of the claim under its contract lock,
// then recalculates and saves it.
func (s *Service) mutateClaim(
	ctx context.Context,
	id string,
	fn func(contract *models.Contract, claim *models.Claim) (*Change, error),
) (*models.Claim, error) {
	current, err := s.gw.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(current.ContractID)
	defer unlock()

	claim, err := s.gw.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	contract, err := s.gw.GetContract(ctx, claim.ContractID)
	if err != nil {
		return nil, err
	}

	previousStatus := claim.Status
	change, err := fn(contract, claim)
	if err != nil {
		return nil, err
	}

	claim.Items = calc.RecalculateItems(claim.Items)
	claim.Totals = calc.ComputeClaimTotals(claim.Items, contract.GSTRate)

	if change != nil {
		claim.Changelog = append(claim.Changelog, models.ChangeEntry{
			Timestamp:    s.now(),
			FieldChanged: change.Field,
			OldValue:     change.OldValue,
			NewValue:     change.NewValue,
		})
	}

	if err := s.gw.SaveClaim(ctx, claim); err != nil {
		return nil, err
	}

	if claim.Status != previousStatus {
		s.addCount(ctx, s.statusChanges, metric.WithAttributes(attribute.String("status", string(claim.Status))))
		logger.Log.Info().
			Str("claim_id", claim.ID).
			Str("from", string(previousStatus)).
			Str("to", string(claim.Status)).
			Msg("Claim status changed")
	}

	return claim, nil
}

// SetStatus moves a claim to status and records the transition.
// Any status may be set from any other.
func (s *Service) SetStatus(ctx context.Context, id string, status models.ClaimStatus) (*models.Claim, error) {
	ctx, span := s.startSpan(ctx, "claims.SetStatus")
	var err error
	defer func() { endSpan(span, err) }()

	var claim *models.Claim
	claim, err = s.mutateClaim(ctx, id, func(_ *models.Contract, c *models.Claim) (*Change, error) {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown claim status %q", models.ErrValidation, status)
		}
		if c.Status == status {
			return nil, nil
		}
		old := c.Status
		c.Status = status
		return &Change{Field: "status", OldValue: string(old), NewValue: string(status)}, nil
	})
	return claim, err
}

// SetItemProgress sets an item's percent complete. Out-of-range values are
// rejected with models.ErrValidation and the claim is left unchanged; a
// regression is applied and reported through the returned Validation.
func (s *Service) SetItemProgress(
	ctx context.Context,
	claimID string,
	itemIndex int,
	percent decimal.Decimal,
) (*models.Claim, calc.Validation, error) {
	var validation calc.Validation

	claim, err := s.mutateClaim(ctx, claimID, func(_ *models.Contract, c *models.Claim) (*Change, error) {
		if itemIndex < 0 || itemIndex >= len(c.Items) {
			return nil, fmt.Errorf("item %d on claim %d: %w", itemIndex+1, c.Number, models.ErrNotFound)
		}
		item := &c.Items[itemIndex]

		validation = calc.ValidatePercentComplete(percent, item.PercentComplete)
		if !validation.Valid {
			return nil, fmt.Errorf("%w: %s", models.ErrValidation, validation.Warning)
		}

		old := item.PercentComplete
		item.PercentComplete = percent
		return &Change{
			Field:    fmt.Sprintf("items[%d].percentComplete", itemIndex),
			OldValue: old.String(),
			NewValue: percent.String(),
		}, nil
	})
	if err != nil {
		return nil, validation, err
	}

	if validation.Warning != "" {
		logger.Log.Warn().
			Str("claim_id", claimID).
			Int("item", itemIndex+1).
			Msg("Percent complete decreased")
	}
	return claim, validation, nil
}

// AddClaimItem appends a new item to a claim.
func (s *Service) AddClaimItem(
	ctx context.Context,
	claimID string,
	description string,
	contractValue decimal.Decimal,
) (*models.Claim, error) {
	item, err := s.newLineItem(description, contractValue)
	if err != nil {
		return nil, err
	}

	return s.mutateClaim(ctx, claimID, func(_ *models.Contract, c *models.Claim) (*Change, error) {
		c.Items = append(c.Items, item)
		return &Change{Field: "items", OldValue: nil, NewValue: item.Description}, nil
	})
}

// RemoveClaimItem removes the item at itemIndex from a claim.
func (s *Service) RemoveClaimItem(ctx context.Context, claimID string, itemIndex int) (*models.Claim, error) {
	return s.mutateClaim(ctx, claimID, func(_ *models.Contract, c *models.Claim) (*Change, error) {
		if itemIndex < 0 || itemIndex >= len(c.Items) {
			return nil, fmt.Errorf("item %d on claim %d: %w", itemIndex+1, c.Number, models.ErrNotFound)
		}
		removed := c.Items[itemIndex]
		c.Items = append(c.Items[:itemIndex:itemIndex], c.Items[itemIndex+1:]...)
		return &Change{Field: "items", OldValue: removed.Description, NewValue: nil}, nil
	})
}

// RemoveClaim deletes a claim and its attachments.
func (s *Service) RemoveClaim(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "claims.RemoveClaim")
	defer func() { endSpan(span, err) }()

	claim, err := s.gw.GetClaim(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(claim.ContractID)
	defer unlock()

	if err = s.gw.DeleteClaim(ctx, id); err != nil {
		return err
	}

	logger.Log.Info().Str("claim_id", id).Int("number", claim.Number).Msg("Claim removed")
	return nil
}

// SanityCheck returns advisory warnings for a claim against its contract.
func (s *Service) SanityCheck(ctx context.Context, claimID string) ([]string, error) {
	claim, err := s.gw.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	contract, err := s.gw.GetContract(ctx, claim.ContractID)
	if err != nil {
		return nil, err
	}
	return calc.SanityCheck(*claim, contract.ContractValue), nil
}

func (s *Service) newLineItem(description string, contractValue decimal.Decimal) (models.LineItem, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return models.LineItem{}, fmt.Errorf("%w: item description is required", models.ErrValidation)
	}
	if len(description) > models.MaxDescriptionLength {
		return models.LineItem{}, fmt.Errorf("%w: item description exceeds %d characters",
			models.ErrValidation, models.MaxDescriptionLength)
	}
	if contractValue.IsNegative() {
		return models.LineItem{}, fmt.Errorf("%w: item value must not be negative", models.ErrValidation)
	}
	return models.LineItem{
		ID:            s.newID(),
		Description:   description,
		ContractValue: calc.RoundCents(contractValue),
	}, nil
}
