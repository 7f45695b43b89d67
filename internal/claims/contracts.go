package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/calc"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// ContractInput holds the editable contract fields.
// A nil GSTRate uses the configured default rate.
type ContractInput struct {
	Name          string
	ABN           string
	Client        models.ClientInfo
	ContractValue decimal.Decimal
	GSTRate       *decimal.Decimal
}

func (in ContractInput) validate() error {
	var problems []string
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "contract name is required")
	}
	if in.ContractValue.IsNegative() {
		problems = append(problems, "contract value must not be negative")
	}
	if in.GSTRate != nil {
		if err := models.CheckGSTRate(*in.GSTRate); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// CreateContract validates and stores a new contract with an empty template.
func (s *Service) CreateContract(ctx context.Context, in ContractInput) (contract *models.Contract, err error) {
	ctx, span := s.startSpan(ctx, "claims.CreateContract")
	defer func() { endSpan(span, err) }()

	if err = in.validate(); err != nil {
		return nil, err
	}

	rate, err := s.gstRate(ctx, in.GSTRate)
	if err != nil {
		return nil, err
	}

	contract = &models.Contract{
		ID:            s.newID(),
		Name:          strings.TrimSpace(in.Name),
		ABN:           strings.TrimSpace(in.ABN),
		ClientInfo:    in.Client,
		ContractValue: calc.RoundCents(in.ContractValue),
		GSTRate:       rate,
		TemplateItems: []models.LineItem{},
		CreatedAt:     s.now(),
	}
	if err = s.gw.SaveContract(ctx, contract); err != nil {
		return nil, err
	}

	logger.Log.Info().Str("contract_id", contract.ID).Msg("Contract created")
	return contract, nil
}

// UpdateContract replaces a contract's editable fields, keeping its template.
// A GST rate change recomputes the totals of every claim on the contract.
func (s *Service) UpdateContract(ctx context.Context, id string, in ContractInput) (contract *models.Contract, err error) {
	ctx, span := s.startSpan(ctx, "claims.UpdateContract")
	defer func() { endSpan(span, err) }()

	if err = in.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	contract, err = s.gw.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	previousRate := contract.GSTRate

	contract.Name = strings.TrimSpace(in.Name)
	contract.ABN = strings.TrimSpace(in.ABN)
	contract.ClientInfo = in.Client
	contract.ContractValue = calc.RoundCents(in.ContractValue)
	if in.GSTRate != nil {
		contract.GSTRate = *in.GSTRate
	}
	if err = s.gw.SaveContract(ctx, contract); err != nil {
		return nil, err
	}

	if !contract.GSTRate.Equal(previousRate) {
		if err = s.retotalClaims(ctx, contract); err != nil {
			return nil, err
		}
	}

	logger.Log.Info().Str("contract_id", contract.ID).Msg("Contract updated")
	return contract, nil
}

// retotalClaims recomputes stored claim totals at the contract's current GST rate.
// The caller holds the contract lock.
func (s *Service) retotalClaims(ctx context.Context, contract *models.Contract) error {
	existing, err := s.gw.GetClaimsByContract(ctx, contract.ID)
	if err != nil {
		return err
	}

	updated := 0
	for i := range existing {
		claim := &existing[i]
		totals := calc.ComputeClaimTotals(claim.Items, contract.GSTRate)
		if totals.ExGST.Equal(claim.Totals.ExGST) &&
			totals.GST.Equal(claim.Totals.GST) &&
			totals.IncGST.Equal(claim.Totals.IncGST) {
			continue
		}
		claim.Totals = totals
		if err := s.gw.SaveClaim(ctx, claim); err != nil {
			return fmt.Errorf("failed to update totals of claim %d: %w", claim.Number, err)
		}
		updated++
	}

	logger.Log.Info().
		Str("contract_id", contract.ID).
		Str("gst_rate", contract.GSTRate.String()).
		Int("claims", updated).
		Msg("Claim totals recomputed for new GST rate")
	return nil
}

// AddTemplateItem appends an item to the contract's template.
func (s *Service) AddTemplateItem(
	ctx context.Context,
	contractID string,
	description string,
	value decimal.Decimal,
) (*models.Contract, error) {
	item, err := s.newLineItem(description, value)
	if err != nil {
		return nil, err
	}

	return s.mutateContract(ctx, contractID, func(c *models.Contract) error {
		c.TemplateItems = append(c.TemplateItems, item)
		return nil
	})
}

// RemoveTemplateItem removes the template item at index.
func (s *Service) RemoveTemplateItem(ctx context.Context, contractID string, index int) (*models.Contract, error) {
	return s.mutateContract(ctx, contractID, func(c *models.Contract) error {
		if index < 0 || index >= len(c.TemplateItems) {
			return fmt.Errorf("template item %d: %w", index+1, models.ErrNotFound)
		}
		c.TemplateItems = append(c.TemplateItems[:index:index], c.TemplateItems[index+1:]...)
		return nil
	})
}

func (s *Service) mutateContract(ctx context.Context, id string, fn func(c *models.Contract) error) (*models.Contract, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	contract, err := s.gw.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(contract); err != nil {
		return nil, err
	}
	if err := s.gw.SaveContract(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// DeleteContract removes a contract with all its claims and their attachments.
func (s *Service) DeleteContract(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "claims.DeleteContract")
	defer func() { endSpan(span, err) }()

	unlock := s.locks.lock(id)
	defer unlock()

	if err = s.gw.DeleteContract(ctx, id); err != nil {
		return err
	}
	logger.Log.Info().Str("contract_id", id).Msg("Contract deleted")
	return nil
}

// GetContract returns a contract by ID.
func (s *Service) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	return s.gw.GetContract(ctx, id)
}

// ListContracts returns every contract, newest first.
func (s *Service) ListContracts(ctx context.Context) ([]models.Contract, error) {
	return s.gw.GetAllContracts(ctx)
}

// ContractProgress reports how much of a contract has been claimed, based on
// its latest claim, or on the template when nothing has been claimed yet.
func (s *Service) ContractProgress(ctx context.Context, contractID string) (calc.Progress, error) {
	contract, err := s.gw.GetContract(ctx, contractID)
	if err != nil {
		return calc.Progress{}, err
	}
	existing, err := s.gw.GetClaimsByContract(ctx, contractID)
	if err != nil {
		return calc.Progress{}, err
	}

	if latest := latestClaim(existing); latest != nil {
		return calc.ComputeContractProgress(latest.Items), nil
	}
	return calc.ComputeContractProgress(contract.TemplateItems), nil
}

func (s *Service) gstRate(ctx context.Context, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		return *explicit, nil
	}
	settings, err := s.gw.GetSettings(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return models.DefaultGSTRate, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return settings.DefaultGSTRate, nil
}
