package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

// MemoryStore is an in-process persistence gateway with the same semantics as Store.
// Values are copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	contracts   map[string]models.Contract
	claims      map[string]models.Claim
	attachments map[string]models.Attachment
	settings    *models.Settings
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contracts:   make(map[string]models.Contract),
		claims:      make(map[string]models.Claim),
		attachments: make(map[string]models.Attachment),
	}
}

// GetAllContracts returns every contract, newest first.
func (s *MemoryStore) GetAllContracts(_ context.Context) ([]models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		out = append(out, copyContract(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetContract returns a contract by ID.
func (s *MemoryStore) GetContract(_ context.Context, id string) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("failed to get contract %s: %w", id, models.ErrNotFound)
	}
	c = copyContract(c)
	return &c, nil
}

// SaveContract upserts a contract.
func (s *MemoryStore) SaveContract(_ context.Context, c *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contracts[c.ID] = copyContract(*c)
	return nil
}

// DeleteContract removes a contract, its claims and their attachments.
func (s *MemoryStore) DeleteContract(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[id]; !ok {
		return fmt.Errorf("failed to delete contract %s: %w", id, models.ErrNotFound)
	}
	for claimID, claim := range s.claims {
		if claim.ContractID == id {
			s.deleteClaimLocked(claimID)
		}
	}
	delete(s.contracts, id)
	return nil
}

// GetAllClaims returns every claim ordered by contract and number.
func (s *MemoryStore) GetAllClaims(_ context.Context) ([]models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, copyClaim(c))
	}
	sortClaims(out)
	return out, nil
}

// GetClaimsByContract returns a contract's claims in number order.
func (s *MemoryStore) GetClaimsByContract(_ context.Context, contractID string) ([]models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Claim
	for _, c := range s.claims {
		if c.ContractID == contractID {
			out = append(out, copyClaim(c))
		}
	}
	sortClaims(out)
	return out, nil
}

// GetClaim returns a claim by ID.
func (s *MemoryStore) GetClaim(_ context.Context, id string) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id]
	if !ok {
		return nil, fmt.Errorf("failed to get claim %s: %w", id, models.ErrNotFound)
	}
	c = copyClaim(c)
	return &c, nil
}

// SaveClaim upserts a claim. Like the relational schema, it rejects a
// duplicate number within a contract and claims for unknown contracts.
func (s *MemoryStore) SaveClaim(_ context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[c.ContractID]; !ok {
		return fmt.Errorf("failed to save claim: contract %s: %w", c.ContractID, models.ErrPersistence)
	}
	for id, existing := range s.claims {
		if id != c.ID && existing.ContractID == c.ContractID && existing.Number == c.Number {
			return fmt.Errorf("failed to save claim: number %d already used by claim %s: %w",
				c.Number, id, models.ErrPersistence)
		}
	}
	s.claims[c.ID] = copyClaim(*c)
	return nil
}

// DeleteClaim removes a claim and its attachments.
func (s *MemoryStore) DeleteClaim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[id]; !ok {
		return fmt.Errorf("failed to delete claim %s: %w", id, models.ErrNotFound)
	}
	s.deleteClaimLocked(id)
	return nil
}

func (s *MemoryStore) deleteClaimLocked(id string) {
	delete(s.claims, id)
	for attID, a := range s.attachments {
		if a.ClaimID == id {
			delete(s.attachments, attID)
		}
	}
}

// GetAttachmentsByClaimID returns a claim's attachments, oldest first.
func (s *MemoryStore) GetAttachmentsByClaimID(_ context.Context, claimID string) ([]models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Attachment
	for _, a := range s.attachments {
		if a.ClaimID == claimID {
			out = append(out, copyAttachment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetAttachment returns an attachment by ID.
func (s *MemoryStore) GetAttachment(_ context.Context, id string) (*models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attachments[id]
	if !ok {
		return nil, fmt.Errorf("failed to get attachment %s: %w", id, models.ErrNotFound)
	}
	a = copyAttachment(a)
	return &a, nil
}

// SaveAttachment upserts an attachment. The owning claim must exist.
func (s *MemoryStore) SaveAttachment(_ context.Context, a *models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[a.ClaimID]; !ok {
		return fmt.Errorf("failed to save attachment: claim %s: %w", a.ClaimID, models.ErrPersistence)
	}
	s.attachments[a.ID] = copyAttachment(*a)
	return nil
}

// DeleteAttachment removes an attachment.
func (s *MemoryStore) DeleteAttachment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attachments[id]; !ok {
		return fmt.Errorf("failed to delete attachment %s: %w", id, models.ErrNotFound)
	}
	delete(s.attachments, id)
	return nil
}

// GetSettings returns the settings, or models.ErrNotFound before initialization.
func (s *MemoryStore) GetSettings(_ context.Context) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return nil, fmt.Errorf("failed to get settings: %w", models.ErrNotFound)
	}
	settings := *s.settings
	return &settings, nil
}

// SaveSettings replaces the settings.
func (s *MemoryStore) SaveSettings(_ context.Context, settings *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *settings
	s.settings = &copied
	return nil
}

// ReplaceAll swaps in the given contracts, claims and settings in one step.
// Attachments whose claim survives are kept.
func (s *MemoryStore) ReplaceAll(
	_ context.Context,
	contracts []models.Contract,
	claims []models.Claim,
	settings *models.Settings,
) error {
	nextContracts := make(map[string]models.Contract, len(contracts))
	for _, c := range contracts {
		nextContracts[c.ID] = copyContract(c)
	}

	nextClaims := make(map[string]models.Claim, len(claims))
	numbers := make(map[string]map[int]bool)
	for _, c := range claims {
		if _, ok := nextContracts[c.ContractID]; !ok {
			return fmt.Errorf("import claim %s: contract %s: %w", c.ID, c.ContractID, models.ErrPersistence)
		}
		if numbers[c.ContractID] == nil {
			numbers[c.ContractID] = make(map[int]bool)
		}
		if numbers[c.ContractID][c.Number] {
			return fmt.Errorf("import claim %s: duplicate number %d: %w", c.ID, c.Number, models.ErrPersistence)
		}
		numbers[c.ContractID][c.Number] = true
		nextClaims[c.ID] = copyClaim(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.attachments {
		if _, ok := nextClaims[a.ClaimID]; !ok {
			delete(s.attachments, id)
		}
	}
	s.contracts = nextContracts
	s.claims = nextClaims
	s.settings = nil
	if settings != nil {
		copied := *settings
		s.settings = &copied
	}
	return nil
}

func sortClaims(claims []models.Claim) {
	sort.Slice(claims, func(i, j int) bool {
		if claims[i].ContractID != claims[j].ContractID {
			return claims[i].ContractID < claims[j].ContractID
		}
		return claims[i].Number < claims[j].Number
	})
}

func copyContract(c models.Contract) models.Contract {
	c.TemplateItems = models.CloneItems(c.TemplateItems)
	return c
}

func copyClaim(c models.Claim) models.Claim {
	c.Items = models.CloneItems(c.Items)
	if c.Changelog != nil {
		c.Changelog = append([]models.ChangeEntry(nil), c.Changelog...)
	}
	return c
}

func copyAttachment(a models.Attachment) models.Attachment {
	if a.Content != nil {
		a.Content = append([]byte(nil), a.Content...)
	}
	return a
}
