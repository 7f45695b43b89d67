package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/claimspro/internal/database"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// Store is the PostgreSQL-backed persistence gateway. Multi-step operations
// such as cascading deletes and bulk import each run in a single transaction.
type Store struct {
	db          database.DB
	blobs       BlobStore
	contracts   *ContractRepository
	claims      *ClaimRepository
	attachments *AttachmentRepository
	settings    *SettingsRepository
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBlobStore keeps attachment payloads in blobs instead of the attachments table.
func WithBlobStore(blobs BlobStore) StoreOption {
	return func(s *Store) {
		s.blobs = blobs
	}
}

// NewStore creates a Store over a pool or transaction.
func NewStore(db database.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:          db,
		contracts:   NewContractRepository(db),
		claims:      NewClaimRepository(db),
		attachments: NewAttachmentRepository(db),
		settings:    NewSettingsRepository(db),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return dbError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return dbError("commit transaction", err)
	}
	return nil
}

// GetAllContracts retrieves every contract.
func (s *Store) GetAllContracts(ctx context.Context) ([]models.Contract, error) {
	return s.contracts.GetAll(ctx)
}

// GetContract retrieves a contract by ID.
func (s *Store) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	return s.contracts.GetByID(ctx, id)
}

// SaveContract upserts a contract.
func (s *Store) SaveContract(ctx context.Context, c *models.Contract) error {
	return s.contracts.Save(ctx, c)
}

// DeleteContract removes a contract along with its claims and their attachments.
func (s *Store) DeleteContract(ctx context.Context, id string) error {
	var keys []string
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if keys, err = NewAttachmentRepository(tx).ObjectKeysByContract(ctx, id); err != nil {
			return err
		}
		return NewContractRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.removeBlobs(ctx, keys)
	return nil
}

// GetAllClaims retrieves every claim.
func (s *Store) GetAllClaims(ctx context.Context) ([]models.Claim, error) {
	return s.claims.GetAll(ctx)
}

// GetClaimsByContract retrieves a contract's claims in number order.
func (s *Store) GetClaimsByContract(ctx context.Context, contractID string) ([]models.Claim, error) {
	return s.claims.GetByContract(ctx, contractID)
}

// GetClaim retrieves a claim by ID.
func (s *Store) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	return s.claims.GetByID(ctx, id)
}

// SaveClaim upserts a claim.
func (s *Store) SaveClaim(ctx context.Context, c *models.Claim) error {
	return s.claims.Save(ctx, c)
}

// DeleteClaim removes a claim and then its attachments in one transaction.
func (s *Store) DeleteClaim(ctx context.Context, id string) error {
	var keys []string
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		attachments := NewAttachmentRepository(tx)
		var err error
		if keys, err = attachments.ObjectKeysByClaim(ctx, id); err != nil {
			return err
		}
		if err := NewClaimRepository(tx).Delete(ctx, id); err != nil {
			return err
		}
		return attachments.DeleteByClaimID(ctx, id)
	})
	if err != nil {
		return err
	}
	s.removeBlobs(ctx, keys)
	return nil
}

// GetAttachmentsByClaimID retrieves a claim's attachments with their content.
func (s *Store) GetAttachmentsByClaimID(ctx context.Context, claimID string) ([]models.Attachment, error) {
	stored, err := s.attachments.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Attachment, 0, len(stored))
	for i := range stored {
		a, err := s.loadContent(ctx, &stored[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// GetAttachment retrieves an attachment with its content.
func (s *Store) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	stored, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.loadContent(ctx, stored)
}

// SaveAttachment upserts an attachment, uploading its content to the blob store when one is configured.
func (s *Store) SaveAttachment(ctx context.Context, a *models.Attachment) error {
	stored := &StoredAttachment{Attachment: *a}
	if s.blobs != nil {
		stored.ObjectKey = attachmentObjectKey(a)
		stored.Content = nil
		if err := s.blobs.Put(ctx, stored.ObjectKey, a.Content, a.MIMEType); err != nil {
			return err
		}
	}

	if err := s.attachments.Save(ctx, stored); err != nil {
		if stored.ObjectKey != "" {
			s.removeBlobs(ctx, []string{stored.ObjectKey})
		}
		return err
	}
	return nil
}

// DeleteAttachment removes an attachment and its stored payload.
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	stored, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, id); err != nil {
		return err
	}
	if stored.ObjectKey != "" {
		s.removeBlobs(ctx, []string{stored.ObjectKey})
	}
	return nil
}

// GetSettings retrieves the settings singleton.
func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	return s.settings.Get(ctx)
}

// SaveSettings upserts the settings singleton.
func (s *Store) SaveSettings(ctx context.Context, settings *models.Settings) error {
	return s.settings.Save(ctx, settings)
}

// ReplaceAll atomically replaces every contract, claim and the settings.
// Attachments of claims that survive the import are left untouched; attachments
// of claims absent from the import go with their claim.
func (s *Store) ReplaceAll(
	ctx context.Context,
	contracts []models.Contract,
	claims []models.Claim,
	settings *models.Settings,
) error {
	contractIDs := make([]string, 0, len(contracts))
	for _, c := range contracts {
		contractIDs = append(contractIDs, c.ID)
	}
	claimIDs := make([]string, 0, len(claims))
	for _, c := range claims {
		claimIDs = append(claimIDs, c.ID)
	}

	var keys []string
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SET CONSTRAINTS claims_contract_number_key DEFERRED`); err != nil {
			return dbError("defer claim number constraint", err)
		}

		var err error
		if keys, err = NewAttachmentRepository(tx).ObjectKeysExceptClaims(ctx, claimIDs); err != nil {
			return err
		}

		claimRepo := NewClaimRepository(tx)
		contractRepo := NewContractRepository(tx)
		settingsRepo := NewSettingsRepository(tx)

		if err := claimRepo.DeleteExcept(ctx, claimIDs); err != nil {
			return err
		}
		if err := contractRepo.DeleteExcept(ctx, contractIDs); err != nil {
			return err
		}
		if err := settingsRepo.Delete(ctx); err != nil {
			return err
		}

		for i := range contracts {
			if err := contractRepo.Save(ctx, &contracts[i]); err != nil {
				return fmt.Errorf("import contract %s: %w", contracts[i].ID, err)
			}
		}
		for i := range claims {
			if err := claimRepo.Save(ctx, &claims[i]); err != nil {
				return fmt.Errorf("import claim %s: %w", claims[i].ID, err)
			}
		}
		if settings != nil {
			if err := settingsRepo.Save(ctx, settings); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.removeBlobs(ctx, keys)
	return nil
}

func (s *Store) loadContent(ctx context.Context, stored *StoredAttachment) (*models.Attachment, error) {
	a := stored.Attachment
	if stored.ObjectKey == "" {
		return &a, nil
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("attachment %s is stored externally but no blob store is configured: %w",
			a.ID, models.ErrPersistence)
	}

	content, err := s.blobs.Get(ctx, stored.ObjectKey)
	if err != nil {
		return nil, err
	}
	a.Content = content
	return &a, nil
}

// removeBlobs deletes payloads after their rows are gone. Failures only leave orphaned objects.
func (s *Store) removeBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			logger.Log.Warn().Err(err).Str("object_key", key).Msg("Failed to remove attachment payload")
		}
	}
}
