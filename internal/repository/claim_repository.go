package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/claimspro/internal/database"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

const claimColumns = `id, contract_id, claim_number, claim_date, status, items,
	total_ex_gst, total_gst, total_inc_gst, changelog`

// ClaimRepository handles claim database operations.
type ClaimRepository struct {
	db database.PGXDB
}

// NewClaimRepository creates a new ClaimRepository.
func NewClaimRepository(db database.PGXDB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// GetAll retrieves every claim ordered by contract and number.
func (r *ClaimRepository) GetAll(ctx context.Context) ([]models.Claim, error) {
	rows, err := r.db.Query(ctx, `SELECT `+claimColumns+` FROM claims ORDER BY contract_id, claim_number`)
	if err != nil {
		return nil, dbError("query claims", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// GetByContract retrieves a contract's claims in claim-number order.
func (r *ClaimRepository) GetByContract(ctx context.Context, contractID string) ([]models.Claim, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE contract_id = $1
		ORDER BY claim_number
	`, contractID)
	if err != nil {
		return nil, dbError("query claims by contract", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// GetByID retrieves a claim by ID.
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*models.Claim, error) {
	row := r.db.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	c, err := scanClaim(row)
	if err != nil {
		return nil, dbError("get claim", err)
	}
	return c, nil
}

// Save inserts or replaces a claim by ID.
func (r *ClaimRepository) Save(ctx context.Context, c *models.Claim) error {
	changelog := c.Changelog
	if changelog == nil {
		changelog = []models.ChangeEntry{}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			contract_id = EXCLUDED.contract_id,
			claim_number = EXCLUDED.claim_number,
			claim_date = EXCLUDED.claim_date,
			status = EXCLUDED.status,
			items = EXCLUDED.items,
			total_ex_gst = EXCLUDED.total_ex_gst,
			total_gst = EXCLUDED.total_gst,
			total_inc_gst = EXCLUDED.total_inc_gst,
			changelog = EXCLUDED.changelog,
			updated_at = NOW()
	`, c.ID, c.ContractID, c.Number, c.Date, c.Status, nonNilItems(c.Items),
		c.Totals.ExGST, c.Totals.GST, c.Totals.IncGST, changelog)
	if err != nil {
		return dbError("save claim", err)
	}
	return nil
}

// Delete removes a claim. Its attachment rows go with it via ON DELETE CASCADE.
func (r *ClaimRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM claims WHERE id = $1`, id)
	if err != nil {
		return dbError("delete claim", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete claim %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// DeleteExcept removes every claim whose ID is not in keep.
func (r *ClaimRepository) DeleteExcept(ctx context.Context, keep []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM claims WHERE NOT (id = ANY($1))`, nonNilIDs(keep)); err != nil {
		return dbError("clear claims", err)
	}
	return nil
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var c models.Claim
	if err := row.Scan(
		&c.ID, &c.ContractID, &c.Number, &c.Date, &c.Status, &c.Items,
		&c.Totals.ExGST, &c.Totals.GST, &c.Totals.IncGST, &c.Changelog,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanClaims(rows rowsScanner) ([]models.Claim, error) {
	var claims []models.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, dbError("scan claim", err)
		}
		claims = append(claims, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate claims", err)
	}
	return claims, nil
}
