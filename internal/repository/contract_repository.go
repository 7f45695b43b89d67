package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/claimspro/internal/database"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

const contractColumns = `id, name, abn, client_name, client_email, client_phone,
	contract_value, gst_rate, template_items, created_at`

// ContractRepository handles contract database operations.
type ContractRepository struct {
	db database.PGXDB
}

// NewContractRepository creates a new ContractRepository.
func NewContractRepository(db database.PGXDB) *ContractRepository {
	return &ContractRepository{db: db}
}

// GetAll retrieves every contract, newest first.
func (r *ContractRepository) GetAll(ctx context.Context) ([]models.Contract, error) {
	rows, err := r.db.Query(ctx, `SELECT `+contractColumns+` FROM contracts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, dbError("query contracts", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// GetByID retrieves a contract by ID.
func (r *ContractRepository) GetByID(ctx context.Context, id string) (*models.Contract, error) {
	row := r.db.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if err != nil {
		return nil, dbError("get contract", err)
	}
	return c, nil
}

// Save inserts or replaces a contract by ID.
func (r *ContractRepository) Save(ctx context.Context, c *models.Contract) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			abn = EXCLUDED.abn,
			client_name = EXCLUDED.client_name,
			client_email = EXCLUDED.client_email,
			client_phone = EXCLUDED.client_phone,
			contract_value = EXCLUDED.contract_value,
			gst_rate = EXCLUDED.gst_rate,
			template_items = EXCLUDED.template_items
	`, c.ID, c.Name, c.ABN, c.ClientInfo.Name, c.ClientInfo.Email, c.ClientInfo.Phone,
		c.ContractValue, c.GSTRate, nonNilItems(c.TemplateItems), c.CreatedAt)
	if err != nil {
		return dbError("save contract", err)
	}
	return nil
}

// Delete removes a contract. Claims and attachments go with it via ON DELETE CASCADE.
func (r *ContractRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return dbError("delete contract", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete contract %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// DeleteExcept removes every contract whose ID is not in keep, cascading to claims and attachments.
func (r *ContractRepository) DeleteExcept(ctx context.Context, keep []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM contracts WHERE NOT (id = ANY($1))`, nonNilIDs(keep)); err != nil {
		return dbError("clear contracts", err)
	}
	return nil
}

func scanContract(row rowScanner) (*models.Contract, error) {
	var c models.Contract
	if err := row.Scan(
		&c.ID, &c.Name, &c.ABN, &c.ClientInfo.Name, &c.ClientInfo.Email, &c.ClientInfo.Phone,
		&c.ContractValue, &c.GSTRate, &c.TemplateItems, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanContracts(rows rowsScanner) ([]models.Contract, error) {
	var contracts []models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, dbError("scan contract", err)
		}
		contracts = append(contracts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate contracts", err)
	}
	return contracts, nil
}

func nonNilItems(items []models.LineItem) []models.LineItem {
	if items == nil {
		return []models.LineItem{}
	}
	return items
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
