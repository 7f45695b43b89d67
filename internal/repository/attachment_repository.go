package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/claimspro/internal/database"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

const attachmentColumns = `id, claim_id, file_name, mime_type, size_bytes, content, object_key, created_at`

// StoredAttachment is an attachment row. When ObjectKey is set the content
// lives in the blob store and Content is empty.
type StoredAttachment struct {
	models.Attachment
	ObjectKey string
}

// AttachmentRepository handles attachment database operations.
type AttachmentRepository struct {
	db database.PGXDB
}

// NewAttachmentRepository creates a new AttachmentRepository.
func NewAttachmentRepository(db database.PGXDB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// GetByClaimID retrieves a claim's attachments, oldest first.
func (r *AttachmentRepository) GetByClaimID(ctx context.Context, claimID string) ([]StoredAttachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+attachmentColumns+` FROM attachments
		WHERE claim_id = $1
		ORDER BY created_at, id
	`, claimID)
	if err != nil {
		return nil, dbError("query attachments", err)
	}
	defer rows.Close()

	return scanAttachments(rows)
}

// GetByID retrieves an attachment by ID.
func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*StoredAttachment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = $1`, id)
	a, err := scanAttachment(row)
	if err != nil {
		return nil, dbError("get attachment", err)
	}
	return a, nil
}

// ObjectKeysByClaim lists blob keys for a claim's externally stored attachments.
func (r *AttachmentRepository) ObjectKeysByClaim(ctx context.Context, claimID string) ([]string, error) {
	return r.objectKeys(ctx, `
		SELECT object_key FROM attachments
		WHERE claim_id = $1 AND object_key IS NOT NULL
	`, claimID)
}

// ObjectKeysByContract lists blob keys for every attachment under a contract's claims.
func (r *AttachmentRepository) ObjectKeysByContract(ctx context.Context, contractID string) ([]string, error) {
	return r.objectKeys(ctx, `
		SELECT a.object_key FROM attachments a
		JOIN claims c ON a.claim_id = c.id
		WHERE c.contract_id = $1 AND a.object_key IS NOT NULL
	`, contractID)
}

// ObjectKeysExceptClaims lists blob keys for attachments whose claim is not in keep.
func (r *AttachmentRepository) ObjectKeysExceptClaims(ctx context.Context, keep []string) ([]string, error) {
	return r.objectKeys(ctx, `
		SELECT object_key FROM attachments
		WHERE NOT (claim_id = ANY($1)) AND object_key IS NOT NULL
	`, nonNilIDs(keep))
}

func (r *AttachmentRepository) objectKeys(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, dbError("query attachment object keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, dbError("scan attachment object key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate attachment object keys", err)
	}
	return keys, nil
}

// Save inserts or replaces an attachment row.
func (r *AttachmentRepository) Save(ctx context.Context, a *StoredAttachment) error {
	var content []byte
	var objectKey *string
	if a.ObjectKey != "" {
		objectKey = &a.ObjectKey
	} else {
		content = a.Content
		if content == nil {
			content = []byte{}
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO attachments (`+attachmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			claim_id = EXCLUDED.claim_id,
			file_name = EXCLUDED.file_name,
			mime_type = EXCLUDED.mime_type,
			size_bytes = EXCLUDED.size_bytes,
			content = EXCLUDED.content,
			object_key = EXCLUDED.object_key
	`, a.ID, a.ClaimID, a.FileName, a.MIMEType, a.Size, content, objectKey, a.CreatedAt)
	if err != nil {
		return dbError("save attachment", err)
	}
	return nil
}

// Delete removes an attachment row.
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return dbError("delete attachment", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete attachment %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// DeleteByClaimID removes every attachment row of a claim.
func (r *AttachmentRepository) DeleteByClaimID(ctx context.Context, claimID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE claim_id = $1`, claimID); err != nil {
		return dbError("delete claim attachments", err)
	}
	return nil
}

func scanAttachment(row rowScanner) (*StoredAttachment, error) {
	var a StoredAttachment
	var objectKey *string
	if err := row.Scan(
		&a.ID, &a.ClaimID, &a.FileName, &a.MIMEType, &a.Size, &a.Content, &objectKey, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if objectKey != nil {
		a.ObjectKey = *objectKey
	}
	return &a, nil
}

func scanAttachments(rows rowsScanner) ([]StoredAttachment, error) {
	var attachments []StoredAttachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, dbError("scan attachment", err)
		}
		attachments = append(attachments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate attachments", err)
	}
	return attachments, nil
}
