package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS contracts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			abn TEXT NOT NULL DEFAULT '',
			client_name TEXT NOT NULL DEFAULT '',
			client_email TEXT NOT NULL DEFAULT '',
			client_phone TEXT NOT NULL DEFAULT '',
			contract_value DECIMAL(14, 2) NOT NULL CHECK (contract_value >= 0),
			gst_rate DECIMAL(6, 4) NOT NULL DEFAULT 0.1 CHECK (gst_rate >= 0 AND gst_rate <= 1),
			template_items JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
			claim_number INTEGER NOT NULL CHECK (claim_number > 0),
			claim_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'Draft',
			items JSONB NOT NULL DEFAULT '[]',
			total_ex_gst DECIMAL(14, 2) NOT NULL DEFAULT 0,
			total_gst DECIMAL(14, 2) NOT NULL DEFAULT 0,
			total_inc_gst DECIMAL(14, 2) NOT NULL DEFAULT 0,
			changelog JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT claims_contract_number_key UNIQUE (contract_id, claim_number)
				DEFERRABLE INITIALLY IMMEDIATE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_claims_contract_id ON claims(contract_id)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_claim_date ON claims(claim_date)`,

		`CREATE TABLE IF NOT EXISTS attachments (
			id TEXT PRIMARY KEY,
			claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL DEFAULT 'application/octet-stream',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			content BYTEA,
			object_key TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_attachments_claim_id ON attachments(claim_id)`,

		`CREATE TABLE IF NOT EXISTS settings (
			id TEXT PRIMARY KEY DEFAULT 'default' CHECK (id = 'default'),
			company_name TEXT NOT NULL DEFAULT '',
			company_abn TEXT NOT NULL DEFAULT '',
			default_gst_rate DECIMAL(6, 4) NOT NULL DEFAULT 0.1,
			admin_password_hash TEXT NOT NULL,
			session_timeout_seconds BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
