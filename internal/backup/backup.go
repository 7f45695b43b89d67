// Package backup exports and imports the full contract, claim and settings state
// as a single versioned JSON document. Attachment payloads are not included.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gitlab.com/yelinaung/claimspro/internal/calc"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// SchemaVersion is written to every export. Documents from a newer schema are rejected.
const SchemaVersion = 1

// claimDateLayout is how claim dates appear in a backup.
const claimDateLayout = "2006-01-02"

// Document is the on-disk backup format. Claim dates are written as
// YYYY-MM-DD and the session timeout in milliseconds.
type Document struct {
	Contracts  []models.Contract
	Claims     []models.Claim
	Settings   []models.Settings
	Version    int
	ExportDate time.Time
}

type claimRecord struct {
	models.Claim
	Date string `json:"date"`
}

type settingsRecord struct {
	models.Settings
	SessionTimeout int64 `json:"sessionTimeout"`
}

type documentJSON struct {
	Contracts  []models.Contract `json:"contracts"`
	Claims     []claimRecord     `json:"claims"`
	Settings   []settingsRecord  `json:"settings"`
	Version    int               `json:"version"`
	ExportDate time.Time         `json:"exportDate"`
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{
		Contracts:  d.Contracts,
		Claims:     make([]claimRecord, len(d.Claims)),
		Settings:   make([]settingsRecord, len(d.Settings)),
		Version:    d.Version,
		ExportDate: d.ExportDate,
	}
	if out.Contracts == nil {
		out.Contracts = []models.Contract{}
	}
	for i, c := range d.Claims {
		out.Claims[i] = claimRecord{Claim: c, Date: c.Date.Format(claimDateLayout)}
	}
	for i, s := range d.Settings {
		out.Settings[i] = settingsRecord{Settings: s, SessionTimeout: s.SessionTimeout.Milliseconds()}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Claim dates may also be full
// RFC 3339 timestamps; only the calendar date is kept.
func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	claims := make([]models.Claim, len(in.Claims))
	for i, rec := range in.Claims {
		c := rec.Claim
		date, err := parseClaimDate(rec.Date)
		if err != nil {
			return fmt.Errorf("claim %s: %w", c.ID, err)
		}
		c.Date = date
		claims[i] = c
	}

	settings := make([]models.Settings, len(in.Settings))
	for i, rec := range in.Settings {
		s := rec.Settings
		s.SessionTimeout = time.Duration(rec.SessionTimeout) * time.Millisecond
		settings[i] = s
	}

	*d = Document{
		Contracts:  in.Contracts,
		Claims:     claims,
		Settings:   settings,
		Version:    in.Version,
		ExportDate: in.ExportDate,
	}
	return nil
}

func parseClaimDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(claimDateLayout, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
}

// Store is the persistence the backup reads from and replaces.
type Store interface {
	GetAllContracts(ctx context.Context) ([]models.Contract, error)
	GetAllClaims(ctx context.Context) ([]models.Claim, error)
	GetSettings(ctx context.Context) (*models.Settings, error)
	ReplaceAll(ctx context.Context, contracts []models.Contract, claims []models.Claim, settings *models.Settings) error
}

// Export snapshots the store into a Document stamped with now.
func Export(ctx context.Context, store Store, now time.Time) (*Document, error) {
	contracts, err := store.GetAllContracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("export contracts: %w", err)
	}
	claims, err := store.GetAllClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("export claims: %w", err)
	}

	doc := &Document{
		Contracts:  contracts,
		Claims:     claims,
		Settings:   []models.Settings{},
		Version:    SchemaVersion,
		ExportDate: now.UTC(),
	}
	if doc.Contracts == nil {
		doc.Contracts = []models.Contract{}
	}
	if doc.Claims == nil {
		doc.Claims = []models.Claim{}
	}

	settings, err := store.GetSettings(ctx)
	switch {
	case err == nil:
		doc.Settings = append(doc.Settings, *settings)
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("export settings: %w", err)
	}

	return doc, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Read decodes and validates a backup document.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: malformed backup: %w", models.ErrValidation, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks referential integrity and the schema version.
func (d *Document) Validate() error {
	if d.Version > SchemaVersion {
		return fmt.Errorf("%w: backup schema version %d is newer than supported version %d",
			models.ErrValidation, d.Version, SchemaVersion)
	}
	if len(d.Settings) > 1 {
		return fmt.Errorf("%w: backup has %d settings records, expected at most one", models.ErrValidation, len(d.Settings))
	}

	for _, s := range d.Settings {
		if err := models.CheckGSTRate(s.DefaultGSTRate); err != nil {
			return fmt.Errorf("%w: settings: %w", models.ErrValidation, err)
		}
	}

	contractIDs := make(map[string]bool, len(d.Contracts))
	for _, c := range d.Contracts {
		if c.ID == "" {
			return fmt.Errorf("%w: contract %q has no id", models.ErrValidation, c.Name)
		}
		if err := models.CheckGSTRate(c.GSTRate); err != nil {
			return fmt.Errorf("%w: contract %s: %w", models.ErrValidation, c.ID, err)
		}
		if contractIDs[c.ID] {
			return fmt.Errorf("%w: duplicate contract id %s", models.ErrValidation, c.ID)
		}
		contractIDs[c.ID] = true
	}

	claimIDs := make(map[string]bool, len(d.Claims))
	numbers := make(map[string]map[int]bool)
	for _, c := range d.Claims {
		switch {
		case c.ID == "":
			return fmt.Errorf("%w: claim %d has no id", models.ErrValidation, c.Number)
		case claimIDs[c.ID]:
			return fmt.Errorf("%w: duplicate claim id %s", models.ErrValidation, c.ID)
		case !contractIDs[c.ContractID]:
			return fmt.Errorf("%w: claim %s references unknown contract %s", models.ErrValidation, c.ID, c.ContractID)
		case c.Number < 1:
			return fmt.Errorf("%w: claim %s has invalid number %d", models.ErrValidation, c.ID, c.Number)
		case !c.Status.Valid():
			return fmt.Errorf("%w: claim %s has unknown status %q", models.ErrValidation, c.ID, c.Status)
		}
		if numbers[c.ContractID] == nil {
			numbers[c.ContractID] = make(map[int]bool)
		}
		if numbers[c.ContractID][c.Number] {
			return fmt.Errorf("%w: contract %s has two claims numbered %d", models.ErrValidation, c.ContractID, c.Number)
		}
		numbers[c.ContractID][c.Number] = true
		claimIDs[c.ID] = true
	}
	return nil
}

// Import atomically replaces all contracts, claims and settings with doc.
// Claim totals are recomputed from their items so the stored state stays consistent.
func Import(ctx context.Context, store Store, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	rates := make(map[string]models.Contract, len(doc.Contracts))
	for _, c := range doc.Contracts {
		rates[c.ID] = c
	}

	claims := make([]models.Claim, len(doc.Claims))
	for i, c := range doc.Claims {
		c.Items = calc.RecalculateItems(c.Items)
		c.Totals = calc.ComputeClaimTotals(c.Items, rates[c.ContractID].GSTRate)
		claims[i] = c
	}

	var settings *models.Settings
	if len(doc.Settings) == 1 {
		s := doc.Settings[0]
		settings = &s
	}

	if err := store.ReplaceAll(ctx, doc.Contracts, claims, settings); err != nil {
		return fmt.Errorf("import backup: %w", err)
	}

	logger.Log.Info().
		Int("contracts", len(doc.Contracts)).
		Int("claims", len(claims)).
		Int("version", doc.Version).
		Msg("Backup imported")
	return nil
}
