package backup

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/repository"
)

var exportTime = time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)

func seedStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.SaveContract(ctx, &models.Contract{
		ID:            "k1",
		Name:          "Library fitout",
		ContractValue: decimal.NewFromInt(100000),
		GSTRate:       decimal.NewFromFloat(0.1),
		CreatedAt:     exportTime.Add(-24 * time.Hour),
	}))
	require.NoError(t, store.SaveClaim(ctx, &models.Claim{
		ID:         "c1",
		ContractID: "k1",
		Number:     1,
		Date:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:     models.StatusApproved,
		Items: []models.LineItem{{
			ID:              "i1",
			Description:     "Joinery",
			ContractValue:   decimal.NewFromInt(100000),
			PercentComplete: decimal.NewFromInt(25),
			ThisClaim:       decimal.NewFromInt(25000),
		}},
		Totals: models.Totals{
			ExGST:  decimal.NewFromInt(25000),
			GST:    decimal.NewFromInt(2500),
			IncGST: decimal.NewFromInt(27500),
		},
	}))
	require.NoError(t, store.SaveAttachment(ctx, &models.Attachment{
		ID: "a1", ClaimID: "c1", FileName: "photo.jpg", Content: []byte("jpeg-bytes"),
	}))
	require.NoError(t, store.SaveSettings(ctx, &models.Settings{
		CompanyName:       "Hardhat Pty Ltd",
		DefaultGSTRate:    decimal.NewFromFloat(0.1),
		AdminPasswordHash: "$2a$12$hash",
	}))
	return store
}

func TestExport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := seedStore(t)

	doc, err := Export(ctx, store, exportTime)
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, doc.Version)
	require.Equal(t, exportTime, doc.ExportDate)
	require.Len(t, doc.Contracts, 1)
	require.Len(t, doc.Claims, 1)
	require.Len(t, doc.Settings, 1)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))
	out := buf.String()
	require.Contains(t, out, `"exportDate": "2026-04-30T12:00:00Z"`)
	require.Contains(t, out, `"contractId": "k1"`)
	require.NotContains(t, out, "jpeg-bytes", "attachment payloads are excluded")
}

func TestExport_EmptyStore(t *testing.T) {
	t.Parallel()

	doc, err := Export(context.Background(), repository.NewMemoryStore(), exportTime)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))
	require.Contains(t, buf.String(), `"contracts": []`)
	require.Contains(t, buf.String(), `"settings": []`)
}

func TestExportImport_RestoresState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	source := seedStore(t)

	doc, err := Export(ctx, source, exportTime)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	restored, err := Read(&buf)
	require.NoError(t, err)

	target := repository.NewMemoryStore()
	require.NoError(t, Import(ctx, target, restored))

	claim, err := target.GetClaim(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, claim.Status)
	require.True(t, claim.Totals.IncGST.Equal(decimal.NewFromInt(27500)))

	settings, err := target.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "Hardhat Pty Ltd", settings.CompanyName)
}

func TestImport_ReplacesExistingData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := seedStore(t)

	doc := &Document{
		Version: 1,
		Contracts: []models.Contract{{
			ID: "k2", Name: "Clinic", ContractValue: decimal.NewFromInt(5000), GSTRate: decimal.NewFromFloat(0.1),
		}},
	}
	require.NoError(t, Import(ctx, store, doc))

	contracts, err := store.GetAllContracts(ctx)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	require.Equal(t, "k2", contracts[0].ID)

	_, err = store.GetClaim(ctx, "c1")
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetSettings(ctx)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestImport_RecomputesTotals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	doc := &Document{
		Version:   1,
		Contracts: []models.Contract{{ID: "k1", Name: "Depot", GSTRate: decimal.NewFromFloat(0.1)}},
		Claims: []models.Claim{{
			ID: "c1", ContractID: "k1", Number: 1, Status: models.StatusDraft,
			Items: []models.LineItem{{
				ID: "i1", ContractValue: decimal.NewFromInt(2000), PercentComplete: decimal.NewFromInt(50),
				ThisClaim: decimal.NewFromInt(1),
			}},
			Totals: models.Totals{IncGST: decimal.NewFromInt(1)},
		}},
	}
	require.NoError(t, Import(ctx, store, doc))

	claim, err := store.GetClaim(ctx, "c1")
	require.NoError(t, err)
	require.True(t, claim.Items[0].ThisClaim.Equal(decimal.NewFromInt(1000)))
	require.True(t, claim.Totals.IncGST.Equal(decimal.NewFromInt(1100)))
}

func TestRead_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
	}{
		{name: "malformed", json: `{"contracts": [`},
		{name: "future version", json: `{"version": 2}`},
		{name: "two settings", json: `{"version": 1, "settings": [{}, {}]}`},
		{name: "orphan claim", json: `{"version": 1, "claims": [{"id": "c1", "contractId": "nope", "number": 1, "status": "Draft"}]}`},
		{name: "bad status", json: `{"version": 1, "contracts": [{"id": "k1"}],
			"claims": [{"id": "c1", "contractId": "k1", "number": 1, "status": "Lost"}]}`},
		{name: "duplicate number", json: `{"version": 1, "contracts": [{"id": "k1"}], "claims": [
			{"id": "c1", "contractId": "k1", "number": 1, "status": "Draft"},
			{"id": "c2", "contractId": "k1", "number": 1, "status": "Draft"}]}`},
		{name: "duplicate contract", json: `{"version": 1, "contracts": [{"id": "k1"}, {"id": "k1"}]}`},
		{name: "unstorable gst rate", json: `{"version": 1, "contracts": [{"id": "k1", "gstRate": 0.12345}]}`},
		{name: "settings gst out of range", json: `{"version": 1, "settings": [{"defaultGstRate": 1.5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(strings.NewReader(tt.json))
			require.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestImport_LeavesStoreOnFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := seedStore(t)

	err := Import(ctx, store, &Document{Version: 1, Claims: []models.Claim{{ID: "x", ContractID: "gone", Number: 1, Status: models.StatusDraft}}})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = store.GetClaim(ctx, "c1")
	require.NoError(t, err)
}

func TestWrite_DateOnlyClaimsAndMillisecondTimeout(t *testing.T) {
	t.Parallel()

	doc := &Document{
		Version:    SchemaVersion,
		ExportDate: exportTime,
		Contracts:  []models.Contract{{ID: "k1", Name: "Library fitout"}},
		Claims: []models.Claim{{
			ID: "c1", ContractID: "k1", Number: 1, Status: models.StatusDraft,
			Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		}},
		Settings: []models.Settings{{AdminPasswordHash: "x", SessionTimeout: 30 * time.Minute}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))
	out := buf.String()
	require.Contains(t, out, `"date": "2026-04-01"`)
	require.Contains(t, out, `"sessionTimeout": 1800000`)

	back, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, doc.Claims[0].Date, back.Claims[0].Date)
	require.Equal(t, 30*time.Minute, back.Settings[0].SessionTimeout)
}

// A backup written by the browser version of the app: plain JSON numbers,
// date-only claim dates, a millisecond session timeout, inline attachment
// stubs and untyped changelog values.
const browserBackup = `{
  "contracts": [{
    "id": "k-1705300000000",
    "name": "Harbour View",
    "abn": "12 345 678 901",
    "clientInfo": {"name": "Bay Homes", "email": "pm@bay.example"},
    "contractValue": 100000,
    "gstRate": 0.1,
    "logoUrl": "",
    "templateItems": [{"id": "t1", "description": "Slab", "contractValue": 100000,
      "percentComplete": 0, "previousClaim": 0, "thisClaim": 0}],
    "createdAt": "2024-01-10T08:00:00.000Z"
  }],
  "claims": [{
    "id": "c-1705300000001",
    "contractId": "k-1705300000000",
    "number": 1,
    "date": "2024-01-15",
    "status": "For Assessment",
    "items": [{"id": "i1", "description": "Slab", "contractValue": 100000,
      "percentComplete": 25, "previousClaim": 0, "thisClaim": 25000}],
    "totals": {"exGst": 25000, "gst": 2500, "incGst": 27500},
    "attachments": [],
    "changelog": [{"timestamp": "2024-01-15T09:00:00.000Z", "fieldChanged": "percentComplete",
      "oldValue": 0, "newValue": 25}]
  }],
  "settings": [{
    "id": "default",
    "companyName": "Hardhat Pty Ltd",
    "companyAbn": "98 765 432 109",
    "defaultGstRate": 0.1,
    "adminPasswordHash": "$2a$12$hash",
    "sessionTimeout": 300000
  }],
  "version": 1,
  "exportDate": "2024-01-20T09:30:00.000Z"
}`

func TestRead_BrowserBackup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	doc, err := Read(strings.NewReader(browserBackup))
	require.NoError(t, err)
	require.Len(t, doc.Claims, 1)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), doc.Claims[0].Date)
	require.Equal(t, 5*time.Minute, doc.Settings[0].SessionTimeout)
	require.Equal(t, "percentComplete", doc.Claims[0].Changelog[0].FieldChanged)

	store := repository.NewMemoryStore()
	require.NoError(t, Import(ctx, store, doc))

	claim, err := store.GetClaim(ctx, "c-1705300000001")
	require.NoError(t, err)
	require.Equal(t, models.StatusForAssessment, claim.Status)
	require.True(t, claim.Totals.IncGST.Equal(decimal.NewFromInt(27500)))

	settings, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, settings.SessionTimeout)
}

func TestRead_AcceptsTimestampClaimDates(t *testing.T) {
	t.Parallel()

	doc, err := Read(strings.NewReader(`{"version": 1, "contracts": [{"id": "k1"}],
		"claims": [{"id": "c1", "contractId": "k1", "number": 1, "status": "Draft", "date": "2026-04-01T00:00:00Z"}]}`))
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), doc.Claims[0].Date)

	_, err = Read(strings.NewReader(`{"version": 1, "contracts": [{"id": "k1"}],
		"claims": [{"id": "c1", "contractId": "k1", "number": 1, "status": "Draft", "date": "15/01/2024"}]}`))
	require.ErrorIs(t, err, models.ErrValidation)
}
