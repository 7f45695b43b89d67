package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

type gateway interface {
	GetAllContracts(ctx context.Context) ([]models.Contract, error)
	GetContract(ctx context.Context, id string) (*models.Contract, error)
	SaveContract(ctx context.Context, c *models.Contract) error
	DeleteContract(ctx context.Context, id string) error
	GetAllClaims(ctx context.Context) ([]models.Claim, error)
	GetClaimsByContract(ctx context.Context, contractID string) ([]models.Claim, error)
	GetClaim(ctx context.Context, id string) (*models.Claim, error)
	SaveClaim(ctx context.Context, c *models.Claim) error
	DeleteClaim(ctx context.Context, id string) error
	GetAttachmentsByClaimID(ctx context.Context, claimID string) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*models.Attachment, error)
	SaveAttachment(ctx context.Context, a *models.Attachment) error
	DeleteAttachment(ctx context.Context, id string) error
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
	ReplaceAll(ctx context.Context, contracts []models.Contract, claims []models.Claim, settings *models.Settings) error
}

var (
	_ gateway = (*Store)(nil)
	_ gateway = (*MemoryStore)(nil)
)

var suiteTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func testContract(id string, createdAt time.Time) *models.Contract {
	return &models.Contract{
		ID:            id,
		Name:          "Warehouse " + id,
		ABN:           "12 345 678 901",
		ClientInfo:    models.ClientInfo{Name: "Acme Builders", Email: "pm@acme.test"},
		ContractValue: decimal.NewFromInt(100000),
		GSTRate:       decimal.NewFromFloat(0.1),
		TemplateItems: []models.LineItem{
			{ID: id + "-t1", Description: "Earthworks", ContractValue: decimal.NewFromInt(40000)},
			{ID: id + "-t2", Description: "Slab", ContractValue: decimal.NewFromInt(60000)},
		},
		CreatedAt: createdAt,
	}
}

func testClaim(id, contractID string, number int) *models.Claim {
	return &models.Claim{
		ID:         id,
		ContractID: contractID,
		Number:     number,
		Date:       time.Date(2026, 3, number, 0, 0, 0, 0, time.UTC),
		Status:     models.StatusDraft,
		Items: []models.LineItem{{
			ID:              id + "-i1",
			Description:     "Earthworks",
			ContractValue:   decimal.NewFromInt(40000),
			PercentComplete: decimal.NewFromInt(25),
			ThisClaim:       decimal.NewFromInt(10000),
		}},
		Totals: models.Totals{
			ExGST:  decimal.NewFromInt(10000),
			GST:    decimal.NewFromInt(1000),
			IncGST: decimal.NewFromInt(11000),
		},
		Changelog: []models.ChangeEntry{{
			Timestamp:    suiteTime,
			FieldChanged: "status",
			OldValue:     nil,
			NewValue:     "Draft",
		}},
	}
}

func testAttachment(id, claimID string, offset time.Duration) *models.Attachment {
	content := []byte("site photo " + id)
	return &models.Attachment{
		ID:        id,
		ClaimID:   claimID,
		FileName:  id + ".jpg",
		MIMEType:  "image/jpeg",
		Size:      int64(len(content)),
		Content:   content,
		CreatedAt: suiteTime.Add(offset),
	}
}

func runGatewaySuite(t *testing.T, newGateway func(t *testing.T) gateway) {
	ctx := context.Background()

	t.Run("contracts round trip", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.SaveContract(ctx, testContract("k1", suiteTime)))
		require.NoError(t, g.SaveContract(ctx, testContract("k2", suiteTime.Add(time.Hour))))

		got, err := g.GetContract(ctx, "k1")
		require.NoError(t, err)
		require.Equal(t, "Warehouse k1", got.Name)
		require.Equal(t, "Acme Builders", got.ClientInfo.Name)
		require.True(t, got.ContractValue.Equal(decimal.NewFromInt(100000)))
		require.True(t, got.GSTRate.Equal(decimal.NewFromFloat(0.1)))
		require.Len(t, got.TemplateItems, 2)
		require.Equal(t, "Slab", got.TemplateItems[1].Description)

		all, err := g.GetAllContracts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, "k2", all[0].ID, "newest contract first")

		got.Name = "Renamed"
		require.NoError(t, g.SaveContract(ctx, got))
		again, err := g.GetContract(ctx, "k1")
		require.NoError(t, err)
		require.Equal(t, "Renamed", again.Name)
	})

	t.Run("missing records are not found", func(t *testing.T) {
		g := newGateway(t)

		_, err := g.GetContract(ctx, "nope")
		require.ErrorIs(t, err, models.ErrNotFound)
		_, err = g.GetClaim(ctx, "nope")
		require.ErrorIs(t, err, models.ErrNotFound)
		_, err = g.GetAttachment(ctx, "nope")
		require.ErrorIs(t, err, models.ErrNotFound)
		_, err = g.GetSettings(ctx)
		require.ErrorIs(t, err, models.ErrNotFound)
		require.ErrorIs(t, g.DeleteClaim(ctx, "nope"), models.ErrNotFound)
		require.ErrorIs(t, g.DeleteContract(ctx, "nope"), models.ErrNotFound)
		require.ErrorIs(t, g.DeleteAttachment(ctx, "nope"), models.ErrNotFound)
	})

	t.Run("claims ordered by number", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.SaveContract(ctx, testContract("k1", suiteTime)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c2", "k1", 2)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c1", "k1", 1)))

		claims, err := g.GetClaimsByContract(ctx, "k1")
		require.NoError(t, err)
		require.Len(t, claims, 2)
		require.Equal(t, 1, claims[0].Number)
		require.Equal(t, 2, claims[1].Number)

		got, err := g.GetClaim(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, models.StatusDraft, got.Status)
		require.True(t, got.Totals.IncGST.Equal(decimal.NewFromInt(11000)))
		require.True(t, got.Items[0].PercentComplete.Equal(decimal.NewFromInt(25)))
		require.Len(t, got.Changelog, 1)
		require.Equal(t, "status", got.Changelog[0].FieldChanged)
		require.Nil(t, got.Changelog[0].OldValue)
		require.Equal(t, "Draft", got.Changelog[0].NewValue)

		got.Status = models.StatusApproved
		require.NoError(t, g.SaveClaim(ctx, got))
		updated, err := g.GetClaim(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, models.StatusApproved, updated.Status)
	})

	t.Run("deleting a claim removes its attachments", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.SaveContract(ctx, testContract("k1", suiteTime)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c1", "k1", 1)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c2", "k1", 2)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a1", "c1", 0)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a2", "c1", time.Minute)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a3", "c2", 0)))

		attachments, err := g.GetAttachmentsByClaimID(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, attachments, 2)
		require.Equal(t, "a1", attachments[0].ID)
		require.Equal(t, []byte("site photo a1"), attachments[0].Content)

		require.NoError(t, g.DeleteClaim(ctx, "c1"))

		_, err = g.GetAttachment(ctx, "a1")
		require.ErrorIs(t, err, models.ErrNotFound)
		_, err = g.GetAttachment(ctx, "a2")
		require.ErrorIs(t, err, models.ErrNotFound)
		kept, err := g.GetAttachment(ctx, "a3")
		require.NoError(t, err)
		require.Equal(t, []byte("site photo a3"), kept.Content)
	})

	t.Run("deleting a contract removes claims and attachments", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.SaveContract(ctx, testContract("k1", suiteTime)))
		require.NoError(t, g.SaveContract(ctx, testContract("k2", suiteTime)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c1", "k1", 1)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c2", "k1", 2)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c3", "k2", 1)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a1", "c1", 0)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a3", "c3", 0)))

		require.NoError(t, g.DeleteContract(ctx, "k1"))

		claims, err := g.GetClaimsByContract(ctx, "k1")
		require.NoError(t, err)
		require.Empty(t, claims)
		_, err = g.GetAttachment(ctx, "a1")
		require.ErrorIs(t, err, models.ErrNotFound)

		others, err := g.GetClaimsByContract(ctx, "k2")
		require.NoError(t, err)
		require.Len(t, others, 1)
		_, err = g.GetAttachment(ctx, "a3")
		require.NoError(t, err)
	})

	t.Run("attachment delete", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.SaveContract(ctx, testContract("k1", suiteTime)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c1", "k1", 1)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a1", "c1", 0)))

		require.NoError(t, g.DeleteAttachment(ctx, "a1"))
		attachments, err := g.GetAttachmentsByClaimID(ctx, "c1")
		require.NoError(t, err)
		require.Empty(t, attachments)
	})

	t.Run("settings", func(t *testing.T) {
		g := newGateway(t)
		settings := &models.Settings{
			CompanyName:       "Hardhat Pty Ltd",
			CompanyABN:        "98 765 432 109",
			DefaultGSTRate:    decimal.NewFromFloat(0.1),
			AdminPasswordHash: "$2a$12$hash",
			SessionTimeout:    15 * time.Minute,
		}
		require.NoError(t, g.SaveSettings(ctx, settings))

		got, err := g.GetSettings(ctx)
		require.NoError(t, err)
		require.Equal(t, "Hardhat Pty Ltd", got.CompanyName)
		require.Equal(t, 15*time.Minute, got.SessionTimeout)
		require.True(t, got.DefaultGSTRate.Equal(decimal.NewFromFloat(0.1)))
	})

	t.Run("replace all", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.SaveContract(ctx, testContract("k1", suiteTime)))
		require.NoError(t, g.SaveContract(ctx, testContract("old", suiteTime)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c1", "k1", 1)))
		require.NoError(t, g.SaveClaim(ctx, testClaim("c-old", "old", 1)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a1", "c1", 0)))
		require.NoError(t, g.SaveAttachment(ctx, testAttachment("a-old", "c-old", 0)))
		require.NoError(t, g.SaveSettings(ctx, &models.Settings{CompanyName: "Before", AdminPasswordHash: "x"}))

		imported := testClaim("c1", "k1", 1)
		imported.Status = models.StatusPaid
		err := g.ReplaceAll(ctx,
			[]models.Contract{*testContract("k1", suiteTime), *testContract("k3", suiteTime)},
			[]models.Claim{*imported, *testClaim("c3", "k3", 1)},
			&models.Settings{CompanyName: "After", AdminPasswordHash: "y"},
		)
		require.NoError(t, err)

		contracts, err := g.GetAllContracts(ctx)
		require.NoError(t, err)
		require.Len(t, contracts, 2)

		_, err = g.GetContract(ctx, "old")
		require.ErrorIs(t, err, models.ErrNotFound)

		claim, err := g.GetClaim(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, claim.Status)

		_, err = g.GetAttachment(ctx, "a1")
		require.NoError(t, err, "attachments of surviving claims are untouched")
		_, err = g.GetAttachment(ctx, "a-old")
		require.ErrorIs(t, err, models.ErrNotFound)

		settings, err := g.GetSettings(ctx)
		require.NoError(t, err)
		require.Equal(t, "After", settings.CompanyName)
	})

	t.Run("replace all without settings clears them", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.SaveSettings(ctx, &models.Settings{CompanyName: "Before", AdminPasswordHash: "x"}))

		require.NoError(t, g.ReplaceAll(ctx, nil, nil, nil))

		_, err := g.GetSettings(ctx)
		require.ErrorIs(t, err, models.ErrNotFound)
		all, err := g.GetAllClaims(ctx)
		require.NoError(t, err)
		require.Empty(t, all)
	})
}
