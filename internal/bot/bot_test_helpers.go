package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"gitlab.com/yelinaung/claimspro/internal/auth"
	"gitlab.com/yelinaung/claimspro/internal/bot/mocks"
	"gitlab.com/yelinaung/claimspro/internal/claims"
	"gitlab.com/yelinaung/claimspro/internal/config"
	"gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/report"
	"gitlab.com/yelinaung/claimspro/internal/repository"
)

const (
	testChatID   int64 = 12345
	testUserID   int64 = 12345
	testPassword       = "site-admin"
)

// testNow is the fixed clock used by bot tests.
var testNow = time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)

// testDeps are the services behind a test Bot.
type testDeps struct {
	store    *repository.MemoryStore
	claims   *claims.Service
	auth     *auth.Manager
	sessions *auth.Sessions
	mock     *mocks.MockBot
}

// setupTestBot creates a Bot over an in-memory store with a fixed clock.
//
//nolint:unused // Used in test files
func setupTestBot(t *testing.T, reader ProgressReader) (*Bot, *testDeps) {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken:   "test-token",
		WhitelistedUserIDs: []int64{testUserID},
	}

	clock := func() time.Time { return testNow }

	var n atomic.Int64
	store := repository.NewMemoryStore()
	svc := claims.NewService(store,
		claims.WithClock(clock),
		claims.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
		claims.WithRenderer(report.NewRenderer(clock)),
	)
	manager := auth.NewManager(store, auth.Defaults{
		Password:       testPassword,
		CompanyName:    "Hardhat Builders",
		CompanyABN:     "11 222 333 444",
		SessionTimeout: 30 * time.Minute,
	}, auth.WithCost(bcrypt.MinCost))
	sessions := auth.NewSessions(30 * time.Minute)
	sessions.SetClock(clock)

	b := newBot(cfg, Deps{
		Claims:   svc,
		Auth:     manager,
		Sessions: sessions,
		Store:    store,
		Reader:   reader,
	})
	b.now = clock

	mock := mocks.NewMockBot()
	b.messageSender = mock

	return b, &testDeps{
		store:    store,
		claims:   svc,
		auth:     manager,
		sessions: sessions,
		mock:     mock,
	}
}

// run routes a command through the bot as the test user.
//
//nolint:unused // Used in test files
func (d *testDeps) run(b *Bot, text string) {
	b.routeCore(context.Background(), d.mock, mocks.CommandUpdate(testChatID, testUserID, text))
}

// runUpdate routes an arbitrary update through the bot.
//
//nolint:unused // Used in test files
func (d *testDeps) runUpdate(b *Bot, update *tgmodels.Update) {
	b.routeCore(context.Background(), d.mock, update)
}

// lastText returns the text of the last message sent, or "" if none.
//
//nolint:unused // Used in test files
func (d *testDeps) lastText() string {
	if msg := d.mock.LastSentMessage(); msg != nil {
		return msg.Text
	}
	return ""
}

// seedContract creates a selected contract with two template items.
//
//nolint:unused // Used in test files
func seedContract(t *testing.T, b *Bot, d *testDeps) *models.Contract {
	t.Helper()
	ctx := context.Background()

	contract, err := d.claims.CreateContract(ctx, claims.ContractInput{
		Name:          "Riverside Apartments",
		Client:        models.ClientInfo{Name: "Acme Developments", Email: "pm@acme.example"},
		ContractValue: mustParseDecimal("100000"),
	})
	if err != nil {
		t.Fatalf("failed to create contract: %v", err)
	}
	if _, err := d.claims.AddTemplateItem(ctx, contract.ID, "Site works", mustParseDecimal("40000")); err != nil {
		t.Fatalf("failed to add template item: %v", err)
	}
	contract, err = d.claims.AddTemplateItem(ctx, contract.ID, "Framing", mustParseDecimal("60000"))
	if err != nil {
		t.Fatalf("failed to add template item: %v", err)
	}

	b.setActiveContract(testChatID, contract.ID)
	return contract
}

// seedClaim creates a template-seeded claim on contract.
//
//nolint:unused // Used in test files
func seedClaim(t *testing.T, d *testDeps, contract *models.Contract) *models.Claim {
	t.Helper()
	claim, err := d.claims.CreateClaim(context.Background(), claims.CreateClaimInput{ContractID: contract.ID})
	if err != nil {
		t.Fatalf("failed to create claim: %v", err)
	}
	return claim
}

// mustParseDecimal parses a decimal string or panics (for test data).
//
//nolint:unused // Used in test files
func mustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("invalid decimal in test: " + s)
	}
	return d
}
