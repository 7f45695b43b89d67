// Package claims implements the contract and claim lifecycle: claim creation
// and seeding, numbering, updates with recalculated totals, cascading deletes,
// attachments, and document generation.
package claims

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/claimspro/internal/config"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

const instrumentationName = "gitlab.com/yelinaung/claimspro/internal/claims"

// Gateway is the persistence boundary the lifecycle reads from and writes to.
type Gateway interface {
	GetAllContracts(ctx context.Context) ([]models.Contract, error)
	GetContract(ctx context.Context, id string) (*models.Contract, error)
	SaveContract(ctx context.Context, c *models.Contract) error
	DeleteContract(ctx context.Context, id string) error

	GetClaimsByContract(ctx context.Context, contractID string) ([]models.Claim, error)
	GetClaim(ctx context.Context, id string) (*models.Claim, error)
	SaveClaim(ctx context.Context, c *models.Claim) error
	DeleteClaim(ctx context.Context, id string) error

	GetAttachmentsByClaimID(ctx context.Context, claimID string) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, id string) (*models.Attachment, error)
	SaveAttachment(ctx context.Context, a *models.Attachment) error
	DeleteAttachment(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (*models.Settings, error)
}

// DocumentRenderer turns a claim into a printable document.
type DocumentRenderer interface {
	RenderAssessment(contract models.Contract, claim models.Claim, settings models.Settings) (models.Document, error)
	RenderInvoice(contract models.Contract, claim models.Claim, settings models.Settings) (models.Document, error)
}

// Service coordinates contracts, claims and attachments over a Gateway.
type Service struct {
	gw                 Gateway
	renderer           DocumentRenderer
	locks              *contractLocks
	now                func() time.Time
	newID              func() string
	maxAttachmentBytes int64

	tracer        trace.Tracer
	claimsCreated metric.Int64Counter
	statusChanges metric.Int64Counter
	invoices      metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides how record IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithRenderer sets the renderer used for assessment and invoice documents.
func WithRenderer(r DocumentRenderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithMaxAttachmentBytes sets the attachment size limit.
func WithMaxAttachmentBytes(n int64) Option {
	return func(s *Service) {
		s.maxAttachmentBytes = n
	}
}

// NewService creates a Service.
func NewService(gw Gateway, opts ...Option) *Service {
	s := &Service{
		gw:                 gw,
		locks:              newContractLocks(),
		now:                time.Now,
		newID:              uuid.NewString,
		maxAttachmentBytes: config.DefaultMaxAttachmentBytes,
		tracer:             otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if s.claimsCreated, err = meter.Int64Counter("claimspro.claims.created",
		metric.WithDescription("Claims created, by seed strategy")); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create claims counter")
	}
	if s.statusChanges, err = meter.Int64Counter("claimspro.claims.status_changes",
		metric.WithDescription("Claim status transitions, by target status")); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create status counter")
	}
	if s.invoices, err = meter.Int64Counter("claimspro.invoices.generated",
		metric.WithDescription("Invoice documents generated")); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create invoice counter")
	}

	return s
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) addCount(ctx context.Context, counter metric.Int64Counter, opts ...metric.AddOption) {
	if counter != nil {
		counter.Add(ctx, 1, opts...)
	}
}

// today returns the current date at UTC midnight.
func (s *Service) today() time.Time {
	return dateOnly(s.now())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
