package service

import (
	"context"
	"errors"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/normalize"
	"github.com/boddenberg/atendimento-webhook-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/ingestion")

// Ingestion turns webhook bodies into canonical rows and stores them.
type Ingestion struct {
	store       port.RowStore
	guard       port.DeliveryGuard
	engagements *normalize.Assembler
	visits      *normalize.VisitAssembler
	metrics     *observability.Metrics
	logger      *zap.Logger

	// inflight joins concurrent deliveries of one record to a single write.
	inflight singleflight.Group
}

// NewIngestion creates the ingestion service with all dependencies
// injected. guard may be nil to disable the de-duplication window.
func NewIngestion(
	store port.RowStore,
	guard port.DeliveryGuard,
	engagements *normalize.Assembler,
	visits *normalize.VisitAssembler,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Ingestion {
	return &Ingestion{
		store:       store,
		guard:       guard,
		engagements: engagements,
		visits:      visits,
		metrics:     metrics,
		logger:      logger,
	}
}

// EngagementPaths returns the candidate paths of the engagement source.
func (s *Ingestion) EngagementPaths() normalize.EngagementPaths {
	return s.engagements.Paths()
}

// VisitPaths returns the candidate paths of the visit source.
func (s *Ingestion) VisitPaths() normalize.VisitPaths {
	return s.visits.Paths()
}

// StrictEngagements reports whether engagements without name and phone are
// rejected.
func (s *Ingestion) StrictEngagements() bool {
	return s.engagements.Strict()
}

// IngestEngagement parses, normalizes and stores one chat platform
// delivery. Errors are *domain.ErrMalformedPayload, *domain.ErrValidation
// or *domain.ErrPersistence.
func (s *Ingestion) IngestEngagement(ctx context.Context, body []byte) (*domain.IngestResult, error) {
	ctx, span := tracer.Start(ctx, "Ingestion.IngestEngagement")
	defer span.End()

	p, err := s.parse(domain.SourceEngagement, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rec, err := s.engagements.Assemble(p)
	if err != nil {
		s.metrics.IncrPayload(domain.SourceEngagement, observability.OutcomeRejected)
		s.logger.Warn("engagement rejected",
			zap.Error(err),
			observability.RawPayload(body),
		)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if rec.CustomerName == domain.UnidentifiedName {
		s.metrics.IncrSentinel("name")
	}
	if rec.CustomerPhone == domain.PhoneNotProvided {
		s.metrics.IncrSentinel("phone")
	}

	s.logger.Debug("engagement normalized",
		observability.RawPayload(body),
		zap.Any("record", rec),
	)
	span.SetAttributes(attribute.String("record.id", rec.ID))

	return s.persist(ctx, domain.SourceEngagement, domain.EngagementsTable, rec.ID, rec, body)
}

// IngestVisit parses, normalizes and stores one site tracker delivery.
// Visits are never rejected for missing fields.
func (s *Ingestion) IngestVisit(ctx context.Context, body []byte) (*domain.IngestResult, error) {
	ctx, span := tracer.Start(ctx, "Ingestion.IngestVisit")
	defer span.End()

	p, err := s.parse(domain.SourceVisit, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rec := s.visits.Assemble(p)

	s.logger.Debug("visit normalized",
		observability.RawPayload(body),
		zap.Any("record", rec),
	)
	span.SetAttributes(attribute.String("record.id", rec.ID))

	return s.persist(ctx, domain.SourceVisit, domain.VisitsTable, rec.ID, rec, body)
}

func (s *Ingestion) parse(source string, body []byte) (normalize.Payload, error) {
	p, err := normalize.ParsePayload(body)
	if err != nil {
		s.metrics.IncrPayload(source, observability.OutcomeMalformed)
		s.logger.Warn("malformed payload",
			zap.String("source", source),
			zap.Error(err),
			observability.RawPayload(body),
		)
	}
	return p, err
}

// persist stores rec once per id. A delivery that arrives while another
// one for the same id is being written waits for that write and reports
// its outcome: a duplicate when it succeeded, the same error when it
// failed.
func (s *Ingestion) persist(ctx context.Context, source, table, id string, rec any, body []byte) (*domain.IngestResult, error) {
	key := source + ":" + id

	leader := false
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		leader = true
		return s.write(ctx, source, table, id, key, rec, body)
	})
	if leader {
		if err != nil {
			return nil, err
		}
		return v.(*domain.IngestResult), nil
	}

	if err != nil {
		s.metrics.IncrPayload(source, observability.OutcomeFailed)
		s.logger.Warn("concurrent delivery failed with the in-flight write",
			zap.String("source", source),
			zap.String("id", id),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.IncrGuardHit(source)
	s.metrics.IncrPayload(source, observability.OutcomeDuplicate)
	s.logger.Info("concurrent delivery joined in-flight write",
		zap.String("source", source),
		zap.String("id", id),
	)
	return &domain.IngestResult{Source: source, Record: rec, Duplicate: true}, nil
}

func (s *Ingestion) write(ctx context.Context, source, table, id, key string, rec any, body []byte) (*domain.IngestResult, error) {
	if s.guard != nil {
		claimed, err := s.guard.Claim(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("delivery guard unavailable, writing through",
				zap.String("source", source),
				zap.String("id", id),
				zap.Error(err),
			)
		case !claimed:
			s.metrics.IncrGuardHit(source)
			s.metrics.IncrPayload(source, observability.OutcomeDuplicate)
			s.logger.Info("duplicate delivery inside window",
				zap.String("source", source),
				zap.String("id", id),
			)
			return &domain.IngestResult{Source: source, Record: rec, Duplicate: true}, nil
		}
	}

	inserted, err := s.store.Insert(ctx, table, rec)
	if err != nil {
		if s.guard != nil {
			s.guard.Release(ctx, key)
		}
		s.metrics.IncrPayload(source, observability.OutcomeFailed)
		s.logger.Error("failed to store record",
			zap.String("source", source),
			zap.String("backend", s.store.Backend()),
			zap.String("table", table),
			zap.String("id", id),
			zap.Error(err),
			observability.RawPayload(body),
		)

		var persistence *domain.ErrPersistence
		if !errors.As(err, &persistence) {
			err = &domain.ErrPersistence{Backend: s.store.Backend(), Message: err.Error(), Err: err}
		}
		return nil, err
	}

	result := &domain.IngestResult{Source: source, Record: rec, Duplicate: !inserted}
	if inserted {
		s.metrics.IncrPayload(source, observability.OutcomeAccepted)
		s.logger.Info("record stored",
			zap.String("source", source),
			zap.String("table", table),
			zap.String("id", id),
		)
	} else {
		s.metrics.IncrPayload(source, observability.OutcomeDuplicate)
		s.logger.Info("duplicate record ignored",
			zap.String("source", source),
			zap.String("table", table),
			zap.String("id", id),
		)
	}
	return result, nil
}
