package lead

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/leadcrm/backend/internal/domain/lead"
	"github.com/leadcrm/backend/internal/infrastructure/logger"
	"github.com/leadcrm/backend/internal/infrastructure/telemetry"
)

// Service forwards validated leads to the CRM as single-product orders.
// It holds only immutable collaborators and is safe for concurrent use.
type Service struct {
	gateway  lead.CRMGateway
	notifier lead.Notifier
	metrics  *telemetry.LeadMetrics
	logger   *zap.Logger
}

// NewService creates a new lead Service
func NewService(gateway lead.CRMGateway, notifier lead.Notifier, metrics *telemetry.LeadMetrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:  gateway,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// CallAPI runs one submission through the pipeline.
// Local validation failures return StatusFailed. Once the lead is valid the
// result is StatusAccepted whatever the CRM answers; a rejected or
// undeliverable order is handed to the notifier instead.
func (s *Service) CallAPI(ctx context.Context, req SubmitRequest) Result {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", "call_api",
		telemetry.WithAttribute(telemetry.SpanAttrHost, req.Host),
	)
	defer span.End()

	log := logger.L(ctx, s.logger).With(zap.String("host", req.Host))

	result, outcome := s.process(ctx, log, req)

	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, outcome)
	s.metrics.RecordLead(ctx, outcome, time.Since(start))
	return result
}

func (s *Service) process(ctx context.Context, log *zap.Logger, req SubmitRequest) (Result, string) {
	span := telemetry.SpanFromContext(ctx)

	settings := lead.SettingsFromMap(req.Settings)
	if err := settings.Validate(); err != nil {
		log.Warn("Lead integration is not configured", zap.Error(err))
		telemetry.RecordError(span, err)
		return failed(err.Error()), telemetry.OutcomeConfigMissing
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrSourceID, settings.SourceID)

	sku, ok := lead.ParseSkuSpec(settings.SkuSpec).Resolve(req.Host)
	if !ok {
		log.Warn("No SKU configured for host", zap.Error(lead.ErrSkuUnresolved))
		return failed(lead.MessageProductNotFound), telemetry.OutcomeSkuUnresolved
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrSKU, sku)
	log = log.With(zap.String("sku", sku))

	product, err := s.fetchProduct(ctx, settings.APIKey, sku)
	if err != nil {
		if !errors.Is(err, lead.ErrProductNotFound) {
			log.Error("Product lookup failed", zap.Error(err))
		} else {
			log.Warn("Product not found")
		}
		return failed(lead.MessageProductNotFound), telemetry.OutcomeNoProduct
	}

	info, err := lead.ExtractLead(req.FormData)
	if err != nil {
		log.Warn("Lead rejected", zap.Error(err))
		return failed(lead.MessagePhoneMissing), telemetry.OutcomeNoPhone
	}

	payload := lead.NewOrderPayload(settings.SourceID, info, *product, lead.ExtractMarketing(req.Referrer))
	telemetry.SetAttribute(span, telemetry.SpanAttrSourceUUID, payload.SourceUUID)

	if err := s.createOrder(ctx, settings.APIKey, payload); err != nil {
		log.Error("Order submission failed, notifying administrator",
			zap.String("source_uuid", payload.SourceUUID),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		s.metrics.RecordCRMFailure(ctx, crmErrorCode(err))
		s.notifier.NotifySubmissionFailure(ctx, payload)
		return Result{Status: StatusAccepted, Message: lead.MessageLeadAccepted}, telemetry.OutcomeCRMFailed
	}

	log.Info("Lead submitted", zap.String("source_uuid", payload.SourceUUID))
	return Result{Status: StatusAccepted, Message: lead.MessageLeadAccepted}, telemetry.OutcomeAccepted
}

func (s *Service) fetchProduct(ctx context.Context, apiKey, sku string) (*lead.Product, error) {
	start := time.Now()
	defer func() { s.metrics.RecordCRMRequest(ctx, "fetch_product", time.Since(start)) }()

	product, err := s.gateway.FetchProduct(ctx, apiKey, sku)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, lead.ErrProductNotFound
	}
	return product, nil
}

func (s *Service) createOrder(ctx context.Context, apiKey string, payload *lead.OrderPayload) error {
	start := time.Now()
	defer func() { s.metrics.RecordCRMRequest(ctx, "create_order", time.Since(start)) }()

	return s.gateway.CreateOrder(ctx, apiKey, payload)
}

// crmErrorCode labels a submission failure for metrics
func crmErrorCode(err error) string {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return "unknown"
}
