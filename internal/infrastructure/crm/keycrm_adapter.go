package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/leadcrm/backend/internal/domain/lead"
	"github.com/leadcrm/backend/internal/infrastructure/telemetry"
)

// KeyCRMAdapter implements lead.CRMGateway for KeyCRM
type KeyCRMAdapter struct {
	client *KeyCRMClient
	logger *zap.Logger
}

// NewKeyCRMAdapter creates a new KeyCRM adapter on top of client
func NewKeyCRMAdapter(client *KeyCRMClient, logger *zap.Logger) *KeyCRMAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyCRMAdapter{
		client: client,
		logger: logger,
	}
}

// FetchProduct looks up the single offer with the given SKU.
// Both the sku parameter and the JSON filter parameter are sent; the API
// accepts either shape and we do not rely on one alone.
func (a *KeyCRMAdapter) FetchProduct(ctx context.Context, apiKey, sku string) (*lead.Product, error) {
	ctx, span := telemetry.StartSpan(ctx, "keycrm.fetch_product",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
	)
	defer span.End()

	filter, err := json.Marshal(keyCRMSkuFilter{SKU: sku})
	if err != nil {
		return nil, fmt.Errorf("keycrm: failed to marshal filter: %w", err)
	}

	query := url.Values{}
	query.Set("include", "product")
	query.Set("sku", sku)
	query.Set("filter", string(filter))

	body, err := a.client.Do(ctx, apiKey, Request{
		Method:       http.MethodGet,
		Path:         keyCRMOffersPath,
		Query:        query,
		ExpectedCode: KeyCRMCodeOK,
	})
	if err != nil {
		recordGatewayError(span, err)
		return nil, err
	}

	var resp KeyCRMOffersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	telemetry.SetAttribute(span, "keycrm.offers_count", len(resp.Data))
	if len(resp.Data) != 1 {
		a.logger.Warn("KeyCRM offer lookup did not return exactly one match",
			zap.String("sku", sku),
			zap.Int("matches", len(resp.Data)),
		)
		return nil, lead.ErrProductNotFound
	}

	offer := resp.Data[0]
	if offer.Product == nil {
		a.logger.Warn("KeyCRM offer has no product included", zap.String("sku", sku), zap.Int64("offer_id", offer.ID))
		return nil, lead.ErrProductNotFound
	}

	product := &lead.Product{
		SKU:     offer.SKU,
		Price:   offer.Product.MaxPrice,
		Name:    offer.Product.Name,
		Picture: offer.Product.ThumbnailURL,
	}
	if product.SKU == "" {
		product.SKU = sku
	}
	return product, nil
}

// CreateOrder submits payload to the order endpoint.
// KeyCRM signals success with an embedded 201 code.
func (a *KeyCRMAdapter) CreateOrder(ctx context.Context, apiKey string, payload *lead.OrderPayload) error {
	ctx, span := telemetry.StartSpan(ctx, "keycrm.create_order",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrSourceUUID, payload.SourceUUID),
	)
	defer span.End()

	body, err := a.client.Do(ctx, apiKey, Request{
		Method:       http.MethodPost,
		Path:         keyCRMOrderPath,
		Body:         payload,
		ExpectedCode: KeyCRMCodeCreated,
	})
	if err != nil {
		recordGatewayError(span, err)
		return err
	}

	var resp KeyCRMOrderResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.ID != 0 {
		telemetry.SetAttribute(span, "keycrm.order_id", resp.ID)
		a.logger.Info("KeyCRM order created",
			zap.Int64("order_id", resp.ID),
			zap.String("source_uuid", payload.SourceUUID),
		)
	}
	return nil
}

// IsTransportError reports whether err came from the network rather than the CRM
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

func recordGatewayError(span trace.Span, err error) {
	telemetry.RecordError(span, err)
	telemetry.SetAttribute(span, "keycrm.transport_failure", IsTransportError(err))

	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		telemetry.SetAttribute(span, telemetry.SpanAttrErrorCode, coded.ErrorCode())
	}
}

// Ensure KeyCRMAdapter implements the CRMGateway port
var _ lead.CRMGateway = (*KeyCRMAdapter)(nil)
