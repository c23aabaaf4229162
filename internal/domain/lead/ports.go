package lead

import "context"

// CRMGateway is the port to the order-management CRM
type CRMGateway interface {
	// FetchProduct returns the single offer matching sku.
	// Zero or several matches yield ErrProductNotFound.
	FetchProduct(ctx context.Context, apiKey, sku string) (*Product, error)

	// CreateOrder submits the payload as a new CRM order
	CreateOrder(ctx context.Context, apiKey string, payload *OrderPayload) error
}

// Notifier is told about orders the CRM did not accept
type Notifier interface {
	NotifySubmissionFailure(ctx context.Context, payload *OrderPayload)
}
